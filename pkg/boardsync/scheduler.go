// Package boardsync implements the client-side commit scheduler used by
// board frontends. Status moves apply to a local view immediately, then
// commit to the server after a role-dependent delay. During that window
// the move can be cancelled for free; after the commit lands, cancelling
// issues a compensating write back to the original status.
package boardsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status is the board column a ticket occupies.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Role controls both the commit delay and which moves are allowed.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ErrInvalidMove is returned when the local role gate rejects a transition.
var ErrInvalidMove = errors.New("boardsync: move not allowed for role")

// ErrUnknownTicket is returned by Cancel for a ticket with no pending
// or committed move.
var ErrUnknownTicket = errors.New("boardsync: no move to cancel")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("boardsync: scheduler closed")

// CommitFunc persists a status change on the server. It runs outside the
// scheduler lock and may block on the network.
type CommitFunc func(ctx context.Context, ticketID string, status Status) error

// Config wires the scheduler to its environment.
type Config struct {
	Role        Role
	AdminDelay  time.Duration // default 500ms
	MemberDelay time.Duration // default 5s
	Commit      CommitFunc

	// OnCommitted fires after a commit succeeds. Optional.
	OnCommitted func(ticketID string, status Status)
	// OnError fires when a commit or compensating write fails. Optional.
	OnError func(ticketID string, err error)
	// OnRevert fires when the local view rolls back to the pre-move
	// status, either from Cancel or from a failed commit. Optional.
	OnRevert func(ticketID string, status Status)
}

const (
	defaultAdminDelay  = 500 * time.Millisecond
	defaultMemberDelay = 5 * time.Second
)

type commitState int

const (
	statePending commitState = iota
	stateCommitted
)

// pendingCommit tracks one in-flight move. base is the status the server
// still believes until the commit lands; coalescing moves carry it over
// unchanged, and a failed underlying commit re-points it at the last
// status the server confirmed. gen guards against a stale timer firing
// after its entry was replaced.
type pendingCommit struct {
	base   Status
	target Status
	state  commitState
	timer  *time.Timer
	gen    uint64
}

// Scheduler debounces status moves per ticket. Safe for concurrent use.
type Scheduler struct {
	cfg    Config
	delay  time.Duration
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	view    map[string]Status
	pending map[string]*pendingCommit
	closed  bool
	nextGen uint64
	wg      sync.WaitGroup
}

// memberMoves is the single forward step a member may take per move.
var memberMoves = map[Status]Status{
	StatusTodo:       StatusInProgress,
	StatusInProgress: StatusDone,
}

// New builds a scheduler. Config.Commit is required.
func New(cfg Config) *Scheduler {
	if cfg.AdminDelay <= 0 {
		cfg.AdminDelay = defaultAdminDelay
	}
	if cfg.MemberDelay <= 0 {
		cfg.MemberDelay = defaultMemberDelay
	}
	delay := cfg.MemberDelay
	if cfg.Role == RoleAdmin {
		delay = cfg.AdminDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:     cfg,
		delay:   delay,
		ctx:     ctx,
		cancel:  cancel,
		view:    make(map[string]Status),
		pending: make(map[string]*pendingCommit),
	}
}

// Track seeds the local view with a ticket's server-known status.
func (s *Scheduler) Track(ticketID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, busy := s.pending[ticketID]; busy {
		return
	}
	s.view[ticketID] = status
}

// Status reports the local (optimistic) view of a ticket.
func (s *Scheduler) Status(ticketID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.view[ticketID]
	return status, ok
}

// Move updates the local view at once and schedules the server commit
// after the role delay. A second Move before the timer fires replaces
// the target and restarts the timer; the eventual commit carries only
// the final status.
func (s *Scheduler) Move(ticketID string, target Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	current, ok := s.view[ticketID]
	if !ok {
		return ErrUnknownTicket
	}
	if target == current {
		return nil
	}

	// base is the status the server still holds: the original base of a
	// move that has not committed yet, or the target of one that has.
	base := current
	prev, hasPrev := s.pending[ticketID]
	if hasPrev {
		if prev.state == statePending {
			base = prev.base
		} else {
			base = prev.target
		}
	}
	// Gate members against the server-held status, not the optimistic
	// view. A coalesced move commits as a single base->target write, so
	// validating against the view would let two one-step drags collapse
	// into a two-step write the server rejects.
	if s.cfg.Role != RoleAdmin {
		if memberMoves[base] != target {
			return ErrInvalidMove
		}
	}
	if hasPrev && prev.state == statePending {
		// Coalesce: the stopped move's base carries over so a later
		// cancel rolls all the way back, not to an intermediate status.
		prev.timer.Stop()
	}

	s.view[ticketID] = target
	gen := s.nextGen
	s.nextGen++
	entry := &pendingCommit{base: base, target: target, state: statePending, gen: gen}
	entry.timer = time.AfterFunc(s.delay, func() { s.fire(ticketID, gen) })
	s.pending[ticketID] = entry
	return nil
}

// fire runs when a move's delay elapses.
func (s *Scheduler) fire(ticketID string, gen uint64) {
	s.mu.Lock()
	entry, ok := s.pending[ticketID]
	if !ok || entry.gen != gen || entry.state != statePending || s.closed {
		s.mu.Unlock()
		return
	}
	entry.state = stateCommitted
	base, target := entry.base, entry.target
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.cfg.Commit(s.ctx, ticketID, target)
		s.mu.Lock()
		cur, still := s.pending[ticketID]
		owns := still && cur.gen == gen
		if err != nil {
			if owns {
				delete(s.pending, ticketID)
				s.view[ticketID] = base
			} else if still && cur.base == target {
				// A newer move stacked on this write assuming it would
				// land. It did not, so the server still holds our base;
				// re-point the newer move there so its cancel restores a
				// status the server has actually seen.
				cur.base = base
			}
			s.mu.Unlock()
			if owns && s.cfg.OnRevert != nil {
				s.cfg.OnRevert(ticketID, base)
			}
			if s.cfg.OnError != nil {
				s.cfg.OnError(ticketID, err)
			}
			return
		}
		s.mu.Unlock()
		if s.cfg.OnCommitted != nil {
			s.cfg.OnCommitted(ticketID, target)
		}
	}()
}

// Cancel undoes a move. Before the delay elapses this stops the timer
// and rolls the view back with no network traffic at all. After the
// commit has gone out it issues a compensating commit restoring the
// original status.
func (s *Scheduler) Cancel(ticketID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	entry, ok := s.pending[ticketID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownTicket
	}
	delete(s.pending, ticketID)
	base := entry.base
	wasPending := entry.state == statePending
	if wasPending {
		entry.timer.Stop()
	}
	s.view[ticketID] = base
	if !wasPending {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if s.cfg.OnRevert != nil {
		s.cfg.OnRevert(ticketID, base)
	}
	if wasPending {
		return nil
	}

	go func() {
		defer s.wg.Done()
		if err := s.cfg.Commit(s.ctx, ticketID, base); err != nil {
			if s.cfg.OnError != nil {
				s.cfg.OnError(ticketID, err)
			}
			return
		}
		if s.cfg.OnCommitted != nil {
			s.cfg.OnCommitted(ticketID, base)
		}
	}()
	return nil
}

// ApplyRemote folds a server push into the local view. While a move is
// pending the local optimistic state wins and the push is dropped. A
// push matching a committed move's target is the echo of our own write
// and clears the bookkeeping entry.
func (s *Scheduler) ApplyRemote(ticketID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	entry, ok := s.pending[ticketID]
	if ok {
		if entry.state == statePending {
			return
		}
		if status == entry.target {
			delete(s.pending, ticketID)
			s.view[ticketID] = status
			return
		}
		// Someone else moved the ticket after our commit; their state
		// wins and our bookkeeping is stale.
		delete(s.pending, ticketID)
	}
	s.view[ticketID] = status
}

// Forget drops a ticket from the view, stopping any pending timer
// without committing. Used when a ticket is deleted remotely.
func (s *Scheduler) Forget(ticketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.pending[ticketID]; ok {
		if entry.state == statePending {
			entry.timer.Stop()
		}
		delete(s.pending, ticketID)
	}
	delete(s.view, ticketID)
}

// Pending reports whether a move is still waiting for its delay.
func (s *Scheduler) Pending(ticketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[ticketID]
	return ok && entry.state == statePending
}

// Close stops all timers, dropping uncommitted moves silently, and
// waits for in-flight commits to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, entry := range s.pending {
		if entry.state == statePending {
			entry.timer.Stop()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
