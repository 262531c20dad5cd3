package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/repository"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

const authUIDKey = "realtime_auth_uid"

// envelope is the wire format for pushed events.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsSession adapts a websocket connection to the Session interface.
// Writes are serialized: Send may be called from any goroutine.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(envelope{Event: event, Data: payload})
}

func (s *wsSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.Close()
}

// Handler owns the realtime channel: bearer handshake, session lifecycle,
// and presence broadcasts.
type Handler struct {
	tokens       *auth.TokenManager
	users        repository.UserRepository
	registry     *Registry
	emitter      *Emitter
	logger       *zap.Logger
	pingInterval time.Duration
}

// NewHandler constructs the realtime handler.
func NewHandler(tokens *auth.TokenManager, users repository.UserRepository, registry *Registry, emitter *Emitter, logger *zap.Logger, pingInterval time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	return &Handler{
		tokens:       tokens,
		users:        users,
		registry:     registry,
		emitter:      emitter,
		logger:       logger,
		pingInterval: pingInterval,
	}
}

// Upgrade authenticates the handshake before allowing the websocket
// upgrade. No anonymous realtime sessions: a missing or invalid bearer
// credential rejects the connection.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		header := c.Get("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}
	if token == "" {
		return apperrors.NewUnauthorized("missing realtime credential")
	}

	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid realtime credential")
	}
	// Realtime sessions are keyed on the auth UID, so resolve the
	// identity by the same key. A token for a since-deleted user is
	// rejected; a storage failure is not the client's fault.
	user, err := h.users.GetByAuthUID(c.Context(), claims.AuthUID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("unknown realtime identity")
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(authUIDKey, user.AuthUID)
	return c.Next()
}

// Serve returns the websocket connection handler.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	authUID, _ := conn.Locals(authUIDKey).(string)
	if authUID == "" {
		_ = conn.Close()
		return
	}

	session := &wsSession{conn: conn}
	if prev := h.registry.Register(authUID, session); prev != nil {
		// Last-connect-wins: drop the replaced session's transport.
		if ws, ok := prev.(*wsSession); ok {
			ws.close()
		}
	}
	h.logger.Info("realtime session connected", zap.String("identity", authUID))
	h.emitter.EmitToAll("user:online", fiber.Map{"userId": authUID})

	done := make(chan struct{})
	go h.pingLoop(session, done)

	// Server-to-client channel only; inbound frames are drained to detect
	// disconnect and answer control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)

	if h.registry.UnregisterSession(authUID, session) {
		h.emitter.EmitToAll("user:offline", fiber.Map{"userId": authUID})
	}
	session.close()
	h.logger.Info("realtime session disconnected", zap.String("identity", authUID))
}

func (h *Handler) pingLoop(session *wsSession, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			session.mu.Lock()
			err := session.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			session.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
