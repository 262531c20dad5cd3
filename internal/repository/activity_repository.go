package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvy22/taskboard/internal/domain"
)

// ActivityRepository stores append-only audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Activity, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (ticket_id, action, old_value, new_value, performed_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.TicketID,
		activity.Action,
		activity.OldValue,
		activity.NewValue,
		activity.PerformedBy,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT a.id, a.ticket_id, a.action, a.old_value, a.new_value, a.performed_by, a.created_at,
               u.id, u.name, u.email
        FROM activities a
        JOIN users u ON u.id = a.performed_by
        WHERE a.ticket_id=$1 ORDER BY a.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		var performer domain.UserRef
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.Action,
			&activity.OldValue,
			&activity.NewValue,
			&activity.PerformedBy,
			&activity.CreatedAt,
			&performer.ID,
			&performer.Name,
			&performer.Email,
		); err != nil {
			return nil, err
		}
		activity.Performer = &performer
		result = append(result, activity)
	}
	return result, rows.Err()
}

func (r *activityRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE ticket_id=$1`, ticketID)
	return err
}
