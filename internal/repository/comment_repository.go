package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvy22/taskboard/internal/domain"
)

// CommentRepository encapsulates comment persistence.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	Delete(ctx context.Context, id string) error
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository instantiates repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, author_id, content, reply_to)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.ReplyTo,
	).Scan(&comment.ID, &comment.CreatedAt)
}

const commentSelect = `
        SELECT c.id, c.ticket_id, c.author_id, c.content, c.reply_to, c.created_at,
               u.id, u.name, u.email,
               p.id, p.content, p.author_id, pu.name
        FROM comments c
        JOIN users u ON u.id = c.author_id
        LEFT JOIN comments p ON p.id = c.reply_to
        LEFT JOIN users pu ON pu.id = p.author_id`

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &comments[0], nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.ticket_id=$1 ORDER BY c.created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE ticket_id=$1`, ticketID)
	return err
}

func scanComments(rows pgx.Rows) ([]domain.Comment, error) {
	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		var author domain.UserRef
		var repliedID, repliedContent, repliedAuthorID, repliedAuthorName *string
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Content,
			&comment.ReplyTo,
			&comment.CreatedAt,
			&author.ID,
			&author.Name,
			&author.Email,
			&repliedID,
			&repliedContent,
			&repliedAuthorID,
			&repliedAuthorName,
		); err != nil {
			return nil, err
		}
		comment.Author = &author
		if repliedID != nil {
			replied := domain.Comment{ID: *repliedID}
			if repliedContent != nil {
				replied.Content = *repliedContent
			}
			if repliedAuthorID != nil {
				replied.AuthorID = *repliedAuthorID
				name := ""
				if repliedAuthorName != nil {
					name = *repliedAuthorName
				}
				replied.Author = &domain.UserRef{ID: *repliedAuthorID, Name: name}
			}
			comment.Replied = &replied
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
