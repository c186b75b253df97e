package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvchat/pkg/chat"
)

// ConversationRepository хранит заголовки разговоров.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO conversations (id, owner_id, title, model, created_at)
VALUES ($1, $2, $3, $4, $5)
`, c.ID, c.OwnerID, c.Title, c.Model, c.CreatedAt)
	if err != nil {
		return chat.Conversation{}, err
	}
	return c, nil
}

func (r *ConversationRepository) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (chat.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, owner_id, title, model, created_at
FROM conversations WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Conversation{}, chat.ErrNotFound
	}
	return c, err
}

func (r *ConversationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]chat.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, title, model, created_at
FROM conversations WHERE owner_id = $3
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func scanConversation(row pgx.Row) (chat.Conversation, error) {
	var c chat.Conversation
	var created time.Time
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Model, &created); err != nil {
		return chat.Conversation{}, err
	}
	c.CreatedAt = created.UTC()
	return c, nil
}
