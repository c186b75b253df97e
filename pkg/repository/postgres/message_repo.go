package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvchat/pkg/chat"
)

// MessageRepository implements chat.Store. Each message is kept as a JSONB
// body tagged with the schema version it was written with; seq preserves
// append order.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Append stores the batch in one transaction: either every message lands or none.
func (r *MessageRepository) Append(ctx context.Context, conversationID uuid.UUID, msgs ...chat.Message) ([]chat.Message, error) {
	now := time.Now()
	stored := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		stored = append(stored, chat.Prepare(m, now))
	}
	if len(stored) == 0 {
		return stored, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, m := range stored {
		body, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode message: %w", err)
		}
		batch.Queue(`
INSERT INTO messages (conversation_id, id, schema_version, role, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, conversationID, m.ID, chat.SchemaVersion, string(m.Role), body, m.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *MessageRepository) List(ctx context.Context, conversationID uuid.UUID) ([]chat.Message, error) {
	return listMessages(ctx, r.pool, conversationID, "")
}

func listMessages(ctx context.Context, q querier, conversationID uuid.UUID, lock string) ([]chat.Message, error) {
	rows, err := q.Query(ctx, `
SELECT schema_version, body FROM messages
WHERE conversation_id = $1
ORDER BY seq
`+lock, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []chat.Message
	for rows.Next() {
		var version int
		var body []byte
		if err := rows.Scan(&version, &body); err != nil {
			return nil, err
		}
		m, err := decodeMessage(version, body)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// Delete removes the message together with its call/result group (see
// chat.DeletionGroup) in one transaction.
func (r *MessageRepository) Delete(ctx context.Context, conversationID uuid.UUID, messageID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	log, err := listMessages(ctx, tx, conversationID, "FOR UPDATE")
	if err != nil {
		return err
	}
	ids, err := chat.DeletionGroup(log, messageID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1 AND id = ANY($2)`, conversationID, ids); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *MessageRepository) Clear(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	return err
}

func decodeMessage(version int, body []byte) (chat.Message, error) {
	if version != chat.SchemaVersion {
		return chat.Message{}, fmt.Errorf("%w: %d", chat.ErrUnsupportedVersion, version)
	}
	var m chat.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}
