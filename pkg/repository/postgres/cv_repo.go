package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvchat/pkg/cv"
)

// CVRepository implements cv.Store. Update locks the row so concurrent
// updates of the same document are serialized.
type CVRepository struct {
	pool *pgxpool.Pool
}

func NewCVRepository(pool *pgxpool.Pool) *CVRepository {
	return &CVRepository{pool: pool}
}

func (r *CVRepository) Get(ctx context.Context, conversationID uuid.UUID) (cv.Data, error) {
	var blob []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM cv_documents WHERE conversation_id = $1`, conversationID).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cv.New(), nil
		}
		return cv.Data{}, err
	}
	return cv.Decode(blob)
}

func (r *CVRepository) Update(ctx context.Context, conversationID uuid.UUID, fn func(*cv.Data) error) (cv.Data, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return cv.Data{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	empty, err := cv.Encode(cv.New())
	if err != nil {
		return cv.Data{}, err
	}
	// make sure a row exists so FOR UPDATE has something to lock
	if _, err := tx.Exec(ctx, `
INSERT INTO cv_documents (conversation_id, schema_version, data, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (conversation_id) DO NOTHING
`, conversationID, cv.SchemaVersion, empty, time.Now().UTC()); err != nil {
		return cv.Data{}, err
	}

	var blob []byte
	if err := tx.QueryRow(ctx, `
SELECT data FROM cv_documents WHERE conversation_id = $1 FOR UPDATE
`, conversationID).Scan(&blob); err != nil {
		return cv.Data{}, err
	}
	doc, err := cv.Decode(blob)
	if err != nil {
		return cv.Data{}, err
	}
	if err := fn(&doc); err != nil {
		return cv.Data{}, err
	}
	doc.UpdatedAt = time.Now().UTC()
	out, err := cv.Encode(doc)
	if err != nil {
		return cv.Data{}, err
	}
	if _, err := tx.Exec(ctx, `
UPDATE cv_documents SET schema_version = $2, data = $3, updated_at = $4
WHERE conversation_id = $1
`, conversationID, cv.SchemaVersion, out, doc.UpdatedAt); err != nil {
		return cv.Data{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return cv.Data{}, err
	}
	doc.Version = cv.SchemaVersion
	return doc, nil
}

func (r *CVRepository) Reset(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cv_documents WHERE conversation_id = $1`, conversationID)
	return err
}
