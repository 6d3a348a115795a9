package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sqlx.DB
}

type documentRow struct {
	ID         string         `db:"id"`
	OwnerID    string         `db:"owner_id"`
	FileName   string         `db:"file_name"`
	StorageKey string         `db:"storage_key"`
	ShareToken sql.NullString `db:"share_token"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (row documentRow) toDocument() Document {
	doc := Document{
		ID:         row.ID,
		OwnerID:    row.OwnerID,
		FileName:   row.FileName,
		StorageKey: row.StorageKey,
		CreatedAt:  row.CreatedAt,
	}
	if row.ShareToken.Valid {
		token := row.ShareToken.String
		doc.ShareToken = &token
	}
	return doc
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, owner_id, file_name, storage_key, share_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	var token sql.NullString
	if doc.ShareToken != nil {
		token = sql.NullString{String: *doc.ShareToken, Valid: true}
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.StorageKey,
		token,
		createdAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, owner_id, file_name, storage_key, share_token, created_at
FROM documents
WHERE id = $1`
	return r.get(ctx, query, documentID)
}

func (r *PGRepo) GetByShareToken(ctx context.Context, token string) (Document, error) {
	if token == "" {
		return Document{}, ErrNotFound
	}
	const query = `
SELECT id, owner_id, file_name, storage_key, share_token, created_at
FROM documents
WHERE share_token = $1`
	return r.get(ctx, query, token)
}

func (r *PGRepo) ListOwned(ctx context.Context, ownerID string) ([]Document, error) {
	const query = `
SELECT id, owner_id, file_name, storage_key, share_token, created_at
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, ownerID)
}

func (r *PGRepo) ListSharedWith(ctx context.Context, userID string) ([]Document, error) {
	const query = `
SELECT d.id, d.owner_id, d.file_name, d.storage_key, d.share_token, d.created_at
FROM documents d
JOIN document_shares s ON s.document_id = d.id
WHERE s.user_id = $1
ORDER BY d.created_at DESC, d.id DESC`
	return r.list(ctx, query, userID)
}

func (r *PGRepo) IsSharedWith(ctx context.Context, documentID, userID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM document_shares WHERE document_id = $1 AND user_id = $2
)`
	var shared bool
	if err := r.DB.GetContext(ctx, &shared, query, documentID, userID); err != nil {
		return false, err
	}
	return shared, nil
}

func (r *PGRepo) AddSharedUser(ctx context.Context, documentID, userID string) error {
	const query = `
INSERT INTO document_shares (document_id, user_id)
VALUES ($1, $2)
ON CONFLICT (document_id, user_id) DO NOTHING`
	_, err := r.DB.ExecContext(ctx, query, documentID, userID)
	return err
}

// SetShareTokenIfEmpty is a compare-and-set on the NULL token. Losers of a
// concurrent race read back the winner's token.
func (r *PGRepo) SetShareTokenIfEmpty(ctx context.Context, documentID, candidate string) (string, error) {
	const update = `
UPDATE documents
SET share_token = $2
WHERE id = $1 AND share_token IS NULL`
	const read = `
SELECT share_token
FROM documents
WHERE id = $1`

	if _, err := r.DB.ExecContext(ctx, update, documentID, candidate); err != nil {
		return "", err
	}
	var token sql.NullString
	if err := r.DB.GetContext(ctx, &token, read, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !token.Valid {
		return "", errors.New("share token not persisted")
	}
	return token.String, nil
}

func (r *PGRepo) get(ctx context.Context, query string, arg string) (Document, error) {
	var row documentRow
	if err := r.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return row.toDocument(), nil
}

func (r *PGRepo) list(ctx context.Context, query string, arg string) ([]Document, error) {
	var rows []documentRow
	if err := r.DB.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDocument())
	}
	return docs, nil
}

var _ Repo = (*PGRepo)(nil)
