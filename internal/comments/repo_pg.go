package comments

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PGRepo implements Repo using Postgres. Ordering ties on created_at are
// broken by the BIGSERIAL seq column.
type PGRepo struct {
	DB *sqlx.DB
}

type commentRow struct {
	ID         string         `db:"id"`
	Seq        int64          `db:"seq"`
	DocumentID string         `db:"document_id"`
	PageNumber int            `db:"page_number"`
	Body       string         `db:"body"`
	UserID     sql.NullString `db:"user_id"`
	GuestName  sql.NullString `db:"guest_name"`
	AuthorName sql.NullString `db:"author_name"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (row commentRow) toComment() Comment {
	c := Comment{
		ID:         row.ID,
		Seq:        row.Seq,
		DocumentID: row.DocumentID,
		PageNumber: row.PageNumber,
		Text:       row.Body,
		AuthorName: row.AuthorName.String,
		CreatedAt:  row.CreatedAt,
	}
	if row.UserID.Valid {
		id := row.UserID.String
		c.UserID = &id
	}
	if row.GuestName.Valid {
		name := row.GuestName.String
		c.GuestName = &name
	}
	return c
}

func (r *PGRepo) Append(ctx context.Context, c Comment) (Comment, error) {
	const query = `
INSERT INTO comments (id, document_id, page_number, body, user_id, guest_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING seq, created_at`

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var userID, guestName sql.NullString
	if c.UserID != nil {
		userID = sql.NullString{String: *c.UserID, Valid: true}
	}
	if c.GuestName != nil {
		guestName = sql.NullString{String: *c.GuestName, Valid: true}
	}

	row := r.DB.QueryRowxContext(ctx, query,
		c.ID,
		c.DocumentID,
		c.PageNumber,
		c.Text,
		userID,
		guestName,
	)
	if err := row.Scan(&c.Seq, &c.CreatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Comment, error) {
	const query = `
SELECT c.id, c.seq, c.document_id, c.page_number, c.body, c.user_id, c.guest_name,
       u.name AS author_name, c.created_at
FROM comments c
LEFT JOIN users u ON u.id = c.user_id
WHERE c.document_id = $1
ORDER BY c.created_at ASC, c.seq ASC`

	var rows []commentRow
	if err := r.DB.SelectContext(ctx, &rows, query, documentID); err != nil {
		return nil, err
	}
	out := make([]Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toComment())
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
