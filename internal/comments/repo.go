package comments

import "context"

// Repo is an append-only ledger of comments.
type Repo interface {
	// Append assigns ID (when empty), CreatedAt and Seq and stores c.
	Append(ctx context.Context, c Comment) (Comment, error)
	// ListByDocument returns comments ordered by creation time then sequence.
	ListByDocument(ctx context.Context, documentID string) ([]Comment, error)
}
