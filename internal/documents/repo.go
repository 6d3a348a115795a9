package documents

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Repo persists documents and their shared-with sets.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	GetByShareToken(ctx context.Context, token string) (Document, error)
	// ListOwned and ListSharedWith return newest first.
	ListOwned(ctx context.Context, ownerID string) ([]Document, error)
	ListSharedWith(ctx context.Context, userID string) ([]Document, error)
	IsSharedWith(ctx context.Context, documentID, userID string) (bool, error)
	// AddSharedUser is a no-op when the pair already exists.
	AddSharedUser(ctx context.Context, documentID, userID string) error
	// SetShareTokenIfEmpty stores candidate only when no token is set and
	// returns whichever token is persisted afterwards.
	SetShareTokenIfEmpty(ctx context.Context, documentID, candidate string) (string, error)
}
