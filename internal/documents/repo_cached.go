package documents

import (
	"context"

	"pdfshare-backend/internal/shared/cache"
)

// CachedRepo serves share-token lookups from a cache before the store.
// Tokens never change once set, so entries are never invalidated.
type CachedRepo struct {
	Repo
	Tokens cache.ShareTokens
}

// NewCachedRepo wraps repo with a share-token lookaside cache; a nil cache
// disables caching.
func NewCachedRepo(repo Repo, tokens cache.ShareTokens) *CachedRepo {
	if tokens == nil {
		tokens = cache.Noop{}
	}
	return &CachedRepo{Repo: repo, Tokens: tokens}
}

func (r *CachedRepo) GetByShareToken(ctx context.Context, token string) (Document, error) {
	if token == "" {
		return Document{}, ErrNotFound
	}
	if id, ok := r.Tokens.Get(ctx, token); ok {
		doc, err := r.Repo.GetByID(ctx, id)
		if err == nil && doc.ShareToken != nil && *doc.ShareToken == token {
			return doc, nil
		}
	}
	doc, err := r.Repo.GetByShareToken(ctx, token)
	if err != nil {
		return Document{}, err
	}
	r.Tokens.Set(ctx, token, doc.ID)
	return doc, nil
}

func (r *CachedRepo) SetShareTokenIfEmpty(ctx context.Context, documentID, candidate string) (string, error) {
	token, err := r.Repo.SetShareTokenIfEmpty(ctx, documentID, candidate)
	if err != nil {
		return "", err
	}
	r.Tokens.Set(ctx, token, documentID)
	return token, nil
}

var _ Repo = (*CachedRepo)(nil)
