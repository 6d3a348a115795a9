package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	docs    map[string]Document
	byToken map[string]string
	shares  map[string]map[string]struct{} // documentID -> userIDs
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:    make(map[string]Document),
		byToken: make(map[string]string),
		shares:  make(map[string]map[string]struct{}),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDoc(doc)
	if doc.ShareToken != nil {
		r.byToken[*doc.ShareToken] = doc.ID
	}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (r *MemoryRepo) GetByShareToken(ctx context.Context, token string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[token]
	if !ok || token == "" {
		return Document{}, ErrNotFound
	}
	return cloneDoc(r.docs[id]), nil
}

func (r *MemoryRepo) ListOwned(ctx context.Context, ownerID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, cloneDoc(doc))
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ListSharedWith(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for docID, users := range r.shares {
		if _, ok := users[userID]; ok {
			out = append(out, cloneDoc(r.docs[docID]))
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) IsSharedWith(ctx context.Context, documentID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shares[documentID][userID]
	return ok, nil
}

func (r *MemoryRepo) AddSharedUser(ctx context.Context, documentID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[documentID]; !ok {
		return ErrNotFound
	}
	users, ok := r.shares[documentID]
	if !ok {
		users = make(map[string]struct{})
		r.shares[documentID] = users
	}
	users[userID] = struct{}{}
	return nil
}

func (r *MemoryRepo) SetShareTokenIfEmpty(ctx context.Context, documentID, candidate string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return "", ErrNotFound
	}
	if doc.ShareToken != nil {
		return *doc.ShareToken, nil
	}
	token := candidate
	doc.ShareToken = &token
	r.docs[documentID] = doc
	r.byToken[token] = documentID
	return token, nil
}

func cloneDoc(doc Document) Document {
	if doc.ShareToken != nil {
		token := *doc.ShareToken
		doc.ShareToken = &token
	}
	return doc
}

func sortNewestFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

var _ Repo = (*MemoryRepo)(nil)
