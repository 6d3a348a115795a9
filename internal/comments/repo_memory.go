package comments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory implementation of Repo. Appends are serialized
// so per-document slices are already in creation order.
type MemoryRepo struct {
	mu    sync.RWMutex
	seq   int64
	byDoc map[string][]Comment
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byDoc: make(map[string][]Comment),
		now:   time.Now,
	}
}

func (r *MemoryRepo) Append(ctx context.Context, c Comment) (Comment, error) {
	if err := ctx.Err(); err != nil {
		return Comment{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.Seq = r.seq
	c.CreatedAt = r.now().UTC()
	if list := r.byDoc[c.DocumentID]; len(list) > 0 {
		// Keep creation times non-decreasing under clock skew.
		if last := list[len(list)-1].CreatedAt; c.CreatedAt.Before(last) {
			c.CreatedAt = last
		}
	}
	r.byDoc[c.DocumentID] = append(r.byDoc[c.DocumentID], c)
	return c, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	list := r.byDoc[documentID]
	out := make([]Comment, len(list))
	copy(out, list)
	r.mu.RUnlock()
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
