package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/shared/apperr"
)

func newFixture(t *testing.T) *documents.MemoryRepo {
	t.Helper()
	repo := documents.NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, documents.Document{ID: "doc", OwnerID: "owner", FileName: "a.pdf", StorageKey: "k", CreatedAt: time.Now()}))
	require.NoError(t, repo.AddSharedUser(ctx, "doc", "friend"))
	_, err := repo.SetShareTokenIfEmpty(ctx, "doc", "tok")
	require.NoError(t, err)
	return repo
}

func TestResolveByID(t *testing.T) {
	resolver := NewResolver(newFixture(t), false)
	ctx := context.Background()

	tests := []struct {
		name      string
		caller    string
		id        string
		op        Op
		wantClass Class
		wantKind  apperr.Kind
		wantErr   bool
	}{
		{name: "owner reads", caller: "owner", id: "doc", op: OpRead, wantClass: Owner},
		{name: "owner shares", caller: "owner", id: "doc", op: OpShare, wantClass: Owner},
		{name: "owner issues link", caller: "owner", id: "doc", op: OpIssueLink, wantClass: Owner},
		{name: "shared user reads", caller: "friend", id: "doc", op: OpRead, wantClass: SharedUser},
		{name: "shared user comments", caller: "friend", id: "doc", op: OpComment, wantClass: SharedUser},
		{name: "shared user cannot share", caller: "friend", id: "doc", op: OpShare, wantErr: true, wantKind: apperr.KindAuthorization},
		{name: "shared user cannot issue link", caller: "friend", id: "doc", op: OpIssueLink, wantErr: true, wantKind: apperr.KindAuthorization},
		{name: "stranger cannot read", caller: "stranger", id: "doc", op: OpRead, wantErr: true, wantKind: apperr.KindAuthorization},
		{name: "anonymous", caller: "", id: "doc", op: OpRead, wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "unknown id", caller: "owner", id: "missing", op: OpRead, wantErr: true, wantKind: apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := resolver.Resolve(ctx, Caller{UserID: tt.caller}, ByID(tt.id), tt.op)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, grant.Class)
			assert.Equal(t, "doc", grant.Document.ID)
		})
	}
}

func TestResolveByIDOpenReads(t *testing.T) {
	resolver := NewResolver(newFixture(t), true)
	ctx := context.Background()

	grant, err := resolver.Resolve(ctx, Caller{UserID: "stranger"}, ByID("doc"), OpComment)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, grant.Class)
	assert.False(t, grant.IsOwner())

	_, err = resolver.Resolve(ctx, Caller{UserID: "stranger"}, ByID("doc"), OpIssueLink)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestResolveByTokenIgnoresSession(t *testing.T) {
	resolver := NewResolver(newFixture(t), false)
	ctx := context.Background()

	for _, caller := range []Caller{{}, {UserID: "owner"}, {UserID: "stranger"}} {
		grant, err := resolver.Resolve(ctx, caller, ByToken("tok"), OpComment)
		require.NoError(t, err)
		assert.Equal(t, Guest, grant.Class)
	}

	_, err := resolver.Resolve(ctx, Caller{UserID: "owner"}, ByToken("tok"), OpShare)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestResolveByTokenNotFound(t *testing.T) {
	resolver := NewResolver(newFixture(t), false)
	ctx := context.Background()

	for _, token := range []string{"", "  ", "unknown", "doc"} {
		_, err := resolver.Resolve(ctx, Caller{}, ByToken(token), OpRead)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "token %q", token)
	}
}

func TestClassOrdering(t *testing.T) {
	assert.Less(t, int(Guest), int(SharedUser))
	assert.Less(t, int(SharedUser), int(Owner))
	assert.Equal(t, "shared_user", SharedUser.String())
	assert.Equal(t, "issue_link", OpIssueLink.String())
}

func TestRefIsToken(t *testing.T) {
	t.Parallel()

	assert.True(t, ByToken(" tok ").IsToken())
	assert.True(t, ByToken("").IsToken())
	assert.False(t, ByID("doc-1").IsToken())
	assert.False(t, Ref{}.IsToken())
}
