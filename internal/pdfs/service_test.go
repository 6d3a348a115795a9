package pdfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfshare-backend/internal/access"
	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/storage/object"
	"pdfshare-backend/internal/users"
)

type fakePresigner struct {
	fail    bool
	lastTTL time.Duration
}

func (f *fakePresigner) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if f.fail {
		return "", errors.New("storage down")
	}
	f.lastTTL = ttl
	return "https://put.example/" + key + "?ct=" + contentType, nil
}

func (f *fakePresigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.fail {
		return "", errors.New("storage down")
	}
	f.lastTTL = ttl
	return "https://get.example/" + key, nil
}

func (f *fakePresigner) ObjectURL(key string) string { return "https://bucket.example/" + key }
func (f *fakePresigner) Provider() string { return "fake" }

type fakeTokens struct{}

func (fakeTokens) Issue(userID string) (string, error) { return "token:" + userID, nil }

type fixture struct {
	svc     *Service
	docs    *documents.MemoryRepo
	users   *users.Service
	storage *fakePresigner
	alice   string
	bob     string
	carol   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	userSvc := users.NewService(users.NewMemoryRepo(), fakeTokens{})
	storage := &fakePresigner{}

	ids := make([]string, 0, 3)
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := userSvc.Register(ctx, name, name+"@example.com", "hunter22")
		require.NoError(t, err)
		u, err := userSvc.FindByEmail(ctx, name+"@example.com")
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	svc := NewService(docs, access.NewResolver(docs, false), storage, userSvc, Options{
		PublicBaseURL: "http://frontend.test/",
		UploadTTL:     5 * time.Minute,
		ViewTTL:       5 * time.Minute,
		PublicViewTTL: time.Hour,
	})
	return &fixture{svc: svc, docs: docs, users: userSvc, storage: storage, alice: ids[0], bob: ids[1], carol: ids[2]}
}

func (f *fixture) upload(t *testing.T, owner, name string) PDFResponse {
	t.Helper()
	ctx := context.Background()
	ticket, err := f.svc.PresignUpload(ctx, owner, name, "application/pdf")
	require.NoError(t, err)
	pdf, err := f.svc.Save(ctx, owner, name, ticket.StorageKey)
	require.NoError(t, err)
	return pdf
}

func TestPresignUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.PresignUpload(ctx, f.alice, "report.pdf", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.StorageKey, object.UserPrefix(f.alice)+"/"))
	assert.True(t, strings.HasSuffix(ticket.StorageKey, "-report.pdf"))
	assert.Equal(t, "https://bucket.example/"+ticket.StorageKey, ticket.S3URL)
	assert.Equal(t, int64(300), ticket.ExpiresInSeconds)
	assert.Contains(t, ticket.UploadURL, "ct=application/pdf")

	_, err = f.svc.PresignUpload(ctx, f.alice, "report.pdf", "image/png")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.PresignUpload(ctx, f.alice, "  ", "application/pdf")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.PresignUpload(ctx, f.alice, "../etc/passwd", "application/pdf")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.PresignUpload(ctx, "", "a.pdf", "application/pdf")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
}

func TestPresignFailureIsUpstream(t *testing.T) {
	f := newFixture(t)
	f.storage.fail = true

	_, err := f.svc.PresignUpload(context.Background(), f.alice, "a.pdf", "application/pdf")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestSaveAcceptsKeyOrObjectURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.svc.PresignUpload(ctx, f.alice, "a.pdf", "application/pdf")
	require.NoError(t, err)

	byKey, err := f.svc.Save(ctx, f.alice, "a.pdf", ticket.StorageKey)
	require.NoError(t, err)
	byURL, err := f.svc.Save(ctx, f.alice, "a.pdf", ticket.S3URL)
	require.NoError(t, err)

	assert.Equal(t, ticket.StorageKey, byKey.StorageKey)
	assert.Equal(t, ticket.StorageKey, byURL.StorageKey)
	assert.Equal(t, "created", byKey.State)
	assert.NotEqual(t, byKey.ID, byURL.ID)
}

func TestSaveRejectsForeignOrMissingKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.svc.PresignUpload(ctx, f.bob, "a.pdf", "application/pdf")
	require.NoError(t, err)

	tests := []struct {
		name, filename, locator string
	}{
		{"missing filename", "", ticket.StorageKey},
		{"missing key", "a.pdf", ""},
		{"another user's key", "a.pdf", ticket.StorageKey},
		{"traversal", "a.pdf", object.UserPrefix(f.alice) + "/../x"},
		{"bare prefix", "a.pdf", object.UserPrefix(f.alice) + "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Save(ctx, f.alice, tt.filename, tt.locator)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
	owned, err := f.docs.ListOwned(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestShareWithEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pdf := f.upload(t, f.alice, "a.pdf")
	owner := access.Caller{UserID: f.alice}

	shared, err := f.svc.ShareWithEmail(ctx, owner, pdf.ID, "  BOB@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", shared)
	_, err = f.svc.ShareWithEmail(ctx, owner, pdf.ID, "bob@example.com")
	require.NoError(t, err)

	listing, err := f.svc.List(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, listing.SharedPdfs, 1)
	assert.Empty(t, listing.OwnedPdfs)
	assert.Equal(t, pdf.ID, listing.SharedPdfs[0].ID)
	assert.Nil(t, listing.SharedPdfs[0].ShareToken)

	_, err = f.svc.ShareWithEmail(ctx, owner, pdf.ID, "alice@example.com")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	selfShared, err := f.docs.IsSharedWith(ctx, pdf.ID, f.alice)
	require.NoError(t, err)
	assert.False(t, selfShared)

	_, err = f.svc.ShareWithEmail(ctx, owner, pdf.ID, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.ShareWithEmail(ctx, owner, pdf.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.ShareWithEmail(ctx, owner, pdf.ID, "not-an-email")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// A shared user cannot re-share.
	_, err = f.svc.ShareWithEmail(ctx, access.Caller{UserID: f.bob}, pdf.ID, "carol@example.com")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestGenerateShareLinkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pdf := f.upload(t, f.alice, "a.pdf")
	owner := access.Caller{UserID: f.alice}

	first, err := f.svc.GenerateShareLink(ctx, owner, pdf.ID)
	require.NoError(t, err)
	second, err := f.svc.GenerateShareLink(ctx, owner, pdf.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "http://frontend.test/share/"+first.ShareToken, first.ShareLink)

	got, err := f.svc.Get(ctx, owner, pdf.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ShareToken)
	assert.Equal(t, first.ShareToken, *got.ShareToken)
	assert.Equal(t, "shared", got.State)

	_, err = f.svc.GenerateShareLink(ctx, access.Caller{UserID: f.bob}, pdf.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.svc.GenerateShareLink(ctx, owner, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGenerateShareLinkConcurrentConverges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pdf := f.upload(t, f.alice, "a.pdf")
	var counter atomic.Int64
	f.svc.newToken = func() string { return fmt.Sprintf("tok-%d", counter.Add(1)) }

	const workers = 50
	links := make([]ShareLink, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, err := f.svc.GenerateShareLink(ctx, access.Caller{UserID: f.alice}, pdf.ID)
			assert.NoError(t, err)
			links[i] = link
		}(i)
	}
	wg.Wait()

	for _, link := range links {
		assert.Equal(t, links[0].ShareToken, link.ShareToken)
	}
	doc, err := f.docs.GetByID(ctx, pdf.ID)
	require.NoError(t, err)
	assert.Equal(t, links[0].ShareToken, *doc.ShareToken)
}

func TestViewURLAndGetRespectAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pdf := f.upload(t, f.alice, "a.pdf")
	_, err := f.svc.ShareWithEmail(ctx, access.Caller{UserID: f.alice}, pdf.ID, "bob@example.com")
	require.NoError(t, err)

	view, err := f.svc.ViewURL(ctx, access.Caller{UserID: f.bob}, pdf.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", view.Filename)
	assert.Equal(t, f.alice, view.OwnerID)
	assert.Equal(t, 5*time.Minute, f.storage.lastTTL)

	_, err = f.svc.ViewURL(ctx, access.Caller{UserID: f.carol}, pdf.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.svc.Get(ctx, access.Caller{UserID: f.carol}, pdf.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.svc.ViewURL(ctx, access.Caller{}, pdf.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
}

func TestPublicView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pdf := f.upload(t, f.alice, "a.pdf")
	link, err := f.svc.GenerateShareLink(ctx, access.Caller{UserID: f.alice}, pdf.ID)
	require.NoError(t, err)

	view, err := f.svc.PublicView(ctx, link.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", view.Filename)
	assert.Equal(t, "https://get.example/"+pdf.StorageKey, view.URL)
	assert.Equal(t, time.Hour, f.storage.lastTTL)

	for _, token := range []string{"", "garbled", pdf.ID} {
		_, err := f.svc.PublicView(ctx, token)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "token %q", token)
	}
}

func TestListSeparatesOwnedAndShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.upload(t, f.alice, "first.pdf")
	f.svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	second := f.upload(t, f.alice, "second.pdf")

	listing, err := f.svc.List(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, listing.OwnedPdfs, 2)
	assert.Equal(t, second.ID, listing.OwnedPdfs[0].ID)
	assert.Equal(t, first.ID, listing.OwnedPdfs[1].ID)
	assert.NotNil(t, listing.SharedPdfs)
	assert.Empty(t, listing.SharedPdfs)
}
