package pdfs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfshare-backend/internal/access"
	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/metrics"
	"pdfshare-backend/internal/shared/storage/object"
	"pdfshare-backend/internal/shared/telemetry"
	"pdfshare-backend/internal/shared/util"
	"pdfshare-backend/internal/users"
)

const pdfContentType = "application/pdf"

// UserLookup resolves share targets by email.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// Options carries URL lifetimes and the public link base.
type Options struct {
	PublicBaseURL string
	UploadTTL     time.Duration
	ViewTTL       time.Duration
	PublicViewTTL time.Duration
}

// Service implements the document lifecycle: upload, registration, listing,
// sharing and public links.
type Service struct {
	Docs    documents.Repo
	Access  *access.Resolver
	Storage object.Presigner
	Users   UserLookup
	Opts    Options

	now      func() time.Time
	newToken func() string
}

// NewService builds the document lifecycle service. Non-positive TTLs in opts
// fall back to defaults.
func NewService(docs documents.Repo, resolver *access.Resolver, storage object.Presigner, lookup UserLookup, opts Options) *Service {
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = 5 * time.Minute
	}
	if opts.ViewTTL <= 0 {
		opts.ViewTTL = 5 * time.Minute
	}
	if opts.PublicViewTTL <= 0 {
		opts.PublicViewTTL = time.Hour
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Service{
		Docs:     docs,
		Access:   resolver,
		Storage:  storage,
		Users:    lookup,
		Opts:     opts,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// PresignUpload mints a write URL for a fresh key in the caller's namespace.
func (s *Service) PresignUpload(ctx context.Context, userID, filename, contentType string) (UploadTicket, error) {
	if userID == "" {
		return UploadTicket{}, apperr.Unauthenticated("authentication required")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return UploadTicket{}, apperr.Validation("filename is required")
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = pdfContentType
	}
	if !strings.EqualFold(contentType, pdfContentType) {
		return UploadTicket{}, apperr.Validation("only application/pdf uploads are accepted")
	}

	key, err := object.NewKey(userID, filename, s.now())
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return UploadTicket{}, apperr.Validation("invalid filename")
		}
		return UploadTicket{}, err
	}

	start := time.Now()
	uploadURL, err := s.Storage.PresignPut(ctx, key, pdfContentType, s.Opts.UploadTTL)
	metrics.ObservePresignDurationMs(metrics.Since(start))
	if err != nil {
		return UploadTicket{}, s.presignFailed("upload", err)
	}

	return UploadTicket{
		UploadURL:        uploadURL,
		StorageKey:       key,
		S3URL:            s.Storage.ObjectURL(key),
		ExpiresInSeconds: int64(s.Opts.UploadTTL / time.Second),
	}, nil
}

// Save registers a document for an object the caller uploaded. The object is
// not checked for existence; the key must lie in the caller's namespace.
func (s *Service) Save(ctx context.Context, userID, filename, locator string) (PDFResponse, error) {
	if userID == "" {
		return PDFResponse{}, apperr.Unauthenticated("authentication required")
	}
	filename = strings.TrimSpace(filename)
	locator = strings.TrimSpace(locator)
	if filename == "" || locator == "" {
		return PDFResponse{}, apperr.Validation("filename and storageKey are required")
	}
	key, err := object.KeyFromLocator(locator)
	if err != nil || !object.OwnedBy(key, userID) {
		return PDFResponse{}, apperr.Validation("storageKey is not an upload of the caller")
	}

	doc := documents.Document{
		ID:         uuid.NewString(),
		OwnerID:    userID,
		FileName:   filename,
		StorageKey: key,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Docs.Create(ctx, doc); err != nil {
		return PDFResponse{}, err
	}
	metrics.IncDocumentSaved()
	telemetry.Info("document.saved", map[string]any{
		"document_id": doc.ID,
		"user_id":     userID,
		"provider":    s.Storage.Provider(),
	})
	return toResponse(doc, s.Storage.ObjectURL(doc.StorageKey), true), nil
}

// List returns the caller's owned and shared documents, newest first.
func (s *Service) List(ctx context.Context, userID string) (Listing, error) {
	if userID == "" {
		return Listing{}, apperr.Unauthenticated("authentication required")
	}
	owned, err := s.Docs.ListOwned(ctx, userID)
	if err != nil {
		return Listing{}, err
	}
	shared, err := s.Docs.ListSharedWith(ctx, userID)
	if err != nil {
		return Listing{}, err
	}

	out := Listing{
		OwnedPdfs:  make([]PDFResponse, 0, len(owned)),
		SharedPdfs: make([]PDFResponse, 0, len(shared)),
	}
	for _, doc := range owned {
		out.OwnedPdfs = append(out.OwnedPdfs, toResponse(doc, s.Storage.ObjectURL(doc.StorageKey), true))
	}
	for _, doc := range shared {
		out.SharedPdfs = append(out.SharedPdfs, toResponse(doc, s.Storage.ObjectURL(doc.StorageKey), false))
	}
	return out, nil
}

// Get returns document metadata.
func (s *Service) Get(ctx context.Context, caller access.Caller, documentID string) (PDFResponse, error) {
	grant, err := s.Access.Resolve(ctx, caller, access.ByID(documentID), access.OpRead)
	if err != nil {
		return PDFResponse{}, err
	}
	doc := grant.Document
	return toResponse(doc, s.Storage.ObjectURL(doc.StorageKey), grant.IsOwner()), nil
}

// ViewURL mints a short-lived read URL for a document addressed by id.
func (s *Service) ViewURL(ctx context.Context, caller access.Caller, documentID string) (ViewURL, error) {
	grant, err := s.Access.Resolve(ctx, caller, access.ByID(documentID), access.OpRead)
	if err != nil {
		return ViewURL{}, err
	}
	url, err := s.presignGet(ctx, grant.Document.StorageKey, s.Opts.ViewTTL)
	if err != nil {
		return ViewURL{}, err
	}
	return ViewURL{URL: url, Filename: grant.Document.FileName, OwnerID: grant.Document.OwnerID}, nil
}

// ShareWithEmail adds the user owning email to the document's shared-with
// set and returns the normalized address. Repeating the call is a no-op.
func (s *Service) ShareWithEmail(ctx context.Context, caller access.Caller, documentID, email string) (string, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	if err := users.ValidateEmail(email); err != nil {
		return "", err
	}

	grant, err := s.Access.Resolve(ctx, caller, access.ByID(documentID), access.OpShare)
	if err != nil {
		return "", err
	}
	target, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.NotFound("user with that email not found")
		}
		return "", err
	}
	if target.ID == grant.Document.OwnerID {
		return "", apperr.Validation("this user already owns the PDF")
	}
	if err := s.Docs.AddSharedUser(ctx, grant.Document.ID, target.ID); err != nil {
		return "", err
	}
	metrics.IncDocumentShared()
	telemetry.Info("document.shared", map[string]any{
		"document_id": grant.Document.ID,
		"target_id":   target.ID,
	})
	return email, nil
}

// GenerateShareLink returns the document's share link, minting the token on
// first use. Concurrent first calls converge on one persisted token.
func (s *Service) GenerateShareLink(ctx context.Context, caller access.Caller, documentID string) (ShareLink, error) {
	grant, err := s.Access.Resolve(ctx, caller, access.ByID(documentID), access.OpIssueLink)
	if err != nil {
		return ShareLink{}, err
	}

	doc := grant.Document
	if doc.ShareToken != nil && *doc.ShareToken != "" {
		return s.link(*doc.ShareToken), nil
	}

	candidate := s.newToken()
	token, err := s.Docs.SetShareTokenIfEmpty(ctx, doc.ID, candidate)
	if err != nil {
		return ShareLink{}, err
	}
	if token == candidate {
		metrics.IncShareLinkIssued()
		telemetry.Info("document.share_link_issued", map[string]any{"document_id": doc.ID})
	}
	return s.link(token), nil
}

// PublicView resolves a share token to a read URL.
func (s *Service) PublicView(ctx context.Context, token string) (PublicView, error) {
	grant, err := s.Access.Resolve(ctx, access.Caller{}, access.ByToken(token), access.OpRead)
	if err != nil {
		return PublicView{}, err
	}
	url, err := s.presignGet(ctx, grant.Document.StorageKey, s.Opts.PublicViewTTL)
	if err != nil {
		return PublicView{}, err
	}
	return PublicView{URL: url, Filename: grant.Document.FileName}, nil
}

func (s *Service) link(token string) ShareLink {
	return ShareLink{
		ShareLink:  s.Opts.PublicBaseURL + "/share/" + token,
		ShareToken: token,
	}
}

func (s *Service) presignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := s.Storage.PresignGet(ctx, key, ttl)
	metrics.ObservePresignDurationMs(metrics.Since(start))
	if err != nil {
		return "", s.presignFailed("view", err)
	}
	return url, nil
}

func (s *Service) presignFailed(kind string, err error) error {
	metrics.IncPresignFailure()
	telemetry.Error("storage.presign_failed", map[string]any{
		"kind":     kind,
		"provider": s.Storage.Provider(),
		"error":    err,
	})
	return apperr.Upstream("failed to sign url", err)
}
