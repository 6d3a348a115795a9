package comments

import (
	"context"
	"strings"

	"pdfshare-backend/internal/access"
	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/metrics"
	"pdfshare-backend/internal/shared/telemetry"
)

// NameLookup resolves display names for user ids.
type NameLookup interface {
	Names(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Service appends to and reads the comment ledger. Every write resolves the
// document first; nothing is stored when validation or access fails.
type Service struct {
	Repo   Repo
	Access *access.Resolver
	Names  NameLookup
}

// NewService wires the comment ledger to the access resolver and a name lookup.
func NewService(repo Repo, resolver *access.Resolver, names NameLookup) *Service {
	return &Service{Repo: repo, Access: resolver, Names: names}
}

// AppendAsUser records a comment attributed to the authenticated caller on a
// document addressed by id.
func (s *Service) AppendAsUser(ctx context.Context, caller access.Caller, documentID, text string, page *int) (Comment, error) {
	if strings.TrimSpace(documentID) == "" {
		return Comment{}, apperr.Validation("pdfId is required")
	}
	return s.append(ctx, caller, access.ByID(documentID), ByUser(caller.UserID), text, page)
}

// AppendAsGuest records a comment under a self-supplied guest name on a
// document addressed by share token.
func (s *Service) AppendAsGuest(ctx context.Context, token, guestName, text string, page *int) (Comment, error) {
	return s.append(ctx, access.Caller{}, access.ByToken(token), ByGuest(guestName), text, page)
}

// ListByID returns a document's comments in creation order.
func (s *Service) ListByID(ctx context.Context, caller access.Caller, documentID string) ([]Comment, error) {
	return s.list(ctx, caller, access.ByID(documentID))
}

// ListByToken returns a shared document's comments in creation order.
func (s *Service) ListByToken(ctx context.Context, token string) ([]Comment, error) {
	return s.list(ctx, access.Caller{}, access.ByToken(token))
}

func (s *Service) append(ctx context.Context, caller access.Caller, ref access.Ref, by Attribution, text string, page *int) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, apperr.Validation("comment text is required")
	}
	if ref.IsToken() {
		if err := by.Validate(); err != nil {
			return Comment{}, err
		}
	}
	pageNumber, err := normalizePage(page)
	if err != nil {
		return Comment{}, err
	}

	grant, err := s.Access.Resolve(ctx, caller, ref, access.OpComment)
	if err != nil {
		return Comment{}, err
	}
	if err := by.Validate(); err != nil {
		return Comment{}, err
	}

	c := Comment{
		DocumentID: grant.Document.ID,
		PageNumber: pageNumber,
		Text:       text,
	}
	by.apply(&c)

	saved, err := s.Repo.Append(ctx, c)
	if err != nil {
		return Comment{}, err
	}
	metrics.IncCommentAppended(by.IsGuest())
	telemetry.Info("comment.appended", map[string]any{
		"document_id": saved.DocumentID,
		"comment_id":  saved.ID,
		"guest":       by.IsGuest(),
		"class":       grant.Class.String(),
	})

	if saved.UserID != nil && saved.AuthorName == "" {
		list := []Comment{saved}
		s.fillNames(ctx, list)
		saved = list[0]
	}
	return saved, nil
}

func (s *Service) list(ctx context.Context, caller access.Caller, ref access.Ref) ([]Comment, error) {
	grant, err := s.Access.Resolve(ctx, caller, ref, access.OpRead)
	if err != nil {
		return nil, err
	}
	list, err := s.Repo.ListByDocument(ctx, grant.Document.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Comment{}
	}
	s.fillNames(ctx, list)
	return list, nil
}

// fillNames sets AuthorName on user comments the store did not join a name
// for. Lookup failures leave names empty.
func (s *Service) fillNames(ctx context.Context, list []Comment) {
	if s.Names == nil {
		return
	}
	var missing []string
	for _, c := range list {
		if c.UserID != nil && c.AuthorName == "" {
			missing = append(missing, *c.UserID)
		}
	}
	if len(missing) == 0 {
		return
	}
	names, err := s.Names.Names(ctx, missing)
	if err != nil {
		telemetry.Warn("comment.names_failed", map[string]any{"error": err})
		return
	}
	for i := range list {
		if list[i].UserID != nil && list[i].AuthorName == "" {
			list[i].AuthorName = names[*list[i].UserID]
		}
	}
}
