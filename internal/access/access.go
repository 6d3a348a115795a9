// Package access decides what a caller may do with a document. Documents
// are reached either by id, which needs an authenticated caller, or by share
// token, which is a capability and ignores any session identity.
package access

import (
	"context"
	"errors"
	"strings"

	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/shared/apperr"
)

// Class is the caller's standing relative to one document.
type Class int

const (
	Guest Class = iota
	Authenticated
	SharedUser
	Owner
)

func (c Class) String() string {
	switch c {
	case Owner:
		return "owner"
	case SharedUser:
		return "shared_user"
	case Authenticated:
		return "authenticated"
	default:
		return "guest"
	}
}

// Op is an action on a document.
type Op int

const (
	OpRead Op = iota
	OpComment
	OpShare
	OpIssueLink
)

func (o Op) String() string {
	switch o {
	case OpComment:
		return "comment"
	case OpShare:
		return "share"
	case OpIssueLink:
		return "issue_link"
	default:
		return "read"
	}
}

func (o Op) ownerOnly() bool {
	return o == OpShare || o == OpIssueLink
}

// Caller identifies who is asking. An empty UserID is unauthenticated.
type Caller struct {
	UserID string
}

// Ref addresses a document by id or by share token, never both.
type Ref struct {
	id    string
	token string
	byTok bool
}

// ByID addresses a document by its id; resolving it needs a caller.
func ByID(id string) Ref {
	return Ref{id: strings.TrimSpace(id)}
}

// ByToken addresses a document through its public share token.
func ByToken(token string) Ref {
	return Ref{token: strings.TrimSpace(token), byTok: true}
}

// IsToken reports whether r was built with ByToken.
func (r Ref) IsToken() bool { return r.byTok }

// Grant is a resolved document plus the class the caller holds on it.
type Grant struct {
	Document documents.Document
	Class    Class
}

// IsOwner reports whether the grant carries owner rights.
func (g Grant) IsOwner() bool { return g.Class == Owner }

// Store is the subset of documents.Repo the resolver reads.
type Store interface {
	GetByID(ctx context.Context, documentID string) (documents.Document, error)
	GetByShareToken(ctx context.Context, token string) (documents.Document, error)
	IsSharedWith(ctx context.Context, documentID, userID string) (bool, error)
}

// Resolver decides which class a caller holds on a document and whether an
// operation is allowed for it.
type Resolver struct {
	Docs Store
	// OpenReads lets any authenticated caller read and comment on a
	// document addressed by id.
	OpenReads bool
}

// NewResolver builds a resolver over docs. openReads grants read access by id
// to any authenticated caller.
func NewResolver(docs Store, openReads bool) *Resolver {
	return &Resolver{Docs: docs, OpenReads: openReads}
}

// Resolve loads the referenced document and checks op against the caller's
// class on it.
func (r *Resolver) Resolve(ctx context.Context, caller Caller, ref Ref, op Op) (Grant, error) {
	if ref.byTok {
		return r.resolveToken(ctx, ref.token, op)
	}
	return r.resolveID(ctx, caller, ref.id, op)
}

func (r *Resolver) resolveToken(ctx context.Context, token string, op Op) (Grant, error) {
	if token == "" {
		return Grant{}, apperr.NotFound("PDF not found")
	}
	doc, err := r.Docs.GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Grant{}, apperr.NotFound("PDF not found")
		}
		return Grant{}, err
	}
	if op.ownerOnly() {
		return Grant{}, apperr.Forbidden("share links cannot " + op.String())
	}
	return Grant{Document: doc, Class: Guest}, nil
}

func (r *Resolver) resolveID(ctx context.Context, caller Caller, id string, op Op) (Grant, error) {
	if caller.UserID == "" {
		return Grant{}, apperr.Unauthenticated("authentication required")
	}
	if id == "" {
		return Grant{}, apperr.NotFound("PDF not found")
	}
	doc, err := r.Docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Grant{}, apperr.NotFound("PDF not found")
		}
		return Grant{}, err
	}
	if doc.OwnerID == caller.UserID {
		return Grant{Document: doc, Class: Owner}, nil
	}
	if op.ownerOnly() {
		return Grant{}, apperr.Forbidden("only the owner may " + op.String())
	}

	shared, err := r.Docs.IsSharedWith(ctx, doc.ID, caller.UserID)
	if err != nil {
		return Grant{}, err
	}
	if shared {
		return Grant{Document: doc, Class: SharedUser}, nil
	}
	if r.OpenReads {
		return Grant{Document: doc, Class: Authenticated}, nil
	}
	return Grant{}, apperr.Forbidden("document not shared with caller")
}
