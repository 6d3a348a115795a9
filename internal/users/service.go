package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/auth"
	"pdfshare-backend/internal/shared/telemetry"
)

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Service registers and authenticates users.
type Service struct {
	Repo   Repo
	Tokens TokenIssuer
	Now    func() time.Time
}

// NewService builds a Service that issues bearer tokens with tokens.
func NewService(repo Repo, tokens TokenIssuer) *Service {
	return &Service{Repo: repo, Tokens: tokens, Now: time.Now}
}

// Register creates an account and returns a bearer token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return "", apperr.Validation("name, email and password are required")
	}
	if err := ValidateEmail(email); err != nil {
		return "", err
	}
	if len(password) < auth.MinPasswordLength {
		return "", apperr.Validation(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", apperr.Internal("failed to hash password", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return "", apperr.Validation("user already exists")
		}
		return "", err
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID})
	return s.issue(user.ID)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.Validation("email and password are required")
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", apperr.Unauthenticated("invalid credentials")
		}
		return "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", apperr.Unauthenticated("invalid credentials")
	}
	return s.issue(user.ID)
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, userID string) (Profile, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, apperr.NotFound("user not found")
		}
		return Profile{}, err
	}
	return user.Profile(), nil
}

// FindByEmail resolves an email to a user, reporting NotFound when absent.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, apperr.Validation("email is required")
	}
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, err
	}
	return user, nil
}

// SignInExternal finds the account owning a provider-verified email or
// creates a password-less one, then issues a token.
func (s *Service) SignInExternal(ctx context.Context, name, email string) (string, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return "", err
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		if strings.TrimSpace(name) == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = User{ID: uuid.NewString(), Name: strings.TrimSpace(name), Email: email, CreatedAt: s.now()}
		if err := s.Repo.Create(ctx, user); err != nil {
			if !errors.Is(err, ErrEmailTaken) {
				return "", err
			}
			// Lost a race with a concurrent first sign-in.
			if user, err = s.Repo.GetByEmail(ctx, email); err != nil {
				return "", err
			}
		}
	default:
		return "", err
	}
	return s.issue(user.ID)
}

// Names resolves display names for the given ids; unknown ids are omitted.
func (s *Service) Names(ctx context.Context, userIDs []string) (map[string]string, error) {
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	out := make(map[string]string, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	found, err := s.Repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, user := range found {
		out[user.ID] = user.Name
	}
	return out, nil
}

// ValidateEmail rejects values that are not a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("invalid email address")
	}
	return nil
}

func (s *Service) issue(userID string) (string, error) {
	token, err := s.Tokens.Issue(userID)
	if err != nil {
		return "", apperr.Internal("failed to issue token", err)
	}
	return token, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
