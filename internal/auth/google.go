package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/server/respond"
	"pdfshare-backend/internal/shared/telemetry"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// StateIssuer mints and checks the OAuth state parameter.
type StateIssuer interface {
	IssueState() (string, error)
	VerifyState(state string) error
}

// AccountLinker signs in the account owning a provider-verified email.
type AccountLinker interface {
	SignInExternal(ctx context.Context, name, email string) (string, error)
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	states      StateIssuer
	accounts    AccountLinker
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, states StateIssuer, accounts AccountLinker) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: defaultUserInfoURL,
		states:      states,
		accounts:    accounts,
	}
}

// RegisterRoutes attaches Google auth routes under the /auth group.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/start", s.start)
	rg.GET("/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != "" && s.uiRedirect != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.FromError(c, apperr.Unavailable("Google auth not configured"))
		return
	}
	state, err := s.states.IssueState()
	if err != nil {
		respond.FromError(c, apperr.Internal("failed to issue state", err))
		return
	}
	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	if !s.configured() {
		respond.FromError(c, apperr.Unavailable("Google auth not configured"))
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.FromError(c, apperr.Validation("missing state or code"))
		return
	}
	if err := s.states.VerifyState(state); err != nil {
		respond.FromError(c, apperr.Validation("invalid or expired state"))
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err})
		respond.FromError(c, apperr.Validation("failed to exchange code"))
		return
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.FromError(c, apperr.Upstream("failed to fetch user profile", err))
		return
	}
	if info.Email == "" || !info.VerifiedEmail {
		respond.FromError(c, apperr.Unauthenticated("Google account has no verified email"))
		return
	}

	jwt, err := s.accounts.SignInExternal(ctx, info.Name, info.Email)
	if err != nil {
		respond.FromError(c, err)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.FromError(c, apperr.Internal("failed to redirect", err))
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	return info, nil
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
