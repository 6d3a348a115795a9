package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pdfshare-backend/internal/shared/server/respond"
	"pdfshare-backend/internal/shared/storage/object"
	"pdfshare-backend/internal/shared/telemetry"
)

const routePrefix = "/files"

var errBadSignature = errors.New("invalid or expired signature")

// Store keeps objects on the local filesystem and hands out URLs that this
// process serves itself. It stands in for S3 during development.
type Store struct {
	baseDir  string
	baseURL  string
	secret   []byte
	maxBytes int64
	now      func() time.Time
}

// New creates a local store rooted at baseDir whose URLs point at baseURL.
func New(baseDir, baseURL, secret string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	return &Store{
		baseDir:  baseDir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(secret),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return s.presign(ctx, http.MethodPut, key, ttl)
}

func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presign(ctx, http.MethodGet, key, ttl)
}

func (s *Store) ObjectURL(key string) string {
	return s.baseURL + routePrefix + "/" + escapeKey(key)
}

func (s *Store) Provider() string { return "local" }

func (s *Store) presign(ctx context.Context, method, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	exp := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", s.sign(method, key, exp))
	return s.ObjectURL(key) + "?" + q.Encode(), nil
}

func (s *Store) sign(method, key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Store) verify(method, key, rawExp, sig string) error {
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil || s.now().Unix() > exp {
		return errBadSignature
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(method, key, exp))) {
		return errBadSignature
	}
	return nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", object.ErrInvalidKey
	}
	return filepath.Join(s.baseDir, clean), nil
}

// RegisterRoutes serves the signed URLs minted by this store.
func (s *Store) RegisterRoutes(r gin.IRoutes) {
	r.PUT(routePrefix+"/*key", s.put)
	r.GET(routePrefix+"/*key", s.get)
}

func (s *Store) put(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := s.verify(http.MethodPut, key, c.Query("exp"), c.Query("sig")); err != nil {
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
		return
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to store object", nil)
		return
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to store object", nil)
		return
	}
	defer f.Close()

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes)
	written, err := io.Copy(f, body)
	if err != nil {
		_ = os.Remove(fullPath)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "object exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to store object", nil)
		return
	}
	telemetry.Info("object.put", map[string]any{"key": key, "bytes": written})
	c.Status(http.StatusOK)
}

func (s *Store) get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := s.verify(http.MethodGet, key, c.Query("exp"), c.Query("sig")); err != nil {
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
		return
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	if _, err := os.Stat(fullPath); err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "object not found", nil)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(fullPath)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ object.Presigner = (*Store)(nil)
