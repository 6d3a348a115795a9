package object

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"pdfshare-backend/internal/shared/util"
)

// KeyRoot is the first segment of every document storage key.
const KeyRoot = "documents"

// NewKey derives the storage key for an upload:
// documents/<hashed user>/<unix millis>-<sanitized filename>.
func NewKey(userID, fileName string, now time.Time) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(UserPrefix(userID), fmt.Sprintf("%d-%s", now.UnixMilli(), name)), nil
}

// UserPrefix is the namespace under which a user's uploads live.
func UserPrefix(userID string) string {
	return KeyRoot + "/" + util.HashUserKey(userID)
}

// OwnedBy reports whether key lies inside the user's namespace.
func OwnedBy(key, userID string) bool {
	clean := path.Clean(key)
	if clean != key || strings.Contains(key, "..") {
		return false
	}
	prefix := UserPrefix(userID) + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

// KeyFromLocator extracts a storage key from either a bare key or an object
// URL as returned by Presigner.ObjectURL.
func KeyFromLocator(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", ErrInvalidKey
	}
	if strings.HasPrefix(locator, KeyRoot+"/") {
		return locator, nil
	}
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return "", ErrInvalidKey
	}
	p, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		return "", ErrInvalidKey
	}
	idx := strings.Index(p, "/"+KeyRoot+"/")
	if idx < 0 {
		return "", ErrInvalidKey
	}
	return p[idx+1:], nil
}
