package comments

import (
	"strings"
	"time"

	"pdfshare-backend/internal/shared/apperr"
)

// DefaultPage is used when a comment is posted without a page number.
const DefaultPage = 1

// Comment is an immutable annotation on one document. Exactly one of
// UserID and GuestName is set.
type Comment struct {
	ID         string
	DocumentID string
	PageNumber int
	Text       string
	UserID     *string
	GuestName  *string
	// AuthorName is the registered user's display name; empty for guests.
	AuthorName string
	CreatedAt  time.Time
	Seq        int64
}

// Attribution names who wrote a comment: a registered user or a guest.
type Attribution struct {
	userID    string
	guestName string
}

// ByUser attributes a comment to a registered user.
func ByUser(userID string) Attribution {
	return Attribution{userID: strings.TrimSpace(userID)}
}

// ByGuest attributes a comment to a self-declared guest name.
func ByGuest(name string) Attribution {
	return Attribution{guestName: strings.TrimSpace(name)}
}

func (a Attribution) IsGuest() bool { return a.guestName != "" }

// Validate enforces that exactly one of user id and guest name is present.
func (a Attribution) Validate() error {
	switch {
	case a.userID != "" && a.guestName != "":
		return apperr.Validation("comment cannot have both a user and a guest name")
	case a.userID == "" && a.guestName == "":
		return apperr.Validation("guest name is required")
	}
	return nil
}

func (a Attribution) apply(c *Comment) {
	if a.userID != "" {
		id := a.userID
		c.UserID = &id
		return
	}
	name := a.guestName
	c.GuestName = &name
}

// normalizePage defaults an absent page to DefaultPage and rejects values
// below 1.
func normalizePage(page *int) (int, error) {
	if page == nil {
		return DefaultPage, nil
	}
	if *page < 1 {
		return 0, apperr.Validation("pageNumber must be at least 1")
	}
	return *page, nil
}
