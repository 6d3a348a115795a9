package documents

import "time"

// Document is an uploaded PDF. ShareToken is nil until the owner issues a
// public link; once set it never changes.
type Document struct {
	ID         string
	OwnerID    string
	FileName   string
	StorageKey string
	ShareToken *string
	CreatedAt  time.Time
}

// State is derived from the share token.
type State string

const (
	StateCreated State = "created"
	StateShared  State = "shared"
)

func (d Document) State() State {
	if d.ShareToken != nil && *d.ShareToken != "" {
		return StateShared
	}
	return StateCreated
}
