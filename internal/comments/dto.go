package comments

import "time"

type createRequest struct {
	PDFID      string `json:"pdfId"`
	PageNumber *int   `json:"pageNumber"`
	Text       string `json:"text"`
}

type createOnDocumentRequest struct {
	PageNumber *int   `json:"pageNumber"`
	Text       string `json:"text"`
}

type guestCreateRequest struct {
	PageNumber *int   `json:"pageNumber"`
	Text       string `json:"text"`
	GuestName  string `json:"guestName"`
}

type authorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CommentResponse is the JSON view of a comment. User is null for guest
// comments.
type CommentResponse struct {
	ID         string          `json:"id"`
	PDFID      string          `json:"pdfId"`
	PageNumber int             `json:"pageNumber"`
	Text       string          `json:"text"`
	UserID     *string         `json:"userId"`
	GuestName  *string         `json:"guestName"`
	CreatedAt  time.Time       `json:"createdAt"`
	User       *authorResponse `json:"user"`
}

func toResponse(c Comment) CommentResponse {
	resp := CommentResponse{
		ID:         c.ID,
		PDFID:      c.DocumentID,
		PageNumber: c.PageNumber,
		Text:       c.Text,
		UserID:     c.UserID,
		GuestName:  c.GuestName,
		CreatedAt:  c.CreatedAt,
	}
	if c.UserID != nil {
		resp.User = &authorResponse{ID: *c.UserID, Name: c.AuthorName}
	}
	return resp
}

// PublicCommentResponse is the guest view of a comment. It carries no
// document id; guests address documents only by share token.
type PublicCommentResponse struct {
	ID         string          `json:"id"`
	PageNumber int             `json:"pageNumber"`
	Text       string          `json:"text"`
	UserID     *string         `json:"userId"`
	GuestName  *string         `json:"guestName"`
	CreatedAt  time.Time       `json:"createdAt"`
	User       *authorResponse `json:"user"`
}

func toPublicResponse(c Comment) PublicCommentResponse {
	full := toResponse(c)
	return PublicCommentResponse{
		ID:         full.ID,
		PageNumber: full.PageNumber,
		Text:       full.Text,
		UserID:     full.UserID,
		GuestName:  full.GuestName,
		CreatedAt:  full.CreatedAt,
		User:       full.User,
	}
}

func toPublicResponses(list []Comment) []PublicCommentResponse {
	out := make([]PublicCommentResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toPublicResponse(c))
	}
	return out
}

func toResponses(list []Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	return out
}
