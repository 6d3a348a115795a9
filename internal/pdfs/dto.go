package pdfs

import (
	"time"

	"pdfshare-backend/internal/documents"
)

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// UploadTicket is returned by PresignUpload.
type UploadTicket struct {
	UploadURL        string `json:"uploadUrl"`
	StorageKey       string `json:"storageKey"`
	S3URL            string `json:"s3Url"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

type saveRequest struct {
	Filename   string `json:"filename"`
	StorageKey string `json:"storageKey"`
	S3URL      string `json:"s3Url"`
}

type saveResponse struct {
	Message string      `json:"message"`
	PDF     PDFResponse `json:"pdf"`
}

type shareRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// PDFResponse is the JSON view of a document. ShareToken is only filled
// for the owner.
type PDFResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storageKey"`
	S3URL      string    `json:"s3Url"`
	OwnerID    string    `json:"ownerId"`
	ShareToken *string   `json:"shareToken,omitempty"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Listing groups the caller's owned and shared documents.
type Listing struct {
	OwnedPdfs  []PDFResponse `json:"ownedPdfs"`
	SharedPdfs []PDFResponse `json:"sharedPdfs"`
}

// ViewURL is a short-lived read URL for an authenticated caller.
type ViewURL struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	OwnerID  string `json:"ownerId"`
}

// PublicView is the guest view; it never carries the document id.
type PublicView struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// ShareLink is returned by GenerateShareLink.
type ShareLink struct {
	ShareLink  string `json:"shareLink"`
	ShareToken string `json:"shareToken"`
}

func toResponse(doc documents.Document, objectURL string, owner bool) PDFResponse {
	resp := PDFResponse{
		ID:         doc.ID,
		Filename:   doc.FileName,
		StorageKey: doc.StorageKey,
		S3URL:      objectURL,
		OwnerID:    doc.OwnerID,
		State:      string(doc.State()),
		CreatedAt:  doc.CreatedAt,
	}
	if owner {
		resp.ShareToken = doc.ShareToken
	}
	return resp
}
