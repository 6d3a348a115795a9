package pdfs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfshare-backend/internal/access"
	"pdfshare-backend/internal/shared/server/middleware"
	"pdfshare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches authenticated document routes (mounted at /pdf).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.POST("/save", h.save)
	rg.GET("/pdfs", h.list)
	rg.GET("/:id", h.get)
	rg.GET("/:id/view-url", h.viewURL)
	rg.POST("/:id/share", h.share)
	rg.POST("/:id/generate-share-link", h.generateShareLink)
}

// RegisterPublicRoutes attaches token-keyed routes (mounted at /public).
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/pdf/:shareToken", h.publicView)
}

func caller(c *gin.Context) access.Caller {
	return access.Caller{UserID: middleware.UserIDFromContext(c)}
}

func documentID(c *gin.Context) string {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	return id
}

func (h *Handler) upload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	ticket, err := h.Svc.PresignUpload(c.Request.Context(), middleware.UserIDFromContext(c), req.Filename, req.ContentType)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, ticket)
}

func (h *Handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	locator := req.StorageKey
	if locator == "" {
		locator = req.S3URL
	}
	pdf, err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), req.Filename, locator)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, pdf.ID)
	respond.Created(c, saveResponse{Message: "PDF saved successfully", PDF: pdf})
}

func (h *Handler) list(c *gin.Context) {
	listing, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, listing)
}

func (h *Handler) get(c *gin.Context) {
	pdf, err := h.Svc.Get(c.Request.Context(), caller(c), documentID(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, pdf)
}

func (h *Handler) viewURL(c *gin.Context) {
	view, err := h.Svc.ViewURL(c.Request.Context(), caller(c), documentID(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) share(c *gin.Context) {
	id := documentID(c)
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	email, err := h.Svc.ShareWithEmail(c.Request.Context(), caller(c), id, req.Email)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, messageResponse{Message: "PDF successfully shared with " + email + "."})
}

func (h *Handler) generateShareLink(c *gin.Context) {
	link, err := h.Svc.GenerateShareLink(c.Request.Context(), caller(c), documentID(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, link)
}

func (h *Handler) publicView(c *gin.Context) {
	view, err := h.Svc.PublicView(c.Request.Context(), c.Param("shareToken"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, view)
}
