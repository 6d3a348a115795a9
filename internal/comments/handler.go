package comments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfshare-backend/internal/access"
	"pdfshare-backend/internal/shared/server/middleware"
	"pdfshare-backend/internal/shared/server/respond"
)

// Handler serves the comment routes.
type Handler struct {
	Svc *Service
}

// NewHandler builds a Handler over svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches authenticated comment routes (mounted at /comments).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("/:id/comments", h.listByID)
	rg.POST("/:id/comment", h.createOnDocument)
}

// RegisterPublicRoutes attaches token-keyed routes (mounted at /public).
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/comments/:shareToken", h.listByToken)
	rg.POST("/comments/:shareToken", h.createAsGuest)
}

func caller(c *gin.Context) access.Caller {
	return access.Caller{UserID: middleware.UserIDFromContext(c)}
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	c.Set(middleware.DocumentIDKey, req.PDFID)
	comment, err := h.Svc.AppendAsUser(c.Request.Context(), caller(c), req.PDFID, req.Text, req.PageNumber)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.Created(c, toResponse(comment))
}

func (h *Handler) createOnDocument(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	var req createOnDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	comment, err := h.Svc.AppendAsUser(c.Request.Context(), caller(c), id, req.Text, req.PageNumber)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.Created(c, toResponse(comment))
}

func (h *Handler) listByID(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	list, err := h.Svc.ListByID(c.Request.Context(), caller(c), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponses(list))
}

func (h *Handler) listByToken(c *gin.Context) {
	list, err := h.Svc.ListByToken(c.Request.Context(), c.Param("shareToken"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toPublicResponses(list))
}

func (h *Handler) createAsGuest(c *gin.Context) {
	var req guestCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return
	}
	comment, err := h.Svc.AppendAsGuest(c.Request.Context(), c.Param("shareToken"), req.GuestName, req.Text, req.PageNumber)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.Created(c, toPublicResponse(comment))
}
