package visit

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carelink/visit-api/internal/handler"
	"github.com/carelink/visit-api/internal/middleware"
	"github.com/carelink/visit-api/internal/model"
	visitservice "github.com/carelink/visit-api/internal/service/visit"
)

// Service is the slice of the lifecycle engine the HTTP layer needs.
type Service interface {
	CreateDraft(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error)
	Submit(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error)
	Reject(ctx context.Context, identity model.CallerIdentity, shiftID, reason string) (*model.TransitionResult, error)
	Approve(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error)
	UpdateDocumentation(ctx context.Context, identity model.CallerIdentity, shiftID string, update visitservice.DocumentationUpdate) (*model.Visit, error)
	GetVisit(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.Visit, error)
	ListFamilySummaries(ctx context.Context, identity model.CallerIdentity, patientID string) ([]model.VisitSummary, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/shifts/:id/visit", h.CreateDraft)

	visits := r.Group("/visits")
	{
		visits.GET("/:id", h.GetVisit)
		visits.PUT("/:id/documentation", h.UpdateDocumentation)
		visits.POST("/:id/submit", h.Submit)
		visits.POST("/:id/reject", h.Reject)
		visits.POST("/:id/approve", h.Approve)
	}

	r.GET("/patients/:id/visit-summaries", h.ListFamilySummaries)
}

func (h *Handler) CreateDraft(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	result, err := h.service.CreateDraft(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) Submit(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Reject(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("a rejection reason is required"))
		return
	}

	result, err := h.service.Reject(c.Request.Context(), identity, c.Param("id"), req.Reason)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) Approve(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	result, err := h.service.Approve(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) UpdateDocumentation(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	var update visitservice.DocumentationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	visit, err := h.service.UpdateDocumentation(c.Request.Context(), identity, c.Param("id"), update)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(visit))
}

func (h *Handler) GetVisit(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	visit, err := h.service.GetVisit(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(visit))
}

func (h *Handler) ListFamilySummaries(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	summaries, err := h.service.ListFamilySummaries(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summaries))
}
