package audit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carelink/visit-api/internal/handler"
	"github.com/carelink/visit-api/internal/middleware"
	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
	auditservice "github.com/carelink/visit-api/internal/service/audit"
	"github.com/carelink/visit-api/internal/service/authz"
	apperrors "github.com/carelink/visit-api/pkg/errors"
)

// Handler exposes the tenant-scoped audit trail to administrators.
type Handler struct {
	service *auditservice.Service
	users   repository.UserRepository
	guard   *authz.Guard
}

func NewHandler(service *auditservice.Service, users repository.UserRepository, guard *authz.Guard) *Handler {
	return &Handler{service: service, users: users, guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit", h.List)
}

type listResponse struct {
	Logs  []*model.AuditLog `json:"logs"`
	Total int64             `json:"total"`
}

func (h *Handler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	caller, err := h.users.Get(c.Request.Context(), identity.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		handler.RespondError(c, apperrors.Persistence(err))
		return
	}
	if err := h.guard.CanListAuditLogs(identity, caller); err != nil {
		handler.RespondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.service.List(c.Request.Context(), identity.TenantID, limit, offset)
	if err != nil {
		handler.RespondError(c, apperrors.Persistence(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(listResponse{Logs: logs, Total: total}))
}
