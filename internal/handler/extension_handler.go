package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

type extensionService interface {
	List(ctx context.Context, claims *models.JWTClaims, filter models.ExtensionFilter) ([]models.ExtensionRequestDetail, *models.Pagination, error)
	Respond(ctx context.Context, teacherID, requestID string, req service.RespondExtensionRequest) (*models.ExtensionRequestDetail, error)
}

// ExtensionHandler exposes extension request review endpoints.
type ExtensionHandler struct {
	extensions extensionService
}

// NewExtensionHandler constructs ExtensionHandler.
func NewExtensionHandler(extensions extensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

// List godoc
// @Summary List extension requests
// @Tags Extensions
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /extension-requests [get]
func (h *ExtensionHandler) List(c *gin.Context) {
	filter := models.ExtensionFilter{}
	filter.Page, filter.PageSize = pageParams(c)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.ExtensionStatus(status) {
		case models.ExtensionPending, models.ExtensionApproved, models.ExtensionRejected:
			filter.Status = models.ExtensionStatus(status)
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected"))
			return
		}
	}
	requests, pagination, err := h.extensions.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Respond godoc
// @Summary Approve or reject extension request
// @Description Approval moves the task end date by approved_days
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Extension request ID"
// @Param payload body service.RespondExtensionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /extension-requests/{id}/respond [post]
func (h *ExtensionHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RespondExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	detail, err := h.extensions.Respond(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
