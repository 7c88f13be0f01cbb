package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/dto"
	"github.com/noah-isme/tutorhub-api/internal/middleware"
	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

type dashboardService interface {
	Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error)
	Student(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Teacher godoc
// @Summary Teacher dashboard
// @Description Admins may pass teacher_id to inspect another teacher
// @Tags Dashboard
// @Produce json
// @Param teacher_id query string false "Teacher ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	teacherID, ok := subjectID(c, models.RoleTeacher, "teacher_id")
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Teacher(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, start)
}

// Student godoc
// @Summary Student dashboard
// @Description Admins may pass student_id to inspect a student
// @Tags Dashboard
// @Produce json
// @Param student_id query string false "Student ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID, ok := subjectID(c, models.RoleStudent, "student_id")
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Student(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, start)
}

// subjectID resolves whose dashboard to build: the caller when it has the owner role, or the
// query parameter for admins. It writes the error response itself.
func subjectID(c *gin.Context, owner models.UserRole, param string) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	switch claims.Role {
	case owner:
		return claims.UserID, true
	case models.RoleAdmin:
		id := strings.TrimSpace(c.Query(param))
		if id == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, param+" is required"))
			return "", false
		}
		return id, true
	default:
		response.Error(c, appErrors.ErrForbidden)
		return "", false
	}
}

func respondDashboard(c *gin.Context, summary interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta[middleware.MetaProcessingTime] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
