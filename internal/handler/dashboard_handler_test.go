package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/dto"
	"github.com/noah-isme/tutorhub-api/internal/middleware"
	"github.com/noah-isme/tutorhub-api/internal/models"
)

type fakeDashboardSrv struct {
	teacherResp *dto.TeacherDashboardResponse
	teacherHit  bool
	studentResp *dto.StudentDashboardResponse
	lastTeacher string
	lastStudent string
}

func (f *fakeDashboardSrv) Teacher(_ context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error) {
	f.lastTeacher = teacherID
	return f.teacherResp, f.teacherHit, nil
}

func (f *fakeDashboardSrv) Student(_ context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	f.lastStudent = studentID
	return f.studentResp, false, nil
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestContext(method, target string, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestDashboardHandlerTeacherUsesCaller(t *testing.T) {
	srv := &fakeDashboardSrv{teacherResp: &dto.TeacherDashboardResponse{TeacherID: "teacher-1", StudentCount: 3}, teacherHit: true}
	handler := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/dashboard/teacher?teacher_id=other", "", &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.Teacher(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "teacher-1", srv.lastTeacher)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, "teacher-1", envelope.Data["teacher_id"])
	assert.Equal(t, float64(3), envelope.Data["student_count"])
}

func TestDashboardHandlerAdminNeedsTarget(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := newTestContext(http.MethodGet, "/dashboard/teacher", "", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Teacher(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerAdminInspectsStudent(t *testing.T) {
	srv := &fakeDashboardSrv{studentResp: &dto.StudentDashboardResponse{StudentID: "student-9"}}
	handler := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/dashboard/student?student_id=student-9", "", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-9", srv.lastStudent)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestDashboardHandlerRejectsOtherRoles(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := newTestContext(http.MethodGet, "/dashboard/student", "", &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})

	handler.Student(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerRequiresClaims(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := newTestContext(http.MethodGet, "/dashboard/teacher", "", nil)

	handler.Teacher(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
