package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type fakeExtensionSrv struct {
	respondErr  error
	lastTeacher string
	lastID      string
	lastReq     service.RespondExtensionRequest
	lastFilter  models.ExtensionFilter
}

func (f *fakeExtensionSrv) List(_ context.Context, _ *models.JWTClaims, filter models.ExtensionFilter) ([]models.ExtensionRequestDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.ExtensionRequestDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeExtensionSrv) Respond(_ context.Context, teacherID, requestID string, req service.RespondExtensionRequest) (*models.ExtensionRequestDetail, error) {
	f.lastTeacher, f.lastID, f.lastReq = teacherID, requestID, req
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	detail := &models.ExtensionRequestDetail{}
	detail.ID = requestID
	detail.Status = models.ExtensionApproved
	return detail, nil
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}

var teacherClaims = &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}

func TestExtensionHandlerRespondApprove(t *testing.T) {
	srv := &fakeExtensionSrv{}
	handler := NewExtensionHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/extension-requests/req-1/respond", `{"action":"approve","approved_days":3}`, teacherClaims)
	c.Params = append(c.Params, ginParam("id", "req-1"))

	handler.Respond(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "teacher-1", srv.lastTeacher)
	assert.Equal(t, "req-1", srv.lastID)
	assert.Equal(t, "approve", srv.lastReq.Action)
	require.NotNil(t, srv.lastReq.ApprovedDays)
	assert.Equal(t, 3, *srv.lastReq.ApprovedDays)
	assert.NotEmpty(t, srv.lastReq.IP)
	assert.Equal(t, "approved", decodeEnvelope(t, rec).Data["status"])
}

func TestExtensionHandlerRespondAlreadyProcessed(t *testing.T) {
	srv := &fakeExtensionSrv{respondErr: appErrors.Clone(appErrors.ErrConflict, "extension request already processed")}
	handler := NewExtensionHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/extension-requests/req-1/respond", `{"action":"reject"}`, teacherClaims)

	handler.Respond(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExtensionHandlerRespondRequiresClaims(t *testing.T) {
	srv := &fakeExtensionSrv{}
	handler := NewExtensionHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/extension-requests/req-1/respond", `{"action":"reject"}`, nil)

	handler.Respond(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, srv.lastTeacher)
}

func TestExtensionHandlerListStatusFilter(t *testing.T) {
	srv := &fakeExtensionSrv{}
	handler := NewExtensionHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/extension-requests?status=pending", "", teacherClaims)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExtensionPending, srv.lastFilter.Status)

	c, rec = newTestContext(http.MethodGet, "/extension-requests?status=maybe", "", teacherClaims)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
