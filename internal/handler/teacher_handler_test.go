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

type fakeTeacherSrv struct {
	filter  models.TeacherFilter
	updated service.UpdateTeacherRequest
}

func (f *fakeTeacherSrv) List(_ context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	f.filter = filter
	return []models.TeacherDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeTeacherSrv) Get(_ context.Context, id string) (*models.TeacherDetail, error) {
	if id != "t1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &models.TeacherDetail{Teacher: models.Teacher{ID: id}}, nil
}

func (f *fakeTeacherSrv) Create(_ context.Context, req service.CreateTeacherRequest) (*models.TeacherDetail, error) {
	return &models.TeacherDetail{Teacher: models.Teacher{ID: "t-new", Branch: req.Branch}, Email: req.Email}, nil
}

func (f *fakeTeacherSrv) Update(_ context.Context, id string, req service.UpdateTeacherRequest) (*models.TeacherDetail, error) {
	f.updated = req
	return &models.TeacherDetail{Teacher: models.Teacher{ID: id}, Active: req.Active != nil && *req.Active}, nil
}

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func TestTeacherHandlerListParsesQuery(t *testing.T) {
	srv := &fakeTeacherSrv{}
	c, rec := newTestContext(http.MethodGet, "/teachers?search=%20ada%20&page=2&limit=5", "", adminClaims)

	NewTeacherHandler(srv).List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TeacherFilter{Search: "ada", Page: 2, PageSize: 5}, srv.filter)
}

func TestTeacherHandlerUpdateDeactivates(t *testing.T) {
	srv := &fakeTeacherSrv{}
	c, rec := newTestContext(http.MethodPut, "/teachers/t1", `{"active":false}`, adminClaims)
	c.Params = gin.Params{ginParam("id", "t1")}

	NewTeacherHandler(srv).Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.updated.Active)
	assert.False(t, *srv.updated.Active)
	assert.Equal(t, false, decodeEnvelope(t, rec).Data["active"])
}

func TestTeacherHandlerGetMissing(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/teachers/ghost", "", adminClaims)
	c.Params = gin.Params{ginParam("id", "ghost")}

	NewTeacherHandler(&fakeTeacherSrv{}).Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
