package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type stubAuditWriter struct {
	logs []*models.AuditLog
}

func (s *stubAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func newRouter(tokens TokenValidator, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(tokens)}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/things/:id", chain...)
	return r
}

func do(r http.Handler, token, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	tokens := stubValidator{"good": {UserID: "u1", Role: models.RoleTeacher}}
	r := newRouter(tokens)

	assert.Equal(t, http.StatusUnauthorized, do(r, "", "/things/1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Basic good", "/things/1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer bad", "/things/1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer    ", "/things/1").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "Bearer good", "/things/1").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "bearer  good ", "/things/1").Code)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Token abc", "", false},
	}
	for _, tc := range cases {
		token, err := bearerToken(tc.header)
		assert.Equal(t, tc.token, token, tc.header)
		assert.Equal(t, tc.ok, err == nil, tc.header)
	}
}

func TestRequireRoles(t *testing.T) {
	tokens := stubValidator{
		"teacher": {UserID: "t1", Role: models.RoleTeacher},
		"student": {UserID: "s1", Role: models.RoleStudent},
	}
	r := newRouter(tokens, RequireRoles(models.RoleTeacher, models.RoleAdmin))

	assert.Equal(t, http.StatusNoContent, do(r, "Bearer teacher", "/things/1").Code)
	rec := do(r, "Bearer student", "/things/1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestRequireSelfOrRoles(t *testing.T) {
	tokens := stubValidator{"student": {UserID: "s1", Role: models.RoleStudent}}
	r := newRouter(tokens, RequireSelfOrRoles("id", models.RoleAdmin))

	assert.Equal(t, http.StatusNoContent, do(r, "Bearer student", "/things/s1").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer student", "/things/s2").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	tokens := stubValidator{"teacher": {UserID: "t1", Role: models.RoleTeacher}}
	writer := &stubAuditWriter{}
	r := newRouter(tokens, Audit(writer, nil, models.AuditActionUserCreate, "thing"))

	do(r, "Bearer teacher", "/things/42")
	do(r, "Bearer nope", "/things/43")

	require.Len(t, writer.logs, 1)
	log := writer.logs[0]
	assert.Equal(t, "t1", *log.UserID)
	assert.Equal(t, "42", *log.ResourceID)
	assert.Equal(t, models.AuditActionUserCreate, log.Action)
}

func TestResponseMetaCollectsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

type recordedRequest struct {
	method, route string
	status        int
}

type recordingObserver struct {
	seen []recordedRequest
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.seen = append(r.seen, recordedRequest{method, route, status})
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs, "/metrics"))
	r.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/tasks/1", "/tasks/2", "/metrics", "/nope/123"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/tasks/:id", http.StatusOK},
		{http.MethodGet, "/tasks/:id", http.StatusOK},
		{http.MethodGet, unmatchedRoute, http.StatusNotFound},
	}, obs.seen)
}
