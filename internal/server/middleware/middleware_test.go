package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/server/middleware"
	"github.com/promptforge/optimizer-api/pkg/api"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestIdentity_MissingHeader(t *testing.T) {
	r := newRouter()
	r.Use(middleware.Identity())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_PassesUserThrough(t *testing.T) {
	r := newRouter()
	r.Use(middleware.Identity())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.UserID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-User-ID", "user-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())
}

func TestErrorHandler_ProblemSerialization(t *testing.T) {
	r := newRouter()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(api.QuotaExceededError("quick"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Quota Exceeded", body["title"])
	assert.Equal(t, "quick", body["dimension"])
}

func TestErrorHandler_RateLimitSetsRetryAfter(t *testing.T) {
	r := newRouter()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(api.RateLimitError(17))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "17", w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 17, body["retry_after_seconds"])
}

func TestErrorHandler_UnknownErrorBecomes500(t *testing.T) {
	r := newRouter()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Internal details never leak into the response body.
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestAdminAuth(t *testing.T) {
	r := newRouter()
	r.Use(middleware.AdminAuth([]string{"good-key"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "good-key", http.StatusUnauthorized},
		{"wrong key", "Bearer bad-key", http.StatusUnauthorized},
		{"valid key", "Bearer good-key", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
