package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "retailcore/internal/core/context"
	"retailcore/internal/domain/auth"
	"retailcore/internal/infrastructure/http/v1/middleware"
)

func newAuthRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(handler)
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})
	return r
}

func get(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	token, _, err := jwtService.GenerateAccessToken("cashier-7", "c7@example.com", nil)
	require.NoError(t, err)

	r := newAuthRouter(middleware.Auth(jwtService))

	w := get(r, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cashier-7", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Authorization", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Authorization", "Bearer nope").Code)
}

func TestStaticUser(t *testing.T) {
	r := newAuthRouter(middleware.StaticUser("anonymous"))

	assert.Equal(t, "anonymous", get(r, "", "").Body.String())
	assert.Equal(t, "ops-1", get(r, middleware.HeaderUserID, "ops-1").Body.String())
}
