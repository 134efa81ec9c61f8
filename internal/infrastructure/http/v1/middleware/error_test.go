package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/infrastructure/http/v1/middleware"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		requestID bool
	}{
		{"app error keeps details", apperror.NewInsufficientStock("s-1", "X", 3, 1), http.StatusUnprocessableEntity, apperror.CodeInsufficientStock, false},
		{"wrapped app error", errors.Join(errors.New("ctx"), apperror.NewNotFound("sale", "1")), http.StatusNotFound, apperror.CodeNotFound, false},
		{"plain error hides cause", errors.New("connection reset"), http.StatusInternalServerError, apperror.CodeInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.Trace(), middleware.ErrorHandler())
			r.GET("/fail", func(c *gin.Context) {
				_ = c.Error(tt.err)
				c.Abort()
			})

			req := httptest.NewRequest(http.MethodGet, "/fail", nil)
			req.Header.Set(middleware.HeaderRequestID, "req-42")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			var body struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Message, "connection reset")
			if tt.requestID {
				assert.Equal(t, map[string]any{"request_id": "req-42"}, body.Details)
			} else {
				assert.NotContains(t, body.Details, "request_id")
			}
		})
	}
}
