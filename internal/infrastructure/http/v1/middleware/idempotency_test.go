package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/infrastructure/http/v1/middleware"
	"retailcore/internal/infrastructure/storage/postgres"
)

type storedRequest struct {
	hash   string
	done   bool
	replay postgres.Replay
}

// fakeKeys mirrors RequestKeyStore semantics in memory.
type fakeKeys struct {
	mu   sync.Mutex
	keys map[string]*storedRequest
}

func newFakeKeys() *fakeKeys { return &fakeKeys{keys: map[string]*storedRequest{}} }

func (f *fakeKeys) Acquire(_ context.Context, key, _, _, requestHash string) (*postgres.Replay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.keys[key]
	if !ok {
		f.keys[key] = &storedRequest{hash: requestHash}
		return nil, nil
	}
	if r.hash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if !r.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	replay := r.replay
	return &replay, nil
}

func (f *fakeKeys) Complete(_ context.Context, key string, status int, contentType string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.keys[key]
	r.done = true
	r.replay = postgres.Replay{StatusCode: status, ContentType: contentType, Body: append([]byte(nil), body...)}
	return nil
}

func (f *fakeKeys) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.keys[key]; ok && !r.done {
		delete(f.keys, key)
	}
	return nil
}

func newIdempotentRouter(keys middleware.RequestKeys, calls *int, fail *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Idempotency(keys))
	r.POST("/sales", func(c *gin.Context) {
		*calls++
		if *fail {
			_ = c.Error(apperror.NewValidation("rejected"))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"call": *calls})
	})
	return r
}

func post(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_Replay(t *testing.T) {
	calls, fail := 0, false
	r := newIdempotentRouter(newFakeKeys(), &calls, &fail)

	first := post(r, "k-1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(r, "k-1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	mismatch := post(r, "k-1", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, mismatch.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_FailureReleasesKey(t *testing.T) {
	calls, fail := 0, true
	r := newIdempotentRouter(newFakeKeys(), &calls, &fail)

	w := post(r, "k-2", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fail = false
	w = post(r, "k-2", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	calls, fail := 0, false
	r := newIdempotentRouter(newFakeKeys(), &calls, &fail)

	post(r, "", `{}`)
	post(r, "", `{}`)
	assert.Equal(t, 2, calls)
}
