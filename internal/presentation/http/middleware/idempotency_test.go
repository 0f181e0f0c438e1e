package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/infrastructure/memory"
)

func idempotentRouter(userID uuid.UUID, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	repo := memory.NewIdempotencyRepository(memory.NewStore())
	r.POST("/orders", func(c *gin.Context) {
		c.Set(ContextUserID, userID)
		c.Next()
	}, Idempotency(IdempotencyConfig{Repo: repo}), handler)
	return r
}

func postWithKey(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(IdempotencyKeyHeader, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ConcurrentSameKeyRunsHandlerOnce(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	r := idempotentRouter(uuid.New(), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		c.JSON(http.StatusCreated, gin.H{"tracking_id": "TRK-AAAAAAAA"})
	})

	var first *httptest.ResponseRecorder
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = postWithKey(r, "checkout-1")
	}()
	<-started

	inFlight := postWithKey(r, "checkout-1")
	if inFlight.Code != http.StatusConflict {
		t.Fatalf("expected 409 while the first request runs, got %d", inFlight.Code)
	}

	close(release)
	wg.Wait()
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: %d", first.Code)
	}

	replayed := postWithKey(r, "checkout-1")
	if replayed.Code != http.StatusCreated || replayed.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Fatalf("replay: %d replayed=%q", replayed.Code, replayed.Header().Get("X-Idempotency-Replayed"))
	}
	if replayed.Body.String() != first.Body.String() {
		t.Fatalf("replay body %q, want %q", replayed.Body.String(), first.Body.String())
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}

func TestIdempotency_ServerErrorFreesKey(t *testing.T) {
	var calls atomic.Int32
	r := idempotentRouter(uuid.New(), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "boom"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	if w := postWithKey(r, "retry-me"); w.Code != http.StatusInternalServerError {
		t.Fatalf("first attempt: %d", w.Code)
	}
	w := postWithKey(r, "retry-me")
	if w.Code != http.StatusCreated || w.Header().Get("X-Idempotency-Replayed") != "" {
		t.Fatalf("retry should run the handler again, got %d replayed=%q", w.Code, w.Header().Get("X-Idempotency-Replayed"))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}
