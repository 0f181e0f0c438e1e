package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency middleware prevents duplicate requests using idempotency keys
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to POST, PUT, PATCH methods
		if c.Request.Method != "POST" && c.Request.Method != "PUT" && c.Request.Method != "PATCH" {
			c.Next()
			return
		}

		// Get idempotency key from header
		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			// No idempotency key provided, proceed normally
			c.Next()
			return
		}

		userIDValue, exists := c.Get(ContextUserID)
		if !exists {
			c.Next()
			return
		}
		userID, ok := userIDValue.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Bookkeeping must finish even if the client goes away mid-request
		storeCtx := context.WithoutCancel(ctx)
		log := logger.FromContext(ctx)

		existing, err := config.Repo.GetByKey(ctx, idempotencyKey, userID)
		if err != nil {
			log.Warn("failed to read idempotency key", zap.Error(err))
			c.Next()
			return
		}
		if existing != nil && existing.IsExpired() {
			if err := config.Repo.Delete(storeCtx, idempotencyKey, userID); err != nil {
				log.Warn("failed to drop expired idempotency key", zap.Error(err))
			}
		}

		ikey := &entity.IdempotencyKey{
			Key:       idempotencyKey,
			UserID:    userID,
			Endpoint:  c.Request.Method + " " + c.FullPath(),
			ExpiresAt: time.Now().Add(IdempotencyKeyTTL),
		}
		reserved, err := config.Repo.Reserve(ctx, ikey)
		if err != nil {
			log.Warn("failed to reserve idempotency key", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, config.Repo, idempotencyKey, userID)
			c.Abort()
			return
		}

		// A panicking handler must not leave the key held until it expires
		defer func() {
			if r := recover(); r != nil {
				_ = config.Repo.Delete(storeCtx, idempotencyKey, userID)
				panic(r)
			}
		}()

		// Capture the response
		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Server errors are not cached; the same key may be retried
		if c.Writer.Status() >= 500 {
			if err := config.Repo.Delete(storeCtx, idempotencyKey, userID); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
			return
		}
		ikey.ResponseCode = c.Writer.Status()
		ikey.ResponseBody = blw.body.String()
		if err := config.Repo.Complete(storeCtx, ikey); err != nil {
			log.Warn("failed to store idempotency key", zap.Error(err))
		}
	}
}

// replay answers a request whose key another request already holds: the
// stored response once that request finished, 409 while it is in flight.
func replay(c *gin.Context, repo repository.IdempotencyRepository, key string, userID uuid.UUID) {
	existing, err := repo.GetByKey(c.Request.Context(), key, userID)
	if err != nil || existing == nil || existing.IsPending() {
		response.ErrorWithCode(c, http.StatusConflict, "A request with this idempotency key is already in progress")
		return
	}
	c.Header("X-Idempotency-Replayed", "true")
	c.Data(existing.ResponseCode, "application/json", []byte(existing.ResponseBody))
}
