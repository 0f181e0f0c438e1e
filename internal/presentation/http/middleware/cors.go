package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/config"
)

var (
	defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	defaultMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Accept", "Authorization", "Content-Type", "Origin"}
)

// CORSMiddleware creates a CORS middleware for the storefront and POS
// frontends. The request id and idempotency headers are always allowed.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	origins := orDefault(cfg.AllowedOrigins, defaultOrigins)
	methods := orDefault(cfg.AllowedMethods, defaultMethods)
	headers := orDefault(cfg.AllowedHeaders, defaultHeaders)

	for _, h := range []string{IdempotencyKeyHeader, RequestIDHeader} {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    []string{"Content-Length", "Content-Type", RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return slices.Clone(fallback)
	}
	return slices.Clone(values)
}
