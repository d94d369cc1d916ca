// Package v1 exposes the matching engine over the v1 HTTP API.
package v1

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/tarotlink/ai/matching"
	"github.com/hrygo/tarotlink/ai/metrics"
	"github.com/hrygo/tarotlink/internal/profile"
	"github.com/hrygo/tarotlink/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	matchService *matching.Service
	exporter     *metrics.PrometheusExporter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, matchService *matching.Service, exporter *metrics.PrometheusExporter) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Store:        store,
		matchService: matchService,
		exporter:     exporter,
	}
}

// RegisterRoutes registers all v1 routes on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	group := e.Group("/api/v1", requestIDMiddleware)
	group.GET("/matches", s.GetMatches)
}

// requestIDMiddleware attaches a short request id to the context and logs
// the request boundary.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := shortuuid.New()
		c.Set("request_id", requestID)

		start := time.Now()
		err := next(c)
		slog.Debug("api request",
			"request_id", requestID,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
