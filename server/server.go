// Package server wires the matching engine, store, and HTTP transport.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/tarotlink/ai/llm"
	"github.com/hrygo/tarotlink/ai/matching"
	"github.com/hrygo/tarotlink/ai/metrics"
	"github.com/hrygo/tarotlink/internal/profile"
	apiv1 "github.com/hrygo/tarotlink/server/router/api/v1"
	"github.com/hrygo/tarotlink/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   storeInstance,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	// The semantic scorer is optional: without an API key the engine
	// still serves tag-based matching.
	var semantic *matching.SemanticScorer
	if profile.IsSemanticEnabled() {
		llmService, err := llm.NewService(&llm.Config{
			Provider: profile.LLMProvider,
			Model:    profile.LLMModel,
			APIKey:   profile.LLMAPIKey,
			BaseURL:  profile.LLMBaseURL,
			Timeout:  profile.LLMTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
		semantic = matching.NewSemanticScorer(llmService, 2, time.Duration(profile.LLMTimeout)*time.Second)
	} else {
		slog.Info("semantic scorer disabled: no LLM API key configured")
	}

	adapter := store.NewMatchingAdapter(storeInstance)
	matchService := matching.NewService(adapter, adapter, semantic, matching.Options{
		Threshold:       profile.MatchThreshold,
		Limit:           profile.MatchLimit,
		PoolSize:        profile.MatchPoolSize,
		HistoryDepth:    profile.MatchHistoryDepth,
		SemanticWorkers: profile.SemanticWorkers,
	})

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	matchService.SetObserver(exporter)

	apiV1Service := apiv1.NewAPIV1Service(profile, storeInstance, matchService, exporter)
	apiV1Service.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	return s, nil
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("tarotlink stopped properly")
}
