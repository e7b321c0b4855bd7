// Package agora wires the deliberation service together: configuration,
// session storage, the round engine, the HTTP API, and observability.
package agora

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agora-dev/agora/api"
	"github.com/agora-dev/agora/internal/llm"
	"github.com/agora-dev/agora/internal/sim"
	"github.com/agora-dev/agora/internal/telemetry"
	"github.com/agora-dev/agora/pkg/config"
	"github.com/agora-dev/agora/pkg/observability"
	"github.com/agora-dev/agora/pkg/session"
)

// Service is a fully wired deliberation service.
type Service struct {
	Config   *config.Config
	Sessions *session.Manager
	Engine   *sim.Engine

	apiServer *api.Server
	obsServer *observability.Server
}

// NewService builds a service from configuration.
func NewService(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := session.NewBackend(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session storage: %w", err)
	}
	sessions := session.NewManager(backend)

	apiKey := cfg.AnthropicKey
	if cfg.Provider == "openai" {
		apiKey = cfg.OpenAIKey
	}
	generator, err := llm.New(llm.Config{
		Provider:          cfg.Provider,
		APIKey:            apiKey,
		Model:             cfg.Model,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.TurnTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid turn_timeout %q: %w", cfg.TurnTimeout, err)
	}
	engine := sim.NewEngine(generator, timeout)

	observability.InitMetrics()
	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.PingCheck())

	svc := &Service{
		Config:   cfg,
		Sessions: sessions,
		Engine:   engine,
	}
	svc.apiServer = api.NewServer(api.Options{
		Addr:            cfg.Server.Addr,
		Sessions:        sessions,
		Runner:          engine,
		MaxUsers:        cfg.Simulation.MaxUsers,
		MaxRoundsPerRun: cfg.Simulation.MaxRoundsPerRun,
	})
	svc.obsServer = observability.NewServer(cfg.Server.ObservabilityPort)
	return svc, nil
}

// Run loads configuration from path (or defaults when path is empty) and
// serves until interrupted.
func Run(configPath string) error {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if err := telemetry.InitFromEnv(); err != nil {
		log.Printf("Warning: failed to initialize telemetry: %v", err)
	}

	svc, err := NewService(cfg)
	if err != nil {
		return err
	}
	return svc.Serve(context.Background())
}

// Serve runs the API and observability servers until ctx is canceled or an
// interrupt arrives, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("API server listening on %s", s.Config.Server.Addr)
		return s.apiServer.Start()
	})
	g.Go(func() error {
		log.Printf("Observability server listening on :%d", s.Config.Server.ObservabilityPort)
		if err := s.obsServer.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
		if err := s.obsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Observability server shutdown error: %v", err)
		}
		if err := s.Sessions.Close(); err != nil {
			log.Printf("Session storage close error: %v", err)
		}
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}
