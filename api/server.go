// Package api exposes the deliberation engine over HTTP and websockets.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agora-dev/agora/pkg/observability"
	"github.com/agora-dev/agora/pkg/session"
)

// Options configures the API server.
type Options struct {
	Addr            string
	Sessions        *session.Manager
	Runner          session.RoundRunner
	MaxUsers        int
	MaxRoundsPerRun int
}

// Server is the HTTP front of the deliberation engine.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	sessions   *session.Manager
	runner     session.RoundRunner
	hub        *Hub

	maxUsers  int
	maxRounds int
}

// NewServer builds the router and wires all endpoints.
func NewServer(opts Options) *Server {
	if opts.MaxUsers <= 0 {
		opts.MaxUsers = 25
	}
	if opts.MaxRoundsPerRun <= 0 {
		opts.MaxRoundsPerRun = 50
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), metricsMiddleware())

	s := &Server{
		router:    router,
		sessions:  opts.Sessions,
		runner:    opts.Runner,
		hub:       NewHub(),
		maxUsers:  opts.MaxUsers,
		maxRounds: opts.MaxRoundsPerRun,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/topic", s.handleSetTopic)
		api.POST("/agents", s.handleAddAgents)
		api.POST("/run", s.handleRun)
		api.POST("/reset", s.handleReset)
		api.GET("/state", s.handleGetState)
		api.POST("/demo", s.handleDemo)
		api.POST("/intervene", s.handleIntervene)
		api.POST("/dataset", s.handleDataset)
	}
	s.router.GET("/ws", s.handleWebsocket)
}

// Hub returns the websocket hub for broadcasting.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves HTTP until the server is shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler { return s.router }

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observability.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
