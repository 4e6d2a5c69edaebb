package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/sefcom/clusterutils/pkg/stats"
	"github.com/sefcom/clusterutils/pkg/utilization"
)

const shutdownTimeout = 10 * time.Second

// Config holds the configuration for the HTTP server
type Config struct {
	Addr     string
	Interval time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	return nil
}

// Server exposes the refresher's reports and the Prometheus registry over HTTP
type Server struct {
	config    *Config
	refresher *Refresher
	router    *gin.Engine
}

// New creates a new Server refreshing from source every config.Interval.
// recorder may be nil; gatherer is served on /metrics.
func New(config *Config, source SnapshotSource, recorder *stats.MetricsRecorder, options utilization.Options, gatherer prometheus.Gatherer) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	refresher := NewRefresher(source, recorder, options, config.Interval)
	return &Server{
		config:    config,
		refresher: refresher,
		router:    NewRouter(refresher, gatherer),
	}, nil
}

// NewRouter wires the HTTP routes.
func NewRouter(provider ReportProvider, gatherer prometheus.Gatherer) *gin.Engine {
	handler := NewGinHandler(provider)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handler.HealthHandler)
	router.GET("/readyz", handler.ReadyHandler)
	router.GET("/api/v1/utilization", handler.ReportHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

// Refresher returns the refresher feeding the server.
func (s *Server) Refresher() *Refresher {
	return s.refresher
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the refresher and the HTTP listener, and shuts both down when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.refresher.Start(ctx)

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("Serving utilization on %s (refresh every %v)", s.config.Addr, s.refresher.Interval())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	klog.Info("Server stopped")
	return nil
}
