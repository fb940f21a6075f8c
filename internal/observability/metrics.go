// File: internal/observability/metrics.go
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// StatusFunc reports the last completed pass, nil before the first one.
type StatusFunc func() *fsck.PassStatus

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status   string           `json:"status"`
	LastPass *fsck.PassStatus `json:"last_pass,omitempty"`
}

// MetricsServer exposes the check gauges on /metrics and the pass status on
// /healthz.
type MetricsServer struct {
	addr   string
	router *gin.Engine
	logger *zap.Logger
}

// NewMetricsServer builds the server. Nothing listens until Run.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, status StatusFunc, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(health(status))
	})

	return &MetricsServer{addr: addr, router: router, logger: logger.Named("metrics")}
}

// health is 200 until a pass fails to reach the graph, then 503 until one
// succeeds again.
func health(status StatusFunc) (int, HealthResponse) {
	var last *fsck.PassStatus
	if status != nil {
		last = status()
	}
	switch {
	case last == nil:
		return http.StatusOK, HealthResponse{Status: "pending"}
	case last.Error != "":
		return http.StatusServiceUnavailable, HealthResponse{Status: "error", LastPass: last}
	default:
		return http.StatusOK, HealthResponse{Status: "ok", LastPass: last}
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *MetricsServer) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *MetricsServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *MetricsServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving metrics", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		s.logger.Info("Metrics server stopped")
		return nil
	}
}
