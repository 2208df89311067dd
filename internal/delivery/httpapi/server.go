package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type CacheStatus interface {
	State() cache.State
}

type MonitorStatus interface {
	Running() bool
	Symbols() []string
}

type healthResponse struct {
	Status     string `json:"status"`
	Cache      string `json:"cache"`
	Monitoring bool   `json:"monitoring"`
	Symbols    int    `json:"symbols"`
}

// NewRouter serves /healthz and /metrics. The health check reports the cache
// backend and poller state but always answers 200: a cache outage is absorbed
// by the fallback store.
func NewRouter(cacheStatus CacheStatus, monitor MonitorStatus, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:     "ok",
			Cache:      cacheStatus.State().String(),
			Monitoring: monitor.Running(),
			Symbols:    len(monitor.Symbols()),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
