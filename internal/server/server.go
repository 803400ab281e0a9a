// Package server exposes the query router over gRPC. The service is
// registered through a hand-written descriptor with a JSON codec, and
// every request passes an interceptor chain for request ids, rate
// limiting, logging, metrics and response caching.
package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	middleware "github.com/sverreng/dtss/internal/server/middlewares"
)

// Config holds configuration options for the gRPC server.
type Config struct {
	CacheSize      int     // Size of the LRU response cache
	RateLimit      float64 // Requests per second
	RateLimitBurst int     // Maximum burst size for rate limiting
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize:      1000,
		RateLimit:      5.0,
		RateLimitBurst: 10,
	}
}

// Setup initializes and configures the gRPC server with all middleware
// and registers the router service plus the standard health service.
func Setup(h Handler, cfg Config, logger *logrus.Logger) (*grpc.Server, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if err := middleware.InitializeCache(cfg.CacheSize); err != nil {
		return nil, err
	}
	if err := registerMetrics(); err != nil {
		return nil, err
	}

	srv := grpc.NewServer(
		grpc.UnaryInterceptor(
			chainUnaryInterceptors(
				middleware.ContextMiddleware, // Add request ID first
				middleware.NewRateLimitingInterceptor(cfg.RateLimit, cfg.RateLimitBurst), // Rate limit early
				middleware.NewLoggingInterceptor(logger),                                 // Log all requests (with request ID)
				middleware.MetricsInterceptor,                                            // Collect metrics
				middleware.CachingInterceptor,                                            // Cache last to avoid caching errors
			),
		),
	)

	srv.RegisterService(&RouterServiceDesc, NewRouterService(h))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)

	return srv, nil
}

// registerMetrics registers the middleware collectors, tolerating
// repeated Setup calls within one process.
func registerMetrics() error {
	for _, c := range []prometheus.Collector{middleware.Requests, middleware.Latency} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// chainUnaryInterceptors creates a single interceptor from multiple
// interceptors.
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			chainedHandler := chain
			chain = func(currentCtx context.Context, currentReq interface{}) (interface{}, error) {
				return interceptor(currentCtx, currentReq, info, chainedHandler)
			}
		}
		return chain(ctx, req)
	}
}
