package middleware

import (
	"context"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

// Requests counts served requests per method.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dtss_requests_total",
		Help: "Number of requests served, by method.",
	},
	[]string{"method"},
)

// Latency observes request duration per method.
var Latency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "dtss_request_duration_seconds",
		Help:    "Request duration in seconds, by method.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method"},
)

// MetricsInterceptor records request counts and latency.
func MetricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	duration := time.Since(start).Seconds()
	method := path.Base(info.FullMethod)

	Requests.WithLabelValues(method).Inc()
	Latency.WithLabelValues(method).Observe(duration)

	return resp, err
}
