package middleware

// This in-memory cache is used for simplicity purposes. It can be
// replaced with Redis. golang-lru automatically evicts the least
// recently accessed items, ensuring efficient memory usage.

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/grpc"
)

var cache *lru.Cache

// InitializeCache sets up an in-memory LRU cache.
func InitializeCache(size int) error {
	var err error
	cache, err = lru.New(size)
	return err
}

// uncacheable lets a response opt out of caching. A response carrying
// per-item errors must not outlive the failure that produced it.
type uncacheable interface {
	Cacheable() bool
}

// CachingInterceptor is a gRPC middleware for caching responses in
// memory. Only successful responses are cached.
func CachingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	key := generateCacheKey(info.FullMethod, req)

	if cachedResp, ok := cache.Get(key); ok {
		return cachedResp, nil
	}

	resp, err := handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if u, ok := resp.(uncacheable); ok && !u.Cacheable() {
		return resp, nil
	}

	cache.Add(key, resp)
	return resp, nil
}

// generateCacheKey generates a cache key based on the gRPC method and
// request.
func generateCacheKey(method string, req interface{}) string {
	reqBytes, _ := json.Marshal(req) // Ignore errors for simplicity.
	return fmt.Sprintf("%s:%s", method, string(reqBytes))
}
