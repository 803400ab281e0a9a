package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
)

// Mock handler to simulate gRPC handler behavior.
func mockHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "response-" + req.(string), nil
}

func TestCachingInterceptor(t *testing.T) {
	err := InitializeCache(2)
	assert.NoError(t, err, "Failed to initialize cache")

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{
		FullMethod: "/dtss.Router/Read",
	}

	// cache miss
	req1 := "request1"
	resp, err := CachingInterceptor(ctx, req1, info, mockHandler)
	assert.NoError(t, err, "Error in first request")
	assert.Equal(t, "response-request1", resp, "Unexpected response for first request")

	// cache hit
	respCached, err := CachingInterceptor(ctx, req1, info, mockHandler)
	assert.NoError(t, err, "Error in cached request")
	assert.Equal(t, resp, respCached, "Cached response did not match original response")

	// Different request - cache miss
	req2 := "request2"
	resp2, err := CachingInterceptor(ctx, req2, info, mockHandler)
	assert.NoError(t, err, "Error in second request")
	assert.Equal(t, "response-request2", resp2, "Unexpected response for second request")

	// A third request evicts the first from the size-2 cache.
	req3 := "request3"
	_, err = CachingInterceptor(ctx, req3, info, mockHandler)
	assert.NoError(t, err, "Error in third request")

	respEvicted, ok := cache.Get(generateCacheKey(info.FullMethod, req1))
	assert.False(t, ok, "Expected first request to be evicted from cache")
	assert.Nil(t, respEvicted, "Evicted cache entry should be nil")
}

// flaggedResponse opts out of caching when ok is false.
type flaggedResponse struct {
	Value string
	ok    bool
}

func (r *flaggedResponse) Cacheable() bool { return r.ok }

func TestCachingInterceptorSkipsUncacheableResponses(t *testing.T) {
	assert.NoError(t, InitializeCache(2))

	info := &grpc.UnaryServerInfo{FullMethod: "/dtss.Router/Read"}
	degraded := func(ctx context.Context, req interface{}) (interface{}, error) {
		return &flaggedResponse{Value: "partial", ok: false}, nil
	}

	resp, err := CachingInterceptor(context.Background(), "req", info, degraded)
	assert.NoError(t, err)
	assert.Equal(t, "partial", resp.(*flaggedResponse).Value)

	_, ok := cache.Get(generateCacheKey(info.FullMethod, "req"))
	assert.False(t, ok, "responses that opt out must not be cached")

	healthy := func(ctx context.Context, req interface{}) (interface{}, error) {
		return &flaggedResponse{Value: "full", ok: true}, nil
	}
	_, err = CachingInterceptor(context.Background(), "req", info, healthy)
	assert.NoError(t, err)

	cached, ok := cache.Get(generateCacheKey(info.FullMethod, "req"))
	assert.True(t, ok)
	assert.Equal(t, "full", cached.(*flaggedResponse).Value)
}

func TestCachingInterceptorSkipsErrors(t *testing.T) {
	assert.NoError(t, InitializeCache(2))

	info := &grpc.UnaryServerInfo{FullMethod: "/dtss.Router/Find"}
	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}

	_, err := CachingInterceptor(context.Background(), "req", info, failing)
	assert.Error(t, err)

	_, ok := cache.Get(generateCacheKey(info.FullMethod, "req"))
	assert.False(t, ok, "errors must not be cached")
}
