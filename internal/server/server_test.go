package server_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/sverreng/dtss/internal/router"
	"github.com/sverreng/dtss/internal/server"
	"github.com/sverreng/dtss/internal/series"
)

// fakeHandler answers reads with one single-point series per id and
// finds with a single metadata entry.
type fakeHandler struct {
	readErr error
	itemErr error
}

func (f *fakeHandler) Read(ctx context.Context, ids []string, period series.Period) ([]router.Result, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	results := make([]router.Result, 0, len(ids))
	for i, id := range ids {
		res := router.Result{ID: id}
		if f.itemErr != nil && i == 0 {
			res.Err = f.itemErr
		} else {
			res.Series = series.Series{
				ID:     id,
				Points: []series.Point{{Time: period.Start, Value: 42}},
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (f *fakeHandler) Find(ctx context.Context, query string) ([]series.Info, error) {
	return []series.Info{{
		ID:     query,
		Name:   "found",
		Period: series.Period{Start: time.Unix(0, 0), End: time.Unix(1, 0)},
	}}, nil
}

func startServer(t *testing.T, h server.Handler) *server.Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, err := server.Setup(h, server.DefaultConfig(), nil)
	require.NoError(t, err)

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := server.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestReadOverWire(t *testing.T) {
	client := startServer(t, &fakeHandler{})

	resp, err := client.Read(context.Background(), &server.ReadRequest{
		TsIDs: []string{"mock:a", "mock:b"},
		Start: 100,
		End:   200,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "mock:a", resp.Results[0].TsID)
	require.Len(t, resp.Results[0].Points, 1)
	assert.Equal(t, int64(100), resp.Results[0].Points[0].Time)
	assert.Equal(t, 42.0, resp.Results[0].Points[0].Value)
	assert.Empty(t, resp.Results[0].Error)
}

func TestReadPartialFailureOverWire(t *testing.T) {
	client := startServer(t, &fakeHandler{itemErr: errors.New("upstream unreachable")})

	resp, err := client.Read(context.Background(), &server.ReadRequest{
		TsIDs: []string{"mock:a", "mock:b"},
		Start: 100,
		End:   200,
	})
	require.NoError(t, err, "per-item failures must not fail the RPC")
	require.Len(t, resp.Results, 2)
	assert.Contains(t, resp.Results[0].Error, "upstream unreachable")
	assert.Empty(t, resp.Results[1].Error)
}

// recoveringHandler fails position 0 on the first read only, like a
// repository recovering from a transient outage.
type recoveringHandler struct {
	fakeHandler
	calls int32
}

func (h *recoveringHandler) Read(ctx context.Context, ids []string, period series.Period) ([]router.Result, error) {
	if atomic.AddInt32(&h.calls, 1) == 1 {
		failing := fakeHandler{itemErr: errors.New("upstream unreachable")}
		return failing.Read(ctx, ids, period)
	}
	return h.fakeHandler.Read(ctx, ids, period)
}

func TestPartialFailureIsNotCached(t *testing.T) {
	client := startServer(t, &recoveringHandler{})

	req := &server.ReadRequest{
		TsIDs: []string{"mock:a", "mock:b"},
		Start: 100,
		End:   200,
	}

	resp, err := client.Read(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	require.NotEmpty(t, resp.Results[0].Error)

	resp, err = client.Read(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Error,
		"recovered result must not be shadowed by a cached failure")
	require.Len(t, resp.Results[0].Points, 1)
}

func TestReadValidation(t *testing.T) {
	client := startServer(t, &fakeHandler{})

	tests := []struct {
		name string
		req  *server.ReadRequest
		msg  string
	}{
		{
			name: "Missing ts_ids",
			req:  &server.ReadRequest{Start: 100, End: 200},
			msg:  "missing ts_ids",
		},
		{
			name: "Missing timestamps",
			req:  &server.ReadRequest{TsIDs: []string{"mock:a"}},
			msg:  "missing timestamp",
		},
		{
			name: "Inverted range",
			req:  &server.ReadRequest{TsIDs: []string{"mock:a"}, Start: 200, End: 100},
			msg:  "start time must be before end time",
		},
		{
			name: "Excessive range",
			req: &server.ReadRequest{
				TsIDs: []string{"mock:a"},
				Start: 1,
				End:   1 + 3*365*24*3600,
			},
			msg: "time range exceeds maximum allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Read(context.Background(), tt.req)
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.InvalidArgument, st.Code())
			assert.Contains(t, st.Message(), tt.msg)
		})
	}
}

func TestRoutingErrorsMapToInvalidArgument(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "Invalid identifier",
			err:  &series.InvalidIdentifierError{ID: "bogus"},
		},
		{
			name: "Unknown scheme",
			err:  &router.UnknownSchemeError{Scheme: "other", Known: []string{"mock"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startServer(t, &fakeHandler{readErr: tt.err})

			_, err := client.Read(context.Background(), &server.ReadRequest{
				TsIDs: []string{"mock:a"},
				Start: 100,
				End:   200,
			})
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.InvalidArgument, st.Code())
		})
	}
}

func TestInternalErrorsMapToInternal(t *testing.T) {
	client := startServer(t, &fakeHandler{readErr: errors.New("boom")})

	_, err := client.Read(context.Background(), &server.ReadRequest{
		TsIDs: []string{"mock:a"},
		Start: 100,
		End:   200,
	})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}

func TestFindOverWire(t *testing.T) {
	client := startServer(t, &fakeHandler{})

	resp, err := client.Find(context.Background(), &server.FindRequest{
		Query: "mock:anything",
	})
	require.NoError(t, err)
	require.Len(t, resp.Infos, 1)
	assert.Equal(t, "mock:anything", resp.Infos[0].TsID)
	assert.Equal(t, "found", resp.Infos[0].Name)
}

func TestFindValidation(t *testing.T) {
	client := startServer(t, &fakeHandler{})

	_, err := client.Find(context.Background(), &server.FindRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
}

func TestSetupRejectsInvalidCacheSize(t *testing.T) {
	_, err := server.Setup(&fakeHandler{}, server.Config{CacheSize: -1}, nil)
	require.Error(t, err)
}
