package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sverreng/dtss/internal/series"
)

type fakeSource struct {
	calls   [][]string
	readErr error
}

func (f *fakeSource) Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error) {
	f.calls = append(f.calls, ids)
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := make([]series.Series, 0, len(ids))
	for _, id := range ids {
		out = append(out, series.Series{
			ID:     id,
			Points: []series.Point{{Time: period.Start, Value: 1}},
		})
	}
	return out, nil
}

type fakeSink struct {
	inserted  [][]series.Series
	insertErr error
}

func (f *fakeSink) BatchInsert(ctx context.Context, data []series.Series) error {
	f.inserted = append(f.inserted, data)
	return f.insertErr
}

func TestCollectTranslatesToStoreIDs(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	ids := []string{"netatmo://home/Temperature", "netatmo://home/outdoor/Humidity"}
	c := New(source, sink, ids, nil)

	period := series.Period{Start: time.Unix(100, 0), End: time.Unix(200, 0)}
	require.NoError(t, c.Collect(context.Background(), period))

	require.Len(t, source.calls, 1)
	assert.Equal(t, ids, source.calls[0], "source is read with the original identifiers")

	require.Len(t, sink.inserted, 1)
	stored := sink.inserted[0]
	require.Len(t, stored, 2)
	assert.Equal(t, "store://netatmo/home/Temperature", stored[0].ID)
	assert.Equal(t, "store://netatmo/home/outdoor/Humidity", stored[1].ID)
	assert.NotEmpty(t, stored[0].Points)
}

func TestCollectNoIDs(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	c := New(source, sink, nil, nil)

	require.NoError(t, c.Collect(context.Background(), series.Period{
		Start: time.Unix(100, 0), End: time.Unix(200, 0),
	}))
	assert.Empty(t, source.calls)
	assert.Empty(t, sink.inserted)
}

func TestCollectSourceError(t *testing.T) {
	source := &fakeSource{readErr: errors.New("api down")}
	sink := &fakeSink{}
	c := New(source, sink, []string{"netatmo://home/Temperature"}, nil)

	err := c.Collect(context.Background(), series.Period{
		Start: time.Unix(100, 0), End: time.Unix(200, 0),
	})
	require.Error(t, err)
	assert.Empty(t, sink.inserted, "nothing may be stored when the read fails")
}

func TestCollectSinkError(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{insertErr: errors.New("db down")}
	c := New(source, sink, []string{"netatmo://home/Temperature"}, nil)

	err := c.Collect(context.Background(), series.Period{
		Start: time.Unix(100, 0), End: time.Unix(200, 0),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestStoreID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		out     string
		wantErr bool
	}{
		{
			name: "URL style",
			in:   "netatmo://home/Temperature",
			out:  "store://netatmo/home/Temperature",
		},
		{
			name: "Plain style",
			in:   "mock:x",
			out:  "store://mock/x",
		},
		{
			name:    "No scheme",
			in:      "bogus",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := StoreID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.out, out)
		})
	}
}
