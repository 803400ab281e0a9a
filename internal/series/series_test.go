package series

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemeOf(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		scheme  string
		wantErr bool
	}{
		{
			name:   "Plain scheme",
			id:     "netatmo:living-room/temperature",
			scheme: "netatmo",
		},
		{
			name:   "URL style identifier",
			id:     "netatmo://station/module/temperature",
			scheme: "netatmo",
		},
		{
			name:   "Heartbeat query",
			id:     "heartbeat://callback/startup-verification",
			scheme: "heartbeat",
		},
		{
			name:    "No delimiter",
			id:      "bogus",
			wantErr: true,
		},
		{
			name:    "Empty scheme",
			id:      ":rest",
			wantErr: true,
		},
		{
			name:    "Empty identifier",
			id:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, err := SchemeOf(tt.id)

			if tt.wantErr {
				require.Error(t, err)
				var invalid *InvalidIdentifierError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, tt.id, invalid.ID)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.scheme, scheme)
		})
	}
}

func TestPeriodValid(t *testing.T) {
	now := time.Now()

	assert.True(t, Period{Start: now, End: now.Add(time.Hour)}.Valid())
	assert.True(t, Period{Start: now, End: now}.Valid())
	assert.False(t, Period{Start: now.Add(time.Hour), End: now}.Valid())
}

func TestPeriodContains(t *testing.T) {
	start := time.Unix(100, 0)
	end := time.Unix(200, 0)
	p := Period{Start: start, End: end}

	assert.True(t, p.Contains(start))
	assert.True(t, p.Contains(time.Unix(150, 0)))
	assert.False(t, p.Contains(end), "period end is exclusive")
	assert.False(t, p.Contains(time.Unix(99, 0)))
}
