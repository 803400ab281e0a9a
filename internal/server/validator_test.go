package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRead(t *testing.T) {
	v := NewRequestValidator()

	tests := []struct {
		name    string
		req     *ReadRequest
		wantErr bool
	}{
		{
			name: "Valid input",
			req:  &ReadRequest{TsIDs: []string{"mock:a"}, Start: 100, End: 200},
		},
		{
			name:    "No identifiers",
			req:     &ReadRequest{Start: 100, End: 200},
			wantErr: true,
		},
		{
			name:    "Missing start",
			req:     &ReadRequest{TsIDs: []string{"mock:a"}, End: 200},
			wantErr: true,
		},
		{
			name:    "Missing end",
			req:     &ReadRequest{TsIDs: []string{"mock:a"}, Start: 100},
			wantErr: true,
		},
		{
			name:    "Start after end",
			req:     &ReadRequest{TsIDs: []string{"mock:a"}, Start: 200, End: 100},
			wantErr: true,
		},
		{
			name: "Equal start and end",
			req:  &ReadRequest{TsIDs: []string{"mock:a"}, Start: 100, End: 100},
		},
		{
			name:    "Range beyond two years",
			req:     &ReadRequest{TsIDs: []string{"mock:a"}, Start: 1, End: 1 + 3*365*24*3600},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRead(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFind(t *testing.T) {
	v := NewRequestValidator()

	assert.NoError(t, v.ValidateFind(&FindRequest{Query: "mock:q"}))
	assert.Error(t, v.ValidateFind(&FindRequest{}))
}
