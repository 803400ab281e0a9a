package server

import (
	"fmt"
	"time"
)

const maxReadRange = 2 * 365 * 24 * time.Hour

// RequestValidator checks requests at the service edge before they
// reach the router.
type RequestValidator struct {
	maxRange time.Duration
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{maxRange: maxReadRange}
}

// ValidateRead checks a read request: identifiers present, timestamps
// present and ordered, range within the maximum.
func (v *RequestValidator) ValidateRead(req *ReadRequest) error {
	if len(req.TsIDs) == 0 {
		return fmt.Errorf("missing ts_ids")
	}
	if req.Start == 0 || req.End == 0 {
		return fmt.Errorf("missing timestamp")
	}
	if req.Start > req.End {
		return fmt.Errorf("start time must be before end time")
	}
	if time.Duration(req.End-req.Start)*time.Second > v.maxRange {
		return fmt.Errorf("time range exceeds maximum allowed")
	}
	return nil
}

// ValidateFind checks a find request.
func (v *RequestValidator) ValidateFind(req *FindRequest) error {
	if req.Query == "" {
		return fmt.Errorf("missing query")
	}
	return nil
}
