package netatmo

import (
	"fmt"
	"strings"

	"github.com/sverreng/dtss/internal/series"
)

// Identifiers name one measurement on one device, optionally behind a
// module:
//
//	netatmo://<device>/<data-type>
//	netatmo://<device>/<module>/<data-type>
//
// Find queries use the same format.

// ParseError reports an identifier that does not follow the netatmo
// identifier format.
type ParseError struct {
	ID     string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid netatmo ts_id %q: %s", e.ID, e.Reason)
}

// MeasurementRef is the parsed form of a netatmo identifier.
type MeasurementRef struct {
	Device   string
	Module   string // empty for measurements on the device itself
	DataType string
}

// CreateID builds an identifier for a measurement.
func CreateID(ref MeasurementRef) string {
	if ref.Module != "" {
		return fmt.Sprintf("%s://%s/%s/%s", Scheme, ref.Device, ref.Module, ref.DataType)
	}
	return fmt.Sprintf("%s://%s/%s", Scheme, ref.Device, ref.DataType)
}

// ParseID parses an identifier into its measurement reference.
func ParseID(id string) (MeasurementRef, error) {
	scheme, err := series.SchemeOf(id)
	if err != nil {
		return MeasurementRef{}, err
	}
	if scheme != Scheme {
		return MeasurementRef{}, &ParseError{ID: id, Reason: "scheme does not match repository scheme " + Scheme}
	}

	rest := strings.TrimPrefix(id, Scheme+"://")
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return MeasurementRef{}, &ParseError{ID: id, Reason: "empty device or data type"}
		}
		return MeasurementRef{Device: parts[0], DataType: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return MeasurementRef{}, &ParseError{ID: id, Reason: "empty device, module or data type"}
		}
		return MeasurementRef{Device: parts[0], Module: parts[1], DataType: parts[2]}, nil
	default:
		return MeasurementRef{}, &ParseError{ID: id, Reason: "expected <device>/<data-type> or <device>/<module>/<data-type>"}
	}
}
