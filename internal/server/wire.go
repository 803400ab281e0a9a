package server

import (
	"time"

	"github.com/sverreng/dtss/internal/series"
)

// Wire payloads for the dtss.Router service. Timestamps travel as
// epoch seconds.

// ReadRequest asks for a batch of series over one read period.
type ReadRequest struct {
	TsIDs []string `json:"ts_ids"`
	Start int64    `json:"start"`
	End   int64    `json:"end"`
}

// Point is one data point on the wire.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// SeriesResult is one position of a read response: either the points
// of the series or the error that kept its repository from producing
// it. Positions match the ts_ids of the request.
type SeriesResult struct {
	TsID   string  `json:"ts_id"`
	Points []Point `json:"points,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ReadResponse carries one result per requested identifier, in
// request order.
type ReadResponse struct {
	Results []SeriesResult `json:"results"`
}

// Cacheable reports whether the response may be served from cache. A
// response with positional errors reflects a transient repository
// failure and must be recomputed on the next request.
func (r *ReadResponse) Cacheable() bool {
	for _, res := range r.Results {
		if res.Error != "" {
			return false
		}
	}
	return true
}

// FindRequest asks for metadata matching a query.
type FindRequest struct {
	Query string `json:"query"`
}

// InfoResult is one metadata entry of a find response.
type InfoResult struct {
	TsID       string `json:"ts_id"`
	Name       string `json:"name"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	PointCount int64  `json:"point_count"`
}

// FindResponse carries the matching metadata entries.
type FindResponse struct {
	Infos []InfoResult `json:"infos"`
}

func (r *ReadRequest) period() series.Period {
	return series.Period{
		Start: time.Unix(r.Start, 0).UTC(),
		End:   time.Unix(r.End, 0).UTC(),
	}
}

func toSeriesResult(id string, s series.Series, err error) SeriesResult {
	if err != nil {
		return SeriesResult{TsID: id, Error: err.Error()}
	}
	points := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		points = append(points, Point{Time: p.Time.Unix(), Value: p.Value})
	}
	return SeriesResult{TsID: id, Points: points}
}

func toInfoResult(info series.Info) InfoResult {
	return InfoResult{
		TsID:       info.ID,
		Name:       info.Name,
		Start:      info.Period.Start.Unix(),
		End:        info.Period.End.Unix(),
		PointCount: info.PointCount,
	}
}
