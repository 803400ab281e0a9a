// Package netatmo implements the data collection repository backed by
// the Netatmo weather station API. Identifiers name measurements by
// device, optional module and data type; reads are translated into
// rate-limited getmeasure calls against the remote API.
package netatmo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/repository"
	"github.com/sverreng/dtss/internal/series"
)

// Compile-time interface implementation check
var _ repository.Repository = (*Repository)(nil)

// Scheme is the identifier scheme the netatmo repository owns.
const Scheme = "netatmo"

// Config holds the credentials and limits for the Netatmo API.
type Config struct {
	ClientID     string              `mapstructure:"client_id"`
	ClientSecret string              `mapstructure:"client_secret"`
	Username     string              `mapstructure:"username"`
	Password     string              `mapstructure:"password"`
	BaseURL      string              `mapstructure:"base_url"`
	APILimits    map[string]APILimit `mapstructure:"api_limits"`
}

// station is the resolved metadata for one device and its modules,
// used to translate measurement references into API ids.
type station struct {
	id        string
	name      string
	dataTypes []string
	modules   map[string]moduleData // by module name
}

// Repository reads measurements from the Netatmo API.
type Repository struct {
	client *client
	logger *logrus.Logger

	mu       sync.Mutex
	stations map[string]*station // by station name
}

// New creates a Netatmo repository. No API call is made until the
// first read or find.
func New(cfg Config, logger *logrus.Logger) *Repository {
	if logger == nil {
		logger = logrus.New()
	}
	return &Repository{
		client: newClient(cfg),
		logger: logger,
	}
}

func (r *Repository) Name() string { return Scheme }

// Read fetches one series per identifier from the API, in input order.
func (r *Repository) Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error) {
	out := make([]series.Series, 0, len(ids))
	for _, id := range ids {
		s, err := r.readOne(ctx, id, period)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) readOne(ctx context.Context, id string, period series.Period) (series.Series, error) {
	ref, err := ParseID(id)
	if err != nil {
		return series.Series{}, err
	}

	deviceID, moduleID, err := r.resolve(ctx, ref)
	if err != nil {
		return series.Series{}, err
	}

	points, err := r.readMeasurements(ctx, deviceID, moduleID, ref.DataType, period)
	if err != nil {
		return series.Series{}, err
	}

	r.logger.WithFields(logrus.Fields{
		"ts_id":  id,
		"points": len(points),
	}).Debug("Netatmo read")

	return series.Series{ID: id, Points: points}, nil
}

// readMeasurements pages getmeasure calls until the period is covered.
// Each response is capped at 1024 values by the API.
func (r *Repository) readMeasurements(ctx context.Context, deviceID, moduleID, dataType string, period series.Period) ([]series.Point, error) {
	var points []series.Point
	begin := period.Start

	for begin.Before(period.End) {
		batches, err := r.client.getMeasure(ctx, deviceID, moduleID, dataType, begin, period.End)
		if err != nil {
			return nil, err
		}

		// Points before begin were already collected by a previous
		// page; only advance on genuinely new points.
		progressed := false
		var last time.Time
		for _, batch := range batches {
			ts := time.Unix(batch.BegTime, 0)
			step := time.Duration(batch.StepTime) * time.Second
			for _, values := range batch.Value {
				if !ts.Before(begin) {
					if len(values) > 0 && values[0] != nil {
						points = append(points, series.Point{Time: ts, Value: *values[0]})
					}
					last = ts
					progressed = true
				}
				ts = ts.Add(step)
			}
		}

		if !progressed {
			break
		}
		begin = last.Add(time.Second)
	}

	return points, nil
}

// resolve maps a measurement reference onto API device and module ids,
// loading station metadata on first use.
func (r *Repository) resolve(ctx context.Context, ref MeasurementRef) (deviceID, moduleID string, err error) {
	stations, err := r.loadStations(ctx)
	if err != nil {
		return "", "", err
	}

	st, ok := stations[ref.Device]
	if !ok {
		return "", "", fmt.Errorf("netatmo station %q not found", ref.Device)
	}
	if ref.Module == "" {
		if !contains(st.dataTypes, ref.DataType) {
			return "", "", fmt.Errorf("netatmo station %q has no data type %q", ref.Device, ref.DataType)
		}
		return st.id, "", nil
	}

	mod, ok := st.modules[ref.Module]
	if !ok {
		return "", "", fmt.Errorf("netatmo station %q has no module %q", ref.Device, ref.Module)
	}
	if !contains(mod.DataTypes, ref.DataType) {
		return "", "", fmt.Errorf("netatmo module %q has no data type %q", ref.Module, ref.DataType)
	}
	return st.id, mod.ID, nil
}

func (r *Repository) loadStations(ctx context.Context) (map[string]*station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stations != nil {
		return r.stations, nil
	}

	data, err := r.client.getStationsData(ctx)
	if err != nil {
		return nil, err
	}

	stations := make(map[string]*station, len(data.Devices))
	for _, dev := range data.Devices {
		st := &station{
			id:        dev.ID,
			name:      dev.StationName,
			dataTypes: dev.DataTypes,
			modules:   make(map[string]moduleData, len(dev.Modules)),
		}
		for _, mod := range dev.Modules {
			st.modules[mod.ModuleName] = mod
		}
		stations[dev.StationName] = st
	}

	r.stations = stations
	return stations, nil
}

// Find matches the query reference against the known stations and
// modules. A query names a station, optionally a module, optionally a
// data type; every measurement under the query is returned.
func (r *Repository) Find(ctx context.Context, query string) ([]series.Info, error) {
	ref, err := ParseID(query)
	if err != nil {
		return nil, err
	}

	stations, err := r.loadStations(ctx)
	if err != nil {
		return nil, err
	}

	st, ok := stations[ref.Device]
	if !ok {
		return nil, nil
	}

	var infos []series.Info
	if ref.Module == "" {
		// A two-segment query matches the data type on the station
		// itself and on every module that carries it.
		for _, dt := range st.dataTypes {
			if strings.EqualFold(ref.DataType, dt) {
				infos = append(infos, r.info(MeasurementRef{Device: st.name, DataType: dt}))
			}
		}
		for name, mod := range st.modules {
			for _, dt := range mod.DataTypes {
				if strings.EqualFold(ref.DataType, dt) {
					infos = append(infos, r.info(MeasurementRef{Device: st.name, Module: name, DataType: dt}))
				}
			}
		}
		return infos, nil
	}

	mod, ok := st.modules[ref.Module]
	if !ok {
		return nil, nil
	}
	for _, dt := range mod.DataTypes {
		if strings.EqualFold(ref.DataType, dt) {
			infos = append(infos, r.info(MeasurementRef{Device: st.name, Module: ref.Module, DataType: dt}))
		}
	}
	return infos, nil
}

func (r *Repository) info(ref MeasurementRef) series.Info {
	return series.Info{
		ID:   CreateID(ref),
		Name: ref.DataType,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
