package grib2

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Decoder turns a GRIB2 file into the single reflectivity grid the projector
// consumes. It implements pipeline.Decoder.
type Decoder struct {
	keywords []string
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewDecoder creates a Decoder. Nil keywords select domain.DefaultVariableKeywords.
func NewDecoder(keywords []string, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Decoder {
	if keywords == nil {
		keywords = domain.DefaultVariableKeywords()
	}
	return &Decoder{keywords: keywords, clock: clock, metrics: metrics, logger: logger}
}

// Decode reads path and returns the selected variable as a RawGrid.
// Unparseable messages and fields are skipped with a warning; the call fails
// with a *domain.DecodeError only when nothing usable remains.
func (d *Decoder) Decode(path string) (domain.RawGrid, error) {
	start := time.Now()
	defer func() {
		d.metrics.StageDuration.WithLabelValues(observability.StageDecode).Observe(time.Since(start).Seconds())
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawGrid{}, &domain.DecodeError{Path: path, Err: err}
	}

	fields, errs := parseFile(data)
	for _, e := range errs {
		d.logger.Warn("skipping unreadable grib2 content", "path", path, "error", e)
	}

	for len(fields) > 0 {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.name()
		}
		idx := domain.SelectVariable(names, d.keywords)
		f := fields[idx]

		values, err := f.unpack()
		if err != nil {
			d.logger.Warn("skipping undecodable field", "path", path, "variable", names[idx], "error", err)
			fields = slices.Delete(fields, idx, idx+1)
			continue
		}

		grid := d.toRawGrid(f, values)
		d.logger.Debug("decoded grid",
			"path", path,
			"variable", grid.Variable,
			"rows", len(grid.Latitudes),
			"cols", len(grid.Longitudes),
			"timestamp", grid.Timestamp,
		)
		return grid, nil
	}

	return domain.RawGrid{}, &domain.DecodeError{Path: path, Err: domain.ErrNoVariables}
}

func (d *Decoder) toRawGrid(f field, values []float32) domain.RawGrid {
	g := f.grid
	rows := make([][]float32, g.nj)
	if g.jConsecutive {
		// Columns are contiguous in the file; transpose into rows.
		flat := make([]float32, len(values))
		for i := 0; i < g.ni; i++ {
			for j := 0; j < g.nj; j++ {
				flat[j*g.ni+i] = values[i*g.nj+j]
			}
		}
		values = flat
	}
	for j := range rows {
		rows[j] = values[j*g.ni : (j+1)*g.ni : (j+1)*g.ni]
	}

	ts := f.refTime
	if ts.IsZero() {
		ts = d.clock.Now()
	}

	return domain.RawGrid{
		Latitudes:  g.lats,
		Longitudes: g.lons,
		Values:     rows,
		Timestamp:  ts.UTC().Format(time.RFC3339),
		Variable:   f.name(),
	}
}

// Describe summarizes every field in path for diagnostics.
func Describe(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.DecodeError{Path: path, Err: err}
	}
	fields, errs := parseFile(data)
	out := make([]string, 0, len(fields)+len(errs))
	for i, f := range fields {
		out = append(out, fmt.Sprintf("field %d: %s (discipline %d, category %d, number %d) %dx%d template 5.%d ref %s",
			i, f.name(), f.discipline, f.category, f.number, f.grid.ni, f.grid.nj, f.rep.template,
			f.refTime.Format(time.RFC3339)))
	}
	for _, e := range errs {
		out = append(out, "skipped: "+e.Error())
	}
	return out, nil
}
