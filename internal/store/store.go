// Package store persists harmonization runs and their result tables.
package store

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/harmonize/internal/frame"
)

// Run is the metadata of one persisted harmonization.
type Run struct {
	ID         string    `json:"id"`
	TargetYear string    `json:"target_year"`
	Method     string    `json:"method"`
	CRS        string    `json:"crs"`
	RowCount   int       `json:"row_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the persistence interface for harmonization runs.
type Store interface {
	// SaveRun persists the result table and returns the new run.
	SaveRun(ctx context.Context, targetYear, method string, result *frame.Collection) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// LoadResult rebuilds the harmonized collection of a run.
	LoadResult(ctx context.Context, runID string) (*frame.Collection, error)

	Migrate(ctx context.Context) error
	Close() error
}

// encodeRow serializes one result row to (EWKB geometry, variables JSON).
// NaN values are stored as JSON nulls.
func encodeRow(c *frame.Collection, i int) ([]byte, []byte, error) {
	var geomBytes []byte
	if c.Geoms[i] != nil {
		var err error
		geomBytes, err = ewkb.Marshal(c.Geoms[i], ewkb.NDR)
		if err != nil {
			return nil, nil, eris.Wrap(err, "store: encode geometry")
		}
	}

	vars := make(map[string]any)
	for _, name := range c.ColumnNames() {
		v := c.Value(name, i)
		if math.IsNaN(v) {
			vars[name] = nil
		} else {
			vars[name] = v
		}
	}
	varBytes, err := json.Marshal(vars)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: encode variables")
	}
	return geomBytes, varBytes, nil
}

// decodeRow appends one persisted row to the collection being rebuilt.
func decodeRow(c *frame.Collection, id, period string, geomBytes, varBytes []byte) error {
	values := map[string]float64{}
	var raw map[string]*float64
	if len(varBytes) > 0 {
		if err := json.Unmarshal(varBytes, &raw); err != nil {
			return eris.Wrap(err, "store: decode variables")
		}
	}
	for name, v := range raw {
		if v == nil {
			values[name] = math.NaN()
		} else {
			values[name] = *v
		}
	}

	g, err := decodeGeom(geomBytes)
	if err != nil {
		return err
	}
	c.AppendRow(id, period, g, values)
	return nil
}

func decodeGeom(b []byte) (geom.T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode geometry")
	}
	return g, nil
}
