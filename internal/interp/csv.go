package interp

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// LoadCSV reads a weight table from a CSV file of
// source_id,target_id,area rows. IDs are resolved to positional indices
// against the given source and target identifier orders. A leading header
// row is skipped when its area field does not parse as a number.
func LoadCSV(path string, sourceIDs, targetIDs []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "interp: open weight table %s", path)
	}
	defer func() { _ = f.Close() }()

	srcIdx := indexOf(sourceIDs)
	tgtIdx := indexOf(targetIDs)

	table := &Table{
		NumSource: len(sourceIDs),
		NumTarget: len(targetIDs),
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "interp: read weight table %s", path)
		}
		line++

		area, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			if line == 1 {
				// Header row.
				continue
			}
			return nil, eris.Wrapf(err, "interp: %s line %d: bad area %q", path, line, rec[2])
		}

		si, ok := srcIdx[rec[0]]
		if !ok {
			return nil, eris.Errorf("interp: %s line %d: unknown source id %q", path, line, rec[0])
		}
		ti, ok := tgtIdx[rec[1]]
		if !ok {
			return nil, eris.Errorf("interp: %s line %d: unknown target id %q", path, line, rec[1])
		}

		table.Entries = append(table.Entries, Entry{Source: si, Target: ti, Area: area})
	}

	return table, nil
}

func indexOf(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}
