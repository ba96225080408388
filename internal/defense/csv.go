package defense

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseCSV turns CSV text with a header row into one map per data row.
// Rows whose field count differs from the header are skipped.
func parseCSV(payload []byte) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	hdr, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range hdr {
		hdr[i] = strings.TrimSpace(strings.TrimPrefix(hdr[i], "\ufeff"))
	}

	var rows []map[string]any
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// one bad row should not sink the batch
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) != len(hdr) {
			continue
		}

		row := make(map[string]any, len(hdr))
		for i, name := range hdr {
			if name == "" {
				continue
			}
			row[name] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}

	return rows, nil
}
