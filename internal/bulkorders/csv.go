package bulkorders

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

// ReadCSV splits an import file into its header row and keyed data rows.
// Blank lines are skipped; line numbers count the header as line 1.
func ReadCSV(r io.Reader) ([]string, []Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeEmptyBatch, "No valid order data found.")
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "Could not read CSV header.")
	}
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "Could not read CSV rows.")
		}
		line, _ := reader.FieldPos(0)
		fields := make(map[string]string, len(headers))
		blank := true
		for i, h := range headers {
			if i < len(record) {
				fields[h] = record[i]
				if strings.TrimSpace(record[i]) != "" {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Line: line, Fields: fields})
	}
	return headers, rows, nil
}
