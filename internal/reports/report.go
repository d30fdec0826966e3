// Package reports keeps import error reports for later download. Reports
// expire after a TTL in every backend.
package reports

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/google/uuid"
)

// ReasonColumn is appended to the original headers when a report is rendered.
const ReasonColumn = "error_reason"

// FailedRow is one input row that did not produce an order.
type FailedRow struct {
	Line    int               `json:"line"`
	GroupID string            `json:"group_id"`
	Fields  map[string]string `json:"fields"`
	Reason  string            `json:"reason"`
}

// Report is the set of failed rows of one import run.
type Report struct {
	ID        string      `json:"id"`
	Headers   []string    `json:"headers"`
	Rows      []FailedRow `json:"rows"`
	CreatedAt time.Time   `json:"created_at"`
}

// New builds a report with a fresh id.
func New(headers []string, rows []FailedRow, now time.Time) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Headers:   append([]string(nil), headers...),
		Rows:      rows,
		CreatedAt: now.UTC(),
	}
}

// WriteCSV renders the original headers plus error_reason, one record per
// failed row in input order.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), r.Headers...), ReasonColumn)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range r.Rows {
		record := make([]string, 0, len(header))
		for _, name := range r.Headers {
			record = append(record, row.Fields[name])
		}
		reason := row.Reason
		if reason == "" {
			reason = "Unknown error"
		}
		record = append(record, reason)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Store persists reports by id. Get fails with CodeNotFound once a report
// is unknown or expired.
type Store interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, id string) (*Report, error)
}
