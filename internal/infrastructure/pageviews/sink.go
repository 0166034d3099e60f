package pageviews

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/fileutil"
	"PageviewLabeler/internal/ports"
)

// Header is the column contract of the daily aggregate file.
var Header = []string{"date", "country_code", "label", "views"}

// CSVSink writes the aggregate to a local file.
type CSVSink struct {
	path string
}

var _ ports.AggregateSink = (*CSVSink)(nil)

// NewCSVSink targets path; parent directories are created on write.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the output file location.
func (s *CSVSink) Path() string { return s.path }

// WriteAggregate replaces the output file atomically. Rows are written in the
// order given; callers pass them already sorted.
func (s *CSVSink) WriteAggregate(ctx context.Context, rows []domain.AggregateRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.path, func(w io.Writer) error {
		return WriteAggregate(w, rows)
	}); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// WriteAggregate encodes rows as the four-column aggregate CSV.
func WriteAggregate(w io.Writer, rows []domain.AggregateRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	record := make([]string, len(Header))
	for _, row := range rows {
		record[0] = row.Date
		record[1] = row.CountryCode
		record[2] = row.Label.String()
		record[3] = strconv.FormatInt(row.Views, 10)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAggregate parses a file written by WriteAggregate.
func ReadAggregate(r io.Reader) ([]domain.AggregateRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedInput, err)
	}
	for i, name := range Header {
		if strings.TrimPrefix(header[i], "\ufeff") != name {
			return nil, fmt.Errorf("%w: header %v, want %v", ErrMalformedInput, header, Header)
		}
	}

	var rows []domain.AggregateRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		label, err := domain.ParseLabel(record[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		views, err := strconv.ParseInt(record[3], 10, 64)
		if err != nil || views < 0 {
			return nil, fmt.Errorf("%w: invalid views %q", ErrMalformedInput, record[3])
		}
		rows = append(rows, domain.AggregateRow{Date: record[0], CountryCode: record[1], Label: label, Views: views})
	}
	return rows, nil
}
