package pageviews

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// ErrMalformedInput marks a raw file that cannot be parsed.
var ErrMalformedInput = errors.New("malformed pageview input")

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVSource reads one raw pageview CSV per configured country.
type CSVSource struct {
	countries []config.CountryConfig
	columns   config.ColumnConfig
	logger    *slog.Logger
}

var _ ports.PageviewSource = (*CSVSource)(nil)

// NewCSVSource wires the country list with the configured column names.
func NewCSVSource(countries []config.CountryConfig, columns config.ColumnConfig, logger *slog.Logger) *CSVSource {
	return &CSVSource{
		countries: countries,
		columns:   columns,
		logger:    logging.Component(logger, "pageviews"),
	}
}

// Load reads every configured country file in configuration order.
func (s *CSVSource) Load(ctx context.Context) ([]domain.CountryPageviews, error) {
	if len(s.countries) == 0 {
		return nil, fmt.Errorf("%w: no countries configured", ErrMalformedInput)
	}

	out := make([]domain.CountryPageviews, 0, len(s.countries))
	for _, country := range s.countries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := s.loadCountry(country)
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", country.Code, err)
		}
		s.logger.Debug("country loaded", "country", country.Code, "path", country.Path, "rows", len(loaded.Rows))
		out = append(out, loaded)
	}
	return out, nil
}

func (s *CSVSource) loadCountry(country config.CountryConfig) (domain.CountryPageviews, error) {
	f, err := os.Open(country.Path)
	if err != nil {
		return domain.CountryPageviews{}, fmt.Errorf("open %s: %w", country.Path, err)
	}
	defer f.Close()

	h := sha256.New()
	rows, err := ReadRows(io.TeeReader(f, h), country.Code, s.columns)
	if err != nil {
		return domain.CountryPageviews{}, fmt.Errorf("%s: %w", country.Path, err)
	}
	// Drain whatever the CSV reader left unread so the digest covers the file.
	if _, err := io.Copy(h, f); err != nil {
		return domain.CountryPageviews{}, fmt.Errorf("hash %s: %w", country.Path, err)
	}

	return domain.CountryPageviews{
		CountryCode: country.Code,
		Source:      country.Path,
		Digest:      hex.EncodeToString(h.Sum(nil)),
		Rows:        rows,
	}, nil
}

// ReadRows parses a headed pageview CSV. Columns are located by name so their
// order and any extra columns do not matter.
func ReadRows(r io.Reader, countryCode string, columns config.ColumnConfig) ([]domain.PageviewRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	qidCol, dateCol, viewsCol := -1, -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case columns.QID:
			qidCol = i
		case columns.Date:
			dateCol = i
		case columns.Views:
			viewsCol = i
		}
	}
	if qidCol < 0 || dateCol < 0 || viewsCol < 0 {
		return nil, fmt.Errorf("%w: header %v lacks one of %q, %q, %q", ErrMalformedInput, header, columns.QID, columns.Date, columns.Views)
	}
	width := max(qidCol, dateCol, viewsCol) + 1

	var rows []domain.PageviewRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) < width {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedInput, line, len(record))
		}

		date, err := parseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		views, err := parseViews(record[viewsCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}

		qid := record[qidCol]
		if domain.IsMissingQID(qid) {
			qid = ""
		} else {
			qid = domain.NormalizeQID(qid)
		}

		rows = append(rows, domain.PageviewRow{
			CountryCode: countryCode,
			QID:         qid,
			Date:        date,
			Views:       views,
		})
	}
	return rows, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// parseViews accepts integers and integral floats such as "1200.0".
func parseViews(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative views %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid views %q", raw)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no longer fits.
	if f < 0 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("views %q out of range", raw)
	}
	return int64(f), nil
}
