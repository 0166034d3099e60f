// Package summary computes the views the dashboard derives from the daily
// aggregate: per-country label shares and political view series.
package summary

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"PageviewLabeler/internal/domain"
)

// Granularity selects the bucket size of a political views series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

const monthLayout = "2006-01"

// ErrInvalidRange is returned for a range whose start follows its end.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is an inclusive [From, To] range of ISO dates. Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// ParseDateRange validates both bounds.
func ParseDateRange(from, to string) (DateRange, error) {
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, v); err != nil {
			return DateRange{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidRange, v)
		}
	}
	if from != "" && to != "" && from > to {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return DateRange{From: from, To: to}, nil
}

// Contains reports whether date falls inside the range.
func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}

// Filter keeps rows inside r.
func Filter(rows []domain.AggregateRow, r DateRange) []domain.AggregateRow {
	out := make([]domain.AggregateRow, 0, len(rows))
	for _, row := range rows {
		if r.Contains(row.Date) {
			out = append(out, row)
		}
	}
	return out
}

// Bounds returns the earliest and latest dates present.
func Bounds(rows []domain.AggregateRow) DateRange {
	var r DateRange
	for _, row := range rows {
		if r.From == "" || row.Date < r.From {
			r.From = row.Date
		}
		if row.Date > r.To {
			r.To = row.Date
		}
	}
	return r
}

// Share is one label's slice of a country's views.
type Share struct {
	CountryCode string
	Label       domain.Label
	Views       int64
	Percent     float64
}

// Shares totals views per country and label and expresses each as a
// percentage of the country's views. Every label is listed for every country.
func Shares(rows []domain.AggregateRow) []Share {
	type key struct {
		country string
		label   domain.Label
	}
	views := make(map[key]int64)
	totals := make(map[string]int64)
	for _, row := range rows {
		views[key{row.CountryCode, row.Label}] += row.Views
		totals[row.CountryCode] += row.Views
	}

	countries := make([]string, 0, len(totals))
	for c := range totals {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	out := make([]Share, 0, len(countries)*len(domain.Labels()))
	for _, country := range countries {
		total := totals[country]
		for _, label := range domain.Labels() {
			v := views[key{country, label}]
			var pct float64
			if total > 0 {
				pct = float64(v) / float64(total) * 100
			}
			out = append(out, Share{CountryCode: country, Label: label, Views: v, Percent: pct})
		}
	}
	return out
}

// Point is one bucket of a political views series.
type Point struct {
	Period      string
	CountryCode string
	Views       int64
}

// PoliticalSeries sums political views per country and period, sorted by
// period then country.
func PoliticalSeries(rows []domain.AggregateRow, g Granularity) ([]Point, error) {
	if g != Daily && g != Monthly {
		return nil, fmt.Errorf("unknown granularity %q", g)
	}
	type key struct {
		period  string
		country string
	}
	sums := make(map[key]int64)
	for _, row := range rows {
		if row.Label != domain.LabelPolitical {
			continue
		}
		period := row.Date
		if g == Monthly {
			d, err := time.Parse(domain.DateLayout, row.Date)
			if err != nil {
				return nil, fmt.Errorf("row date %q: %w", row.Date, err)
			}
			period = d.Format(monthLayout)
		}
		sums[key{period, row.CountryCode}] += row.Views
	}

	out := make([]Point, 0, len(sums))
	for k, v := range sums {
		out = append(out, Point{Period: k.period, CountryCode: k.country, Views: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].CountryCode < out[j].CountryCode
	})
	return out, nil
}
