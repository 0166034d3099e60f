package usecase

import (
	"fmt"
	"math"
	"sort"

	"PageviewLabeler/internal/domain"
)

type dayCountry struct {
	date    string
	country string
}

// Label broadcasts entity labels onto raw rows by identifier. Rows without an
// identifier, or whose identifier was never resolved, get domain.LabelNoQID.
func Label(inputs []domain.CountryPageviews, entities map[string]domain.Entity) []domain.LabeledRow {
	var n int
	for _, in := range inputs {
		n += len(in.Rows)
	}
	out := make([]domain.LabeledRow, 0, n)
	for _, in := range inputs {
		for _, row := range in.Rows {
			label := domain.LabelNoQID
			if row.HasQID() {
				if e, ok := entities[row.QID]; ok {
					label = e.Label
				}
			}
			out = append(out, domain.LabeledRow{PageviewRow: row, Label: label})
		}
	}
	return out
}

// addViews sums two non-negative view counts, failing on int64 overflow.
func addViews(total, views int64) (int64, error) {
	if views > math.MaxInt64-total {
		return 0, fmt.Errorf("%w: %d + %d", domain.ErrViewsOverflow, total, views)
	}
	return total + views, nil
}

// Aggregate sums views per (date, country, label) and returns the rows sorted
// by date, country and label.
func Aggregate(rows []domain.LabeledRow) ([]domain.AggregateRow, error) {
	sums := make(map[domain.AggregateKey]int64)
	for _, row := range rows {
		key := domain.AggregateKey{
			Date:        row.Date.Format(domain.DateLayout),
			CountryCode: row.CountryCode,
			Label:       row.Label,
		}
		sum, err := addViews(sums[key], row.Views)
		if err != nil {
			return nil, fmt.Errorf("%s/%s/%s: %w", key.Date, key.CountryCode, key.Label, err)
		}
		sums[key] = sum
	}

	out := make([]domain.AggregateRow, 0, len(sums))
	for key, views := range sums {
		out = append(out, domain.AggregateRow{
			Date:        key.Date,
			CountryCode: key.CountryCode,
			Label:       key.Label,
			Views:       views,
		})
	}
	SortAggregate(out)
	return out, nil
}

// SortAggregate orders rows by date, country code and label name.
func SortAggregate(rows []domain.AggregateRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.CountryCode != b.CountryCode {
			return a.CountryCode < b.CountryCode
		}
		return a.Label.String() < b.Label.String()
	})
}

// Reconcile checks that, for every (date, country), the aggregate sums to the
// raw total and uses only known labels.
func Reconcile(inputs []domain.CountryPageviews, aggregate []domain.AggregateRow) error {
	raw := make(map[dayCountry]int64)
	for _, in := range inputs {
		for _, row := range in.Rows {
			key := dayCountry{row.Date.Format(domain.DateLayout), row.CountryCode}
			sum, err := addViews(raw[key], row.Views)
			if err != nil {
				return fmt.Errorf("raw %s/%s: %w", key.date, key.country, err)
			}
			raw[key] = sum
		}
	}

	agg := make(map[dayCountry]int64, len(raw))
	for _, row := range aggregate {
		if !row.Label.Valid() {
			return fmt.Errorf("%w: unknown label in %s/%s", domain.ErrAggregationInvariant, row.Date, row.CountryCode)
		}
		if row.Views < 0 {
			return fmt.Errorf("%w: negative views in %s/%s", domain.ErrAggregationInvariant, row.Date, row.CountryCode)
		}
		key := dayCountry{row.Date, row.CountryCode}
		sum, err := addViews(agg[key], row.Views)
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %w", domain.ErrAggregationInvariant, key.date, key.country, err)
		}
		agg[key] = sum
	}

	for key, want := range raw {
		got, ok := agg[key]
		if !ok {
			return fmt.Errorf("%w: %s/%s missing from aggregate", domain.ErrAggregationInvariant, key.date, key.country)
		}
		if got != want {
			return fmt.Errorf("%w: %s/%s has %d views, raw input has %d", domain.ErrAggregationInvariant, key.date, key.country, got, want)
		}
	}
	for key := range agg {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("%w: %s/%s not present in raw input", domain.ErrAggregationInvariant, key.date, key.country)
		}
	}
	return nil
}
