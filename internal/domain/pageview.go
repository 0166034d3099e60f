package domain

import (
	"strings"
	"time"
)

// DateLayout is the ISO date format used on both input and output files.
const DateLayout = "2006-01-02"

var missingIdentifiers = map[string]struct{}{
	"":       {},
	"no qid": {},
	"nan":    {},
	"none":   {},
	"null":   {},
}

// PageviewRow is a single raw (identifier, date, views) record for a country.
type PageviewRow struct {
	CountryCode string
	QID         string
	Date        time.Time
	Views       int64
}

// HasQID reports whether the row references a resolvable entity.
func (r PageviewRow) HasQID() bool {
	return !IsMissingQID(r.QID)
}

// IsMissingQID reports whether the identifier is absent or a known sentinel.
func IsMissingQID(qid string) bool {
	_, missing := missingIdentifiers[strings.ToLower(strings.TrimSpace(qid))]
	return missing
}

// NormalizeQID trims whitespace and upper-cases the leading Q.
func NormalizeQID(qid string) string {
	qid = strings.TrimSpace(qid)
	if strings.HasPrefix(qid, "q") {
		qid = "Q" + qid[1:]
	}
	return qid
}

// CountryPageviews groups the raw rows read from one country's file.
type CountryPageviews struct {
	CountryCode string
	Source      string
	Digest      string
	Rows        []PageviewRow
}

// LabeledRow is a raw row with its entity-level label broadcast onto it.
type LabeledRow struct {
	PageviewRow
	Label Label
}

// AggregateKey identifies one daily aggregate bucket.
type AggregateKey struct {
	Date        string
	CountryCode string
	Label       Label
}

// AggregateRow is the (date, country_code, label, views) output record.
type AggregateRow struct {
	Date        string
	CountryCode string
	Label       Label
	Views       int64
}

// Key returns the grouping key of the row.
func (r AggregateRow) Key() AggregateKey {
	return AggregateKey{Date: r.Date, CountryCode: r.CountryCode, Label: r.Label}
}
