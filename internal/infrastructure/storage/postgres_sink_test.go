package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/domain"
)

func TestBuildUpsert(t *testing.T) {
	t.Parallel()

	rows := []domain.AggregateRow{
		{Date: "2023-11-06", CountryCode: "US", Label: domain.LabelNoQID, Views: 1200},
		{Date: "2023-11-06", CountryCode: "US", Label: domain.LabelPolitical, Views: 50000},
	}
	query, args, err := buildUpsert("daily_label_summary", rows)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(query, "INSERT INTO daily_label_summary (date,country_code,label,views) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)"), query)
	require.True(t, strings.HasSuffix(query, "ON CONFLICT (date, country_code, label) DO UPDATE SET views = EXCLUDED.views, updated_at = NOW()"), query)
	require.Equal(t, []any{
		"2023-11-06", "US", "No QID", int64(1200),
		"2023-11-06", "US", "political", int64(50000),
	}, args)
}

func TestBuildDeleteCoversEveryDayCountry(t *testing.T) {
	t.Parallel()

	rows := []domain.AggregateRow{
		{Date: "2023-11-06", CountryCode: "US", Label: domain.LabelNoQID, Views: 1200},
		{Date: "2023-11-06", CountryCode: "US", Label: domain.LabelNonPolitical, Views: 50000},
		{Date: "2023-11-06", CountryCode: "GB", Label: domain.LabelPolitical, Views: 7},
	}
	pairs := dayCountries(rows)
	require.Equal(t, []dayCountry{{"2023-11-06", "US"}, {"2023-11-06", "GB"}}, pairs)

	query, args, err := buildDelete("daily_label_summary", pairs)
	require.NoError(t, err)
	require.Equal(t,
		"DELETE FROM daily_label_summary WHERE ((date = $1 AND country_code = $2) OR (date = $3 AND country_code = $4))",
		query)
	require.Equal(t, []any{"2023-11-06", "US", "2023-11-06", "GB"}, args)
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	stmt := createTableSQL("analytics.daily_label_summary")
	require.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS analytics.daily_label_summary")
	require.Contains(t, stmt, "PRIMARY KEY (date, country_code, label)")
}

func TestNewPostgresSinkRejectsTableName(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresSink(context.Background(), "postgres://localhost/db", "daily; DROP TABLE x")
	require.ErrorContains(t, err, "invalid table name")
}
