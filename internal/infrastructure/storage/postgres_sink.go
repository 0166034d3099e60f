package storage

import (
	"context"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/ports"
)

// upsertBatchSize keeps each statement well under Postgres' bind parameter cap.
const upsertBatchSize = 1000

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresSink mirrors the daily aggregate into a Postgres table.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

var _ ports.AggregateSink = (*PostgresSink)(nil)

// NewPostgresSink connects to dsn and makes sure the table exists.
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sink := &PostgresSink{pool: pool, table: table}
	if _, err := pool.Exec(ctx, createTableSQL(table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return sink, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Close releases the pool.
func (s *PostgresSink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// WriteAggregate replaces every (date, country_code) present in rows in one
// transaction, so labels that disappeared since the last run do not linger.
func (s *PostgresSink) WriteAggregate(ctx context.Context, rows []domain.AggregateRow) error {
	if len(rows) == 0 {
		return nil
	}
	pairs := dayCountries(rows)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(pairs); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(pairs))
			query, args, err := buildDelete(s.table, pairs[start:end])
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("clear aggregate: %w", err)
			}
		}
		for start := 0; start < len(rows); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(rows))
			query, args, err := buildUpsert(s.table, rows[start:end])
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert aggregate: %w", err)
			}
		}
		return nil
	})
}

type dayCountry struct {
	date    string
	country string
}

// dayCountries lists the distinct (date, country_code) pairs in input order.
func dayCountries(rows []domain.AggregateRow) []dayCountry {
	seen := make(map[dayCountry]struct{})
	var out []dayCountry
	for _, row := range rows {
		key := dayCountry{row.Date, row.CountryCode}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		date DATE NOT NULL,
		country_code TEXT NOT NULL,
		label TEXT NOT NULL,
		views BIGINT NOT NULL CHECK (views >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (date, country_code, label)
	)`, table)
}

func buildUpsert(table string, rows []domain.AggregateRow) (string, []any, error) {
	insert := psql.Insert(table).Columns("date", "country_code", "label", "views")
	for _, row := range rows {
		insert = insert.Values(row.Date, row.CountryCode, row.Label.String(), row.Views)
	}
	query, args, err := insert.
		Suffix("ON CONFLICT (date, country_code, label) DO UPDATE SET views = EXCLUDED.views, updated_at = NOW()").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

func buildDelete(table string, pairs []dayCountry) (string, []any, error) {
	match := make(sq.Or, 0, len(pairs))
	for _, p := range pairs {
		match = append(match, sq.And{sq.Eq{"date": p.date}, sq.Eq{"country_code": p.country}})
	}
	query, args, err := psql.Delete(table).Where(match).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build delete: %w", err)
	}
	return query, args, nil
}
