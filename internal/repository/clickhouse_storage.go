package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spotwatch/internal/domain/models"
)

// ReadingSchema returns idempotent statements creating the reading history
// table in the given database.
func ReadingSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.spot_readings (
			ts       DateTime64(3),
			symbol   LowCardinality(String),
			price    Float64,
			status   LowCardinality(String)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)`, database),
	}
}

// ClickHouseReadingStorage persists every successful spot observation with
// the status the engine assigned to it.
type ClickHouseReadingStorage struct {
	db    *sql.DB
	table string
}

func NewClickHouseReadingStorage(db *sql.DB, table string) *ClickHouseReadingStorage {
	return &ClickHouseReadingStorage{db: db, table: table}
}

func (s *ClickHouseReadingStorage) Store(ctx context.Context, symbol string, r models.SpotReading, status models.MarketStatus) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, status) VALUES (?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, r.ObservedAt, symbol, r.Price, string(status))
	return err
}

// Query returns recent readings for a symbol, newest first.
func (s *ClickHouseReadingStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.SpotReading, error) {
	q := fmt.Sprintf("SELECT ts, price FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SpotReading
	for rows.Next() {
		var r models.SpotReading
		if err := rows.Scan(&r.ObservedAt, &r.Price); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseReadingStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseReadingStorage) Close() error {
	return nil // pool owned by the clickhouse client
}
