package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AgriPulse/internal/domain/models"
	"AgriPulse/internal/domain/repository"
)

// SchemaStatements returns the DDL for the analytical tables. Run once
// at startup through the clickhouse client's InitSchema.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_ticks (
			ts         DateTime,
			product_id LowCardinality(String),
			market     LowCardinality(String),
			price      Float64,
			volume     Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (product_id, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.demand_forecasts (
			id               String,
			product_id       LowCardinality(String),
			city             LowCardinality(String),
			category         LowCardinality(String),
			forecast_date    Date,
			predicted_demand Float64,
			day_of_week      LowCardinality(String),
			confidence       Float64,
			created_at       DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(forecast_date)
		ORDER BY (product_id, city, forecast_date)`, database),
	}
}

// ClickHouseTickStore implements TickStore on top of ClickHouse.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseTickStore(db *sql.DB, table string) repository.TickStore {
	return &ClickHouseTickStore{db: db, table: table}
}

func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.PriceTick) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, product_id, market, price, volume) VALUES (?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(t.Timestamp, 0),
		t.ProductID,
		t.Market,
		t.Price,
		t.Volume,
	)
	return err
}

func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips. 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, t := range ticks[start:end] {
			if t == nil || t.ProductID == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(t.Timestamp, 0),
				t.ProductID,
				t.Market,
				t.Price,
				t.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, product_id, market, price, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTickStore) Query(ctx context.Context, productID string, from, to time.Time, limit int) ([]*models.PriceTick, error) {
	q := fmt.Sprintf("SELECT product_id, market, ts, price, volume FROM %s WHERE product_id = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, productID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []*models.PriceTick
	for rows.Next() {
		var t models.PriceTick
		var ts time.Time
		if err := rows.Scan(&t.ProductID, &t.Market, &ts, &t.Price, &t.Volume); err != nil {
			return nil, err
		}
		t.Timestamp = ts.Unix()
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ClickHouseForecastStore implements ForecastStore on top of ClickHouse.
type ClickHouseForecastStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseForecastStore(db *sql.DB, table string) repository.ForecastStore {
	return &ClickHouseForecastStore{db: db, table: table}
}

func (s *ClickHouseForecastStore) InsertBatch(ctx context.Context, fcs []models.DemandForecast) error {
	if len(fcs) == 0 {
		return nil
	}
	values := make([]string, 0, len(fcs))
	args := make([]interface{}, 0, len(fcs)*9)
	for _, f := range fcs {
		date, err := time.Parse("2006-01-02", f.ForecastDate)
		if err != nil {
			return fmt.Errorf("forecast date %q: %w", f.ForecastDate, err)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			f.ID,
			f.ProductID,
			f.City,
			f.Category,
			date,
			f.PredictedDemand,
			f.DayOfWeek,
			f.Confidence,
			f.CreatedAt,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, product_id, city, category, forecast_date, predicted_demand, day_of_week, confidence, created_at) VALUES %s",
		s.table, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseForecastStore) List(ctx context.Context, f repository.ForecastFilter) ([]models.DemandForecast, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.City != "" {
		conds = append(conds, "city = ?")
		args = append(args, f.City)
	}
	if !f.From.IsZero() {
		conds = append(conds, "forecast_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "forecast_date <= ?")
		args = append(args, f.To)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf("SELECT id, product_id, city, category, forecast_date, predicted_demand, day_of_week, confidence, created_at FROM %s%s ORDER BY forecast_date, city LIMIT ?", s.table, where)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DemandForecast
	for rows.Next() {
		var (
			fc   models.DemandForecast
			date time.Time
		)
		if err := rows.Scan(&fc.ID, &fc.ProductID, &fc.City, &fc.Category, &date,
			&fc.PredictedDemand, &fc.DayOfWeek, &fc.Confidence, &fc.CreatedAt); err != nil {
			return nil, err
		}
		fc.ForecastDate = date.Format("2006-01-02")
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (s *ClickHouseForecastStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
