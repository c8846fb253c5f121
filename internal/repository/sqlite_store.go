package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AgriPulse/internal/domain/models"
	"AgriPulse/internal/domain/repository"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	unit          TEXT NOT NULL DEFAULT 'kg',
	current_price REAL NOT NULL DEFAULT 0,
	stock_level   INTEGER NOT NULL DEFAULT 0,
	demand_score  REAL NOT NULL DEFAULT 0,
	days_left     INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name ON products (name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	region     TEXT NOT NULL DEFAULT '',
	population INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS price_recommendations (
	id                TEXT PRIMARY KEY,
	product_id        TEXT NOT NULL,
	product_name      TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	current_price     REAL NOT NULL,
	recommended_price REAL NOT NULL,
	price_change_pct  REAL NOT NULL,
	confidence        REAL NOT NULL,
	reason            TEXT NOT NULL DEFAULT '',
	model_version     TEXT NOT NULL DEFAULT '',
	applied           INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	valid_until       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recs_created ON price_recommendations (created_at DESC);
`

// SQLiteStore backs the product catalog and recommendation history with
// a local SQLite database. Pass ":memory:" as dataDir for an in-memory
// database (used by tests).
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "agripulse.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under write bursts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Catalog ---

const productCols = "id, name, category, unit, current_price, stock_level, demand_score, days_left, created_at, updated_at"

func scanProduct(row *sql.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.CurrentPrice,
		&p.StockLevel, &p.DemandScore, &p.DaysLeft, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id = ?", id)
	return scanProduct(row)
}

func (s *SQLiteStore) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE name = ? COLLATE NOCASE", name)
	return scanProduct(row)
}

func (s *SQLiteStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productCols+" FROM products ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.CurrentPrice,
			&p.StockLevel, &p.DemandScore, &p.DaysLeft, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *SQLiteStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			unit = excluded.unit,
			current_price = excluded.current_price,
			stock_level = excluded.stock_level,
			demand_score = excluded.demand_score,
			days_left = excluded.days_left,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Category, p.Unit, p.CurrentPrice,
		p.StockLevel, p.DemandScore, p.DaysLeft, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *SQLiteStore) SetCurrentPrice(ctx context.Context, id string, price float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET current_price = ?, updated_at = ? WHERE id = ?",
		price, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListCities(ctx context.Context, limit, offset int) ([]models.City, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cities").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, region, population FROM cities ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.Population); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *SQLiteStore) UpsertCity(ctx context.Context, c *models.City) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cities (id, name, region, population)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			population = excluded.population`,
		c.ID, c.Name, c.Region, c.Population)
	return err
}

// --- RecommendationStore ---

const recCols = "id, product_id, product_name, category, current_price, recommended_price, price_change_pct, confidence, reason, model_version, applied, created_at, valid_until"

func (s *SQLiteStore) InsertBatch(ctx context.Context, recs []models.PriceRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_recommendations (`+recCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ProductID, r.ProductName, r.Category, r.CurrentPrice,
			r.RecommendedPrice, r.PriceChangePct, r.Confidence, r.Reason,
			r.ModelVersion, r.Applied, r.CreatedAt, r.ValidUntil); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanRecommendation(row *sql.Row) (*models.PriceRecommendation, error) {
	var r models.PriceRecommendation
	err := row.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.Category,
		&r.CurrentPrice, &r.RecommendedPrice, &r.PriceChangePct, &r.Confidence,
		&r.Reason, &r.ModelVersion, &r.Applied, &r.CreatedAt, &r.ValidUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.PriceRecommendation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recCols+" FROM price_recommendations WHERE id = ?", id)
	return scanRecommendation(row)
}

func (s *SQLiteStore) Apply(ctx context.Context, id string) (*models.PriceRecommendation, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE price_recommendations SET applied = 1 WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]models.PriceRecommendation, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_recommendations").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recCols+" FROM price_recommendations ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.PriceRecommendation
	for rows.Next() {
		var r models.PriceRecommendation
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.Category,
			&r.CurrentPrice, &r.RecommendedPrice, &r.PriceChangePct, &r.Confidence,
			&r.Reason, &r.ModelVersion, &r.Applied, &r.CreatedAt, &r.ValidUntil); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

var (
	_ repository.Catalog             = (*SQLiteStore)(nil)
	_ repository.RecommendationStore = (*SQLiteStore)(nil)
)
