package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// OpenDB opens and pings the store for the given dialect.
func OpenDB(ctx context.Context, dialect Dialect, dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}
	return db, nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS genres (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		genre VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		rating VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		genre_id BIGINT NULL,
		age_rating_id BIGINT NULL,
		price DECIMAL(10,2) NOT NULL DEFAULT 0,
		copies INT NOT NULL DEFAULT 0,
		CONSTRAINT chk_games_copies CHECK (copies >= 0),
		INDEX idx_games_genre (genre_id),
		INDEX idx_games_name (name)
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		date DATETIME NOT NULL,
		INDEX idx_purchases_user_date (user_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		purchase_id BIGINT NOT NULL,
		game_name VARCHAR(255) NOT NULL,
		game_price DECIMAL(10,2) NOT NULL,
		game_genre VARCHAR(64) NOT NULL DEFAULT '',
		game_rating VARCHAR(64) NOT NULL DEFAULT '',
		count INT NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		CONSTRAINT fk_items_purchase FOREIGN KEY (purchase_id) REFERENCES purchases(id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS genres (
		id BIGSERIAL PRIMARY KEY,
		genre TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id BIGSERIAL PRIMARY KEY,
		rating TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		genre_id BIGINT NULL,
		age_rating_id BIGINT NULL,
		price NUMERIC(10,2) NOT NULL DEFAULT 0,
		copies INT NOT NULL DEFAULT 0 CHECK (copies >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_genre ON games (genre_id)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		date TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_user_date ON purchases (user_id, date)`,
	`CREATE TABLE IF NOT EXISTS purchase_items (
		id BIGSERIAL PRIMARY KEY,
		purchase_id BIGINT NOT NULL REFERENCES purchases(id),
		game_name TEXT NOT NULL,
		game_price NUMERIC(10,2) NOT NULL,
		game_genre TEXT NOT NULL DEFAULT '',
		game_rating TEXT NOT NULL DEFAULT '',
		count INT NOT NULL,
		total NUMERIC(12,2) NOT NULL
	)`,
}

// Migrate creates the tables when they do not exist yet. Statements run one at a time
// because the MySQL driver rejects multi-statement Exec by default.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	schema := mysqlSchema
	if a.dialect == Postgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type seedGame struct {
	name   string
	genre  string
	rating string
	price  string
	copies int
}

var (
	seedGenres  = []string{"Action", "Adventure", "Puzzle", "Racing", "Role-playing", "Strategy"}
	seedRatings = []string{"PEGI 3", "PEGI 7", "PEGI 12", "PEGI 16", "PEGI 18"}
	seedGames   = []seedGame{
		{"Celeste", "Action", "PEGI 7", "19.99", 12},
		{"Civilization VI", "Strategy", "PEGI 12", "59.99", 4},
		{"Disco Elysium", "Role-playing", "PEGI 18", "39.99", 6},
		{"Forza Horizon 5", "Racing", "PEGI 3", "49.99", 8},
		{"Portal 2", "Puzzle", "PEGI 12", "9.99", 20},
		{"The Witness", "Puzzle", "PEGI 3", "39.99", 0},
		{"Outer Wilds", "Adventure", "PEGI 12", "24.99", 3},
	}
)

// Seed fills an empty store with reference genres, ratings and a starter catalog.
// A store that already has genres is left alone.
func (a *SQLAdapter) Seed(ctx context.Context) error {
	var count int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genres`).Scan(&count); err != nil {
		return fmt.Errorf("seed: count genres: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback()

	genres := make(map[string]int64, len(seedGenres))
	for _, label := range seedGenres {
		id, err := a.insert(ctx, tx, `INSERT INTO genres (genre) VALUES (?)`, label)
		if err != nil {
			return fmt.Errorf("seed genre %q: %w", label, err)
		}
		genres[label] = id
	}

	ratings := make(map[string]int64, len(seedRatings))
	for _, label := range seedRatings {
		id, err := a.insert(ctx, tx, `INSERT INTO ratings (rating) VALUES (?)`, label)
		if err != nil {
			return fmt.Errorf("seed rating %q: %w", label, err)
		}
		ratings[label] = id
	}

	for _, g := range seedGames {
		_, err := a.insert(ctx, tx, `
			INSERT INTO games (name, genre_id, age_rating_id, price, copies)
			VALUES (?, ?, ?, ?, ?)`,
			g.name, genres[g.genre], ratings[g.rating], decimal.RequireFromString(g.price), g.copies,
		)
		if err != nil {
			return fmt.Errorf("seed game %q: %w", g.name, err)
		}
	}

	return tx.Commit()
}
