package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
)

// execQueryer is satisfied by both *sql.DB and *sql.Tx.
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLAdapter implements the catalog and purchase repositories on database/sql.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

const selectGames = `
	SELECT g.id, g.name, COALESCE(g.genre_id, 0), COALESCE(ge.genre, ''),
		COALESCE(g.age_rating_id, 0), COALESCE(r.rating, ''), g.price, g.copies
	FROM games g
	LEFT JOIN genres ge ON ge.id = g.genre_id
	LEFT JOIN ratings r ON r.id = g.age_rating_id`

func (a *SQLAdapter) ListGames(ctx context.Context, filter domain.CatalogFilter) ([]domain.Game, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeOutOfStock {
		conds = append(conds, "g.copies > 0")
	}
	if filter.GenreID != 0 {
		conds = append(conds, "g.genre_id = ?")
		args = append(args, filter.GenreID)
	}

	query := selectGames
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY g.name, g.id"

	rows, err := a.db.QueryContext(ctx, a.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Genre.ID, &g.Genre.Label, &g.Rating.ID, &g.Rating.Label, &g.Price, &g.Copies); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func (a *SQLAdapter) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, genre FROM genres ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	defer rows.Close()

	var genres []domain.Genre
	for rows.Next() {
		var g domain.Genre
		if err := rows.Scan(&g.ID, &g.Label); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (a *SQLAdapter) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, rating FROM ratings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var r domain.Rating
		if err := rows.Scan(&r.ID, &r.Label); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (a *SQLAdapter) AddGame(ctx context.Context, name string, genreID, ratingID int64, price decimal.Decimal, copies int) (int64, error) {
	id, err := a.insert(ctx, a.db, `
		INSERT INTO games (name, genre_id, age_rating_id, price, copies)
		VALUES (?, ?, ?, ?, ?)`,
		name, nullID(genreID), nullID(ratingID), price, copies,
	)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "add game", Err: err}
	}
	return id, nil
}

func (a *SQLAdapter) UpdateGame(ctx context.Context, gameID int64, update domain.GameUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.GenreID != nil {
		sets = append(sets, "genre_id = ?")
		args = append(args, nullID(*update.GenreID))
	}
	if update.RatingID != nil {
		sets = append(sets, "age_rating_id = ?")
		args = append(args, nullID(*update.RatingID))
	}
	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *update.Price)
	}
	if update.Copies != nil {
		sets = append(sets, "copies = ?")
		args = append(args, *update.Copies)
	}
	if len(sets) == 0 {
		return &domain.ValidationError{Op: "update game", Err: domain.ErrInvalidArgument}
	}
	args = append(args, gameID)

	query := "UPDATE games SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	return a.execOne(ctx, "update game", fmt.Sprintf("game %d", gameID), query, args...)
}

func (a *SQLAdapter) DeleteGame(ctx context.Context, gameID int64) error {
	return a.execOne(ctx, "delete game", fmt.Sprintf("game %d", gameID), `DELETE FROM games WHERE id = ?`, gameID)
}

func (a *SQLAdapter) AddGenre(ctx context.Context, label string) (int64, error) {
	id, err := a.insert(ctx, a.db, `INSERT INTO genres (genre) VALUES (?)`, label)
	if IsDuplicate(err) {
		return 0, duplicate("add genre", label)
	}
	if err != nil {
		return 0, &domain.PersistenceError{Op: "add genre", Err: err}
	}
	return id, nil
}

func (a *SQLAdapter) RenameGenre(ctx context.Context, genreID int64, label string) error {
	return a.execOne(ctx, "rename genre", fmt.Sprintf("genre %d", genreID), `UPDATE genres SET genre = ? WHERE id = ?`, label, genreID)
}

// DeleteGenre removes a genre and detaches the games that referenced it.
func (a *SQLAdapter) DeleteGenre(ctx context.Context, genreID int64) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "delete genre", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, a.dialect.Rebind(`UPDATE games SET genre_id = NULL WHERE genre_id = ?`), genreID); err != nil {
		return &domain.PersistenceError{Op: "delete genre", Err: fmt.Errorf("detach games: %w", err)}
	}

	result, err := tx.ExecContext(ctx, a.dialect.Rebind(`DELETE FROM genres WHERE id = ?`), genreID)
	if err != nil {
		return &domain.PersistenceError{Op: "delete genre", Err: err}
	}
	if err := expectOne(result, fmt.Sprintf("genre %d", genreID)); err != nil {
		return &domain.PersistenceError{Op: "delete genre", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "delete genre", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// CommitPurchase writes the purchase header, its line items and the stock decrement of every
// game in one transaction. The decrement only applies while enough copies remain; a
// conditional update that matches no row aborts the whole commit.
func (a *SQLAdapter) CommitPurchase(ctx context.Context, purchase domain.Purchase) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.CommitError{Stage: domain.StageHeader, Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	purchaseID, err := a.insert(ctx, tx, `
		INSERT INTO purchases (user_id, total, date)
		VALUES (?, ?, ?)`,
		purchase.UserID, purchase.Total, purchase.Date,
	)
	if err != nil {
		return 0, &domain.CommitError{Stage: domain.StageHeader, Err: fmt.Errorf("insert purchase: %w", err)}
	}

	insertItem := a.dialect.Rebind(`
		INSERT INTO purchase_items (purchase_id, game_name, game_price, game_genre, game_rating, count, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, item := range purchase.Items {
		_, err := tx.ExecContext(ctx, insertItem,
			purchaseID, item.GameName, item.GamePrice, item.GameGenre, item.GameRating, item.Count, item.Total,
		)
		if err != nil {
			return 0, &domain.CommitError{Stage: domain.StageLineItems, Err: fmt.Errorf("insert item %q: %w", item.GameName, err)}
		}
	}

	decrement := a.dialect.Rebind(`
		UPDATE games
		SET copies = copies - ?
		WHERE id = ? AND copies >= ?`)
	for _, item := range purchase.Items {
		result, err := tx.ExecContext(ctx, decrement, item.Count, item.GameID, item.Count)
		if err != nil {
			return 0, &domain.CommitError{Stage: domain.StageStockUpdate, Err: fmt.Errorf("update copies of %q: %w", item.GameName, err)}
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return 0, &domain.CommitError{Stage: domain.StageStockUpdate, Err: fmt.Errorf("rows affected: %w", err)}
		}
		if rows == 0 {
			return 0, &domain.CommitError{
				Stage: domain.StageStockUpdate,
				Err:   fmt.Errorf("%w: %d copies of %q", domain.ErrInsufficientStock, item.Count, item.GameName),
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.CommitError{Stage: domain.StageFinalize, Err: fmt.Errorf("commit: %w", err)}
	}
	return purchaseID, nil
}

func (a *SQLAdapter) ListPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	rows, err := a.db.QueryContext(ctx, a.dialect.Rebind(`
		SELECT id, user_id, total, date
		FROM purchases
		WHERE user_id = ?
		ORDER BY date DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.Total, &p.Date); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (a *SQLAdapter) PurchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseLineItem, error) {
	rows, err := a.db.QueryContext(ctx, a.dialect.Rebind(`
		SELECT id, purchase_id, game_name, game_price, game_genre, game_rating, count, total
		FROM purchase_items
		WHERE purchase_id = ?
		ORDER BY id`), purchaseID)
	if err != nil {
		return nil, fmt.Errorf("query purchase items: %w", err)
	}
	defer rows.Close()

	var items []domain.PurchaseLineItem
	for rows.Next() {
		var i domain.PurchaseLineItem
		if err := rows.Scan(&i.ID, &i.PurchaseID, &i.GameName, &i.GamePrice, &i.GameGenre, &i.GameRating, &i.Count, &i.Total); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// insert runs an INSERT and returns the generated id. Postgres has no LastInsertId,
// so the statement is extended with RETURNING there.
func (a *SQLAdapter) insert(ctx context.Context, q execQueryer, query string, args ...any) (int64, error) {
	if a.dialect == Postgres {
		var id int64
		err := q.QueryRowContext(ctx, a.dialect.Rebind(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execOne runs a statement that must touch exactly one row.
func (a *SQLAdapter) execOne(ctx context.Context, op, target, query string, args ...any) error {
	result, err := a.db.ExecContext(ctx, a.dialect.Rebind(query), args...)
	if IsDuplicate(err) {
		return duplicate(op, target)
	}
	if err != nil {
		return &domain.PersistenceError{Op: op, Err: err}
	}
	if err := expectOne(result, target); err != nil {
		return &domain.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func expectOne(result sql.Result, target string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	switch {
	case rows == 0:
		return fmt.Errorf("%w: %w: %s", domain.ErrNoRowsAffected, domain.ErrNotFound, target)
	case rows != 1:
		return fmt.Errorf("%w: %d rows for %s", domain.ErrNoRowsAffected, rows, target)
	}
	return nil
}

func duplicate(op, what string) error {
	return &domain.ValidationError{Op: op, Err: fmt.Errorf("%w: %s already exists", domain.ErrInvalidArgument, what)}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// IsDuplicate reports whether err is a unique-key violation from either driver.
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

const (
	mysqlDuplicateEntry = 1062
	pqUniqueViolation   = "23505"
)
