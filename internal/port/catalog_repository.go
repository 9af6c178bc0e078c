package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
)

type CatalogRepository interface {
	// ListGames returns the games matching filter, ordered by name
	ListGames(ctx context.Context, filter domain.CatalogFilter) ([]domain.Game, error)

	ListGenres(ctx context.Context) ([]domain.Genre, error)
	ListRatings(ctx context.Context) ([]domain.Rating, error)

	// AddGame inserts a game and returns its generated id
	AddGame(ctx context.Context, name string, genreID, ratingID int64, price decimal.Decimal, copies int) (int64, error)

	// UpdateGame applies a single-row update; any affected row count other than one is an error
	UpdateGame(ctx context.Context, gameID int64, update domain.GameUpdate) error

	DeleteGame(ctx context.Context, gameID int64) error

	AddGenre(ctx context.Context, label string) (int64, error)
	RenameGenre(ctx context.Context, genreID int64, label string) error
	DeleteGenre(ctx context.Context, genreID int64) error
}
