package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/logging"
	"github.com/rl1809/game-stock/internal/metrics"
	"github.com/rl1809/game-stock/internal/port"
)

// NewGame is the input for adding a catalog entry.
type NewGame struct {
	Name     string
	GenreID  int64
	RatingID int64
	Price    decimal.Decimal
	Copies   int
}

type CatalogService struct {
	repo     port.CatalogRepository
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func NewCatalogService(repo port.CatalogRepository, logger *slog.Logger, recorder *metrics.Recorder) *CatalogService {
	return &CatalogService{
		repo:     repo,
		logger:   logger,
		recorder: recorder,
	}
}

// LoadCatalog reads the games visible to the session and replaces its snapshot.
// Unprivileged sessions only see games with copies in stock. The session's genre
// filter, when set, narrows either view.
func (s *CatalogService) LoadCatalog(ctx context.Context, sess *Session) ([]domain.Game, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	filter := domain.CatalogFilter{
		GenreID:           sess.genreFilter,
		IncludeOutOfStock: sess.Privileged,
	}

	start := time.Now()
	games, err := s.repo.ListGames(ctx, filter)
	s.recorder.RecordCatalogLoad(time.Since(start), err)
	if err != nil {
		logging.Error(s.logger, "catalog load failed", err,
			logging.FieldSessionID, sess.ID,
			logging.FieldGenreID, filter.GenreID,
		)
		return nil, &domain.PersistenceError{
			Op:  "load catalog",
			Err: fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err),
		}
	}

	sess.catalog = games

	out := make([]domain.Game, len(games))
	copy(out, games)
	return out, nil
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	genres, err := s.repo.ListGenres(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list genres", Err: err}
	}
	return genres, nil
}

func (s *CatalogService) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	ratings, err := s.repo.ListRatings(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list ratings", Err: err}
	}
	return ratings, nil
}

func (s *CatalogService) AddGame(ctx context.Context, sess *Session, game NewGame) (int64, error) {
	if err := requirePrivileged(sess, "add game"); err != nil {
		return 0, err
	}

	name := strings.TrimSpace(game.Name)
	switch {
	case name == "":
		return 0, invalid("add game", "name is required")
	case game.Price.IsNegative():
		return 0, invalid("add game", "price must not be negative")
	case game.Copies < 0:
		return 0, invalid("add game", "copies must not be negative")
	}

	id, err := s.repo.AddGame(ctx, name, game.GenreID, game.RatingID, game.Price, game.Copies)
	if err != nil {
		logging.Error(s.logger, "add game failed", err, logging.FieldSessionID, sess.ID)
		return 0, err
	}

	logging.Info(s.logger, "game added", logging.FieldGameID, id, logging.FieldSessionID, sess.ID)
	return id, nil
}

func (s *CatalogService) RenameGame(ctx context.Context, sess *Session, gameID int64, name string) error {
	return s.UpdateGame(ctx, sess, gameID, domain.GameUpdate{Name: &name})
}

func (s *CatalogService) SetGameGenre(ctx context.Context, sess *Session, gameID, genreID int64) error {
	return s.UpdateGame(ctx, sess, gameID, domain.GameUpdate{GenreID: &genreID})
}

func (s *CatalogService) SetGameRating(ctx context.Context, sess *Session, gameID, ratingID int64) error {
	return s.UpdateGame(ctx, sess, gameID, domain.GameUpdate{RatingID: &ratingID})
}

func (s *CatalogService) SetGamePrice(ctx context.Context, sess *Session, gameID int64, price decimal.Decimal) error {
	return s.UpdateGame(ctx, sess, gameID, domain.GameUpdate{Price: &price})
}

func (s *CatalogService) SetGameCopies(ctx context.Context, sess *Session, gameID int64, copies int) error {
	return s.UpdateGame(ctx, sess, gameID, domain.GameUpdate{Copies: &copies})
}

// UpdateGame applies a management change to one game. The session's snapshot is not
// touched; the next LoadCatalog picks the change up.
func (s *CatalogService) UpdateGame(ctx context.Context, sess *Session, gameID int64, update domain.GameUpdate) error {
	if err := requirePrivileged(sess, "update game"); err != nil {
		return err
	}
	if update.Empty() {
		return invalid("update game", "no field to update")
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return invalid("update game", "name is required")
		}
		update.Name = &trimmed
	}
	if update.Price != nil && update.Price.IsNegative() {
		return invalid("update game", "price must not be negative")
	}
	if update.Copies != nil && *update.Copies < 0 {
		return invalid("update game", "copies must not be negative")
	}

	if err := s.repo.UpdateGame(ctx, gameID, update); err != nil {
		logging.Error(s.logger, "update game failed", err, logging.FieldGameID, gameID, logging.FieldSessionID, sess.ID)
		return err
	}
	return nil
}

func (s *CatalogService) DeleteGame(ctx context.Context, sess *Session, gameID int64) error {
	if err := requirePrivileged(sess, "delete game"); err != nil {
		return err
	}
	if err := s.repo.DeleteGame(ctx, gameID); err != nil {
		logging.Error(s.logger, "delete game failed", err, logging.FieldGameID, gameID, logging.FieldSessionID, sess.ID)
		return err
	}

	logging.Info(s.logger, "game deleted", logging.FieldGameID, gameID, logging.FieldSessionID, sess.ID)
	return nil
}

func (s *CatalogService) AddGenre(ctx context.Context, sess *Session, label string) (int64, error) {
	if err := requirePrivileged(sess, "add genre"); err != nil {
		return 0, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, invalid("add genre", "label is required")
	}
	return s.repo.AddGenre(ctx, label)
}

func (s *CatalogService) RenameGenre(ctx context.Context, sess *Session, genreID int64, label string) error {
	if err := requirePrivileged(sess, "rename genre"); err != nil {
		return err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return invalid("rename genre", "label is required")
	}
	return s.repo.RenameGenre(ctx, genreID, label)
}

func (s *CatalogService) DeleteGenre(ctx context.Context, sess *Session, genreID int64) error {
	if err := requirePrivileged(sess, "delete genre"); err != nil {
		return err
	}
	return s.repo.DeleteGenre(ctx, genreID)
}

func requirePrivileged(sess *Session, op string) error {
	if !sess.Privileged {
		return fmt.Errorf("%s: %w", op, domain.ErrPermissionDenied)
	}
	return nil
}

func invalid(op, msg string) error {
	return &domain.ValidationError{Op: op, Err: fmt.Errorf("%w: %s", domain.ErrInvalidArgument, msg)}
}
