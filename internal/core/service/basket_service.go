package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/logging"
	"github.com/rl1809/game-stock/internal/metrics"
)

type BasketService struct {
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func NewBasketService(logger *slog.Logger, recorder *metrics.Recorder) *BasketService {
	return &BasketService{logger: logger, recorder: recorder}
}

// AddToBasket reserves quantity copies of a game from the session's catalog snapshot.
// The basket is unchanged when the request is rejected.
func (s *BasketService) AddToBasket(sess *Session, gameID int64, quantity int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	game, ok := sess.game(gameID)
	if !ok {
		s.recorder.RecordBasketRejection("unknown_game")
		return &domain.ValidationError{
			Op:  "add to basket",
			Err: fmt.Errorf("%w: game %d is not in the loaded catalog", domain.ErrNotFound, gameID),
		}
	}

	if err := sess.basket.Add(game, quantity); err != nil {
		s.recorder.RecordBasketRejection(rejectionReason(err))
		logging.Warn(s.logger, "basket add rejected",
			logging.FieldSessionID, sess.ID,
			logging.FieldGameID, gameID,
			logging.FieldCount, quantity,
			"error", err,
		)
		return err
	}
	return nil
}

func (s *BasketService) RemoveFromBasket(sess *Session, gameID int64) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.basket.Remove(gameID); err != nil {
		s.recorder.RecordBasketRejection(rejectionReason(err))
		return err
	}
	return nil
}

func (s *BasketService) BasketTotal(sess *Session) decimal.Decimal {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.basket.Total()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
