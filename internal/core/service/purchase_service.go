package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/logging"
	"github.com/rl1809/game-stock/internal/metrics"
	"github.com/rl1809/game-stock/internal/port"
)

// Receipt is the result of a purchase commit.
type Receipt struct {
	PurchaseID     int64
	Total          decimal.Decimal
	TotalBeforeVAT decimal.Decimal
	Lines          int
	Copies         int
}

type PurchaseService struct {
	repo        port.PurchaseRepository
	idempotency port.IdempotencyStore
	publisher   port.EventPublisher
	logger      *slog.Logger
	recorder    *metrics.Recorder
	now         func() time.Time
}

type PurchaseOption func(*PurchaseService)

// WithIdempotency rejects a second commit carrying the same request id.
func WithIdempotency(store port.IdempotencyStore) PurchaseOption {
	return func(s *PurchaseService) { s.idempotency = store }
}

// WithPublisher announces every committed purchase.
func WithPublisher(publisher port.EventPublisher) PurchaseOption {
	return func(s *PurchaseService) { s.publisher = publisher }
}

func WithLogger(logger *slog.Logger) PurchaseOption {
	return func(s *PurchaseService) { s.logger = logger }
}

func WithRecorder(recorder *metrics.Recorder) PurchaseOption {
	return func(s *PurchaseService) { s.recorder = recorder }
}

func WithClock(now func() time.Time) PurchaseOption {
	return func(s *PurchaseService) { s.now = now }
}

func NewPurchaseService(repo port.PurchaseRepository, opts ...PurchaseOption) *PurchaseService {
	s := &PurchaseService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommitPurchase turns the session's basket into a stored purchase. The header, line items
// and stock decrements are written in one transaction; on failure nothing is written and
// the basket is kept so the caller can retry. An empty basket commits nothing and returns
// a zero total.
func (s *PurchaseService) CommitPurchase(ctx context.Context, sess *Session, requestID string) (Receipt, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	idempotencyKey := ""
	if requestID != "" && s.idempotency != nil {
		idempotencyKey = fmt.Sprintf("purchase:%d:%s", sess.UserID, requestID)

		ok, err := s.idempotency.Reserve(ctx, idempotencyKey)
		if err != nil {
			return Receipt{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return Receipt{}, domain.ErrDuplicateRequest
		}
	}

	// A retried request id is reported above even once its basket has been cleared.
	if sess.basket.Empty() {
		s.release(ctx, idempotencyKey)
		return Receipt{Total: decimal.Zero, TotalBeforeVAT: decimal.Zero}, nil
	}

	purchase := domain.NewPurchase(sess.UserID, sess.basket.Lines(), s.now().UTC())
	if err := purchase.Verify(); err != nil {
		s.release(ctx, idempotencyKey)
		return Receipt{}, err
	}

	start := time.Now()
	id, err := s.repo.CommitPurchase(ctx, purchase)
	duration := time.Since(start)
	if err != nil {
		stage := ""
		var commitErr *domain.CommitError
		if errors.As(err, &commitErr) {
			stage = string(commitErr.Stage)
		}
		s.recorder.RecordCommit(duration, 0, stage, err)
		logging.Error(s.logger, "purchase commit failed", err,
			logging.FieldSessionID, sess.ID,
			logging.FieldUserID, sess.UserID,
			logging.FieldStage, stage,
		)
		s.release(ctx, idempotencyKey)
		return Receipt{}, err
	}

	purchase.ID = id
	for i := range purchase.Items {
		purchase.Items[i].PurchaseID = id
	}

	s.recorder.RecordCommit(duration, purchase.Copies(), "", nil)
	logging.Info(s.logger, "purchase committed",
		logging.FieldPurchaseID, id,
		logging.FieldUserID, sess.UserID,
		logging.FieldTotal, purchase.Total.StringFixed(2),
		logging.FieldCount, len(purchase.Items),
		logging.FieldDurationMS, duration.Milliseconds(),
	)

	sess.applyCommitted(purchase)
	sess.basket.Clear()

	if s.publisher != nil {
		if err := s.publisher.PublishPurchaseCommitted(ctx, purchase); err != nil {
			logging.Error(s.logger, "failed to publish purchase committed event", err, logging.FieldPurchaseID, id)
		}
	}

	return Receipt{
		PurchaseID:     id,
		Total:          purchase.Total,
		TotalBeforeVAT: purchase.TotalBeforeVAT(),
		Lines:          len(purchase.Items),
		Copies:         purchase.Copies(),
	}, nil
}

// ListPurchases returns the session user's purchases, newest first. With withItems the
// line items of every purchase are loaded too.
func (s *PurchaseService) ListPurchases(ctx context.Context, sess *Session, withItems bool) (domain.PurchaseHistory, error) {
	purchases, err := s.repo.ListPurchases(ctx, sess.UserID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list purchases", Err: err}
	}

	if withItems {
		for i := range purchases {
			items, err := s.repo.PurchaseItems(ctx, purchases[i].ID)
			if err != nil {
				return nil, &domain.PersistenceError{Op: "list purchase items", Err: err}
			}
			purchases[i].Items = items
		}
	}

	return domain.PurchaseHistory(purchases), nil
}

// PurchaseDetails returns one of the session user's purchases with its line items.
func (s *PurchaseService) PurchaseDetails(ctx context.Context, sess *Session, purchaseID int64) (domain.Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx, sess.UserID)
	if err != nil {
		return domain.Purchase{}, &domain.PersistenceError{Op: "list purchases", Err: err}
	}

	for _, p := range purchases {
		if p.ID != purchaseID {
			continue
		}
		items, err := s.repo.PurchaseItems(ctx, p.ID)
		if err != nil {
			return domain.Purchase{}, &domain.PersistenceError{Op: "list purchase items", Err: err}
		}
		p.Items = items
		return p, nil
	}

	return domain.Purchase{}, &domain.ValidationError{
		Op:  "purchase details",
		Err: fmt.Errorf("%w: purchase %d", domain.ErrNotFound, purchaseID),
	}
}

func (s *PurchaseService) release(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		logging.Error(s.logger, "failed to release idempotency key", err, "key", key)
	}
}
