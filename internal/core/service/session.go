package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
)

// Session is the state owned by one signed-in user: who they are, whether they act with
// management scope, the catalog snapshot they last loaded, and their basket.
// Operations on a session are serialized by its mutex.
type Session struct {
	ID         string
	UserID     int64
	Privileged bool
	OpenedAt   time.Time

	mu          sync.Mutex
	catalog     []domain.Game
	genreFilter int64
	basket      *domain.Basket
}

func NewSession(userID int64, privileged bool) *Session {
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Privileged: privileged,
		OpenedAt:   time.Now(),
		basket:     domain.NewBasket(userID),
	}
}

// BasketView is a read-only copy of a session's basket.
type BasketView struct {
	Lines          []domain.BasketLine
	Total          decimal.Decimal
	TotalBeforeVAT decimal.Decimal
}

// Catalog returns a copy of the last loaded catalog snapshot.
func (s *Session) Catalog() []domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Game, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func (s *Session) Basket() BasketView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basketView()
}

func (s *Session) GenreFilter() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genreFilter
}

// SetGenreFilter sets the genre used by the next catalog load. Zero clears it.
func (s *Session) SetGenreFilter(genreID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genreFilter = genreID
}

func (s *Session) basketView() BasketView {
	return BasketView{
		Lines:          s.basket.Lines(),
		Total:          s.basket.Total(),
		TotalBeforeVAT: s.basket.TotalBeforeVAT(),
	}
}

func (s *Session) game(gameID int64) (domain.Game, bool) {
	for _, g := range s.catalog {
		if g.ID == gameID {
			return g, true
		}
	}
	return domain.Game{}, false
}

// applyCommitted lowers the snapshot copies of every game in a committed purchase.
func (s *Session) applyCommitted(p domain.Purchase) {
	for _, item := range p.Items {
		for i := range s.catalog {
			if s.catalog[i].ID == item.GameID {
				s.catalog[i].Copies -= item.Count
			}
		}
	}
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.basket.Clear()
	s.catalog = nil
	s.genreFilter = 0
}

// Sessions tracks open sessions by id.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

func (r *Sessions) Open(userID int64, privileged bool) *Session {
	sess := NewSession(userID, privileged)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return sess
}

func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

// Close logs the session out: the basket is emptied and the session forgotten.
func (r *Sessions) Close(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	sess.reset()
	return nil
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
