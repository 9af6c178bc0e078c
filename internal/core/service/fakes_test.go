package service

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
)

// Mock CatalogRepository
type mockCatalogRepo struct {
	mu      sync.Mutex
	games   []domain.Game
	genres  []domain.Genre
	ratings []domain.Rating
	err     error
	filters []domain.CatalogFilter
	updates map[int64]domain.GameUpdate
	nextID  int64
}

func newMockCatalogRepo(games ...domain.Game) *mockCatalogRepo {
	return &mockCatalogRepo{
		games:   games,
		genres:  []domain.Genre{{ID: 1, Label: "Action"}, {ID: 2, Label: "Puzzle"}},
		ratings: []domain.Rating{{ID: 1, Label: "PEGI 3"}, {ID: 2, Label: "PEGI 12"}},
		updates: make(map[int64]domain.GameUpdate),
		nextID:  100,
	}
}

func (m *mockCatalogRepo) ListGames(ctx context.Context, filter domain.CatalogFilter) ([]domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.filters = append(m.filters, filter)
	if m.err != nil {
		return nil, m.err
	}

	var out []domain.Game
	for _, g := range m.games {
		if !filter.IncludeOutOfStock && !g.InStock() {
			continue
		}
		if filter.GenreID != 0 && g.Genre.ID != filter.GenreID {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCatalogRepo) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return m.genres, m.err
}

func (m *mockCatalogRepo) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	return m.ratings, m.err
}

func (m *mockCatalogRepo) AddGame(ctx context.Context, name string, genreID, ratingID int64, price decimal.Decimal, copies int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	m.games = append(m.games, domain.Game{
		ID:     m.nextID,
		Name:   name,
		Genre:  domain.Genre{ID: genreID},
		Rating: domain.Rating{ID: ratingID},
		Price:  price,
		Copies: copies,
	})
	return m.nextID, nil
}

func (m *mockCatalogRepo) UpdateGame(ctx context.Context, gameID int64, update domain.GameUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.updates[gameID] = update
	return nil
}

func (m *mockCatalogRepo) DeleteGame(ctx context.Context, gameID int64) error {
	return m.err
}

func (m *mockCatalogRepo) AddGenre(ctx context.Context, label string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	m.genres = append(m.genres, domain.Genre{ID: m.nextID, Label: label})
	return m.nextID, nil
}

func (m *mockCatalogRepo) RenameGenre(ctx context.Context, genreID int64, label string) error {
	return m.err
}

func (m *mockCatalogRepo) DeleteGenre(ctx context.Context, genreID int64) error {
	return m.err
}

// Mock PurchaseRepository
type mockPurchaseRepo struct {
	mu        sync.Mutex
	commits   []domain.Purchase
	purchases map[int64][]domain.Purchase
	items     map[int64][]domain.PurchaseLineItem
	commitErr error
	listErr   error
	nextID    int64
}

func newMockPurchaseRepo() *mockPurchaseRepo {
	return &mockPurchaseRepo{
		purchases: make(map[int64][]domain.Purchase),
		items:     make(map[int64][]domain.PurchaseLineItem),
	}
}

func (m *mockPurchaseRepo) CommitPurchase(ctx context.Context, purchase domain.Purchase) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitErr != nil {
		return 0, m.commitErr
	}

	m.nextID++
	purchase.ID = m.nextID
	m.commits = append(m.commits, purchase)

	header := purchase
	header.Items = nil
	m.purchases[purchase.UserID] = append([]domain.Purchase{header}, m.purchases[purchase.UserID]...)
	m.items[purchase.ID] = purchase.Items
	return purchase.ID, nil
}

func (m *mockPurchaseRepo) ListPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Purchase, len(m.purchases[userID]))
	copy(out, m.purchases[userID])
	return out, nil
}

func (m *mockPurchaseRepo) PurchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[purchaseID], nil
}

// Mock IdempotencyStore
type mockIdempotency struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
	err      error
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) Reserve(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

// Mock EventPublisher
type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Purchase
	err       error
}

func (m *mockPublisher) PublishPurchaseCommitted(ctx context.Context, purchase domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, purchase)
	return nil
}

func fixtureGame(id int64, name, price string, copies int, genreID int64) domain.Game {
	return domain.Game{
		ID:     id,
		Name:   name,
		Genre:  domain.Genre{ID: genreID, Label: map[int64]string{1: "Action", 2: "Puzzle"}[genreID]},
		Rating: domain.Rating{ID: 2, Label: "PEGI 12"},
		Price:  decimal.RequireFromString(price),
		Copies: copies,
	}
}

func sampleGames() []domain.Game {
	return []domain.Game{
		fixtureGame(1, "Halo", "19.99", 5, 1),
		fixtureGame(2, "Doom", "5.50", 3, 1),
		fixtureGame(3, "Myst", "7.10", 0, 2),
		fixtureGame(4, "Tetris", "2.00", 10, 2),
	}
}
