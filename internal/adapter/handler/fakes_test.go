package handler

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/core/service"
)

// memStore is an in-memory catalog and purchase repository for transport tests.
type memStore struct {
	mu        sync.Mutex
	games     map[int64]domain.Game
	genres    []domain.Genre
	ratings   []domain.Rating
	purchases []domain.Purchase
	nextID    int64
	err       error
}

func newMemStore() *memStore {
	action := domain.Genre{ID: 1, Label: "Action"}
	puzzle := domain.Genre{ID: 2, Label: "Puzzle"}
	pegi := domain.Rating{ID: 1, Label: "PEGI 12"}
	return &memStore{
		games: map[int64]domain.Game{
			1: {ID: 1, Name: "Halo", Genre: action, Rating: pegi, Price: decimal.RequireFromString("19.99"), Copies: 5},
			2: {ID: 2, Name: "Doom", Genre: action, Rating: pegi, Price: decimal.RequireFromString("5.50"), Copies: 3},
			3: {ID: 3, Name: "Myst", Genre: puzzle, Rating: pegi, Price: decimal.RequireFromString("7.10"), Copies: 0},
		},
		genres:  []domain.Genre{action, puzzle},
		ratings: []domain.Rating{pegi},
		nextID:  100,
	}
}

func (m *memStore) ListGames(ctx context.Context, filter domain.CatalogFilter) ([]domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Game
	for _, g := range m.games {
		if (filter.IncludeOutOfStock || g.InStock()) && (filter.GenreID == 0 || g.Genre.ID == filter.GenreID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return m.genres, m.err
}

func (m *memStore) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	return m.ratings, m.err
}

func (m *memStore) AddGame(ctx context.Context, name string, genreID, ratingID int64, price decimal.Decimal, copies int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.games[m.nextID] = domain.Game{ID: m.nextID, Name: name, Genre: domain.Genre{ID: genreID}, Price: price, Copies: copies}
	return m.nextID, nil
}

func (m *memStore) UpdateGame(ctx context.Context, gameID int64, update domain.GameUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return &domain.PersistenceError{Op: "update game", Err: domain.ErrNotFound}
	}
	if update.Name != nil {
		g.Name = *update.Name
	}
	if update.Price != nil {
		g.Price = *update.Price
	}
	if update.Copies != nil {
		g.Copies = *update.Copies
	}
	m.games[gameID] = g
	return nil
}

func (m *memStore) DeleteGame(ctx context.Context, gameID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[gameID]; !ok {
		return &domain.PersistenceError{Op: "delete game", Err: domain.ErrNotFound}
	}
	delete(m.games, gameID)
	return nil
}

func (m *memStore) AddGenre(ctx context.Context, label string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.genres = append(m.genres, domain.Genre{ID: m.nextID, Label: label})
	return m.nextID, nil
}

func (m *memStore) RenameGenre(ctx context.Context, genreID int64, label string) error {
	return nil
}

func (m *memStore) DeleteGenre(ctx context.Context, genreID int64) error {
	return nil
}

func (m *memStore) CommitPurchase(ctx context.Context, p domain.Purchase) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range p.Items {
		if m.games[item.GameID].Copies < item.Count {
			return 0, &domain.CommitError{Stage: domain.StageStockUpdate, Err: domain.ErrInsufficientStock}
		}
	}
	for _, item := range p.Items {
		g := m.games[item.GameID]
		g.Copies -= item.Count
		m.games[item.GameID] = g
	}

	m.nextID++
	p.ID = m.nextID
	m.purchases = append([]domain.Purchase{p}, m.purchases...)
	return p.ID, nil
}

func (m *memStore) ListPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			header := p
			header.Items = nil
			out = append(out, header)
		}
	}
	return out, nil
}

func (m *memStore) PurchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.purchases {
		if p.ID == purchaseID {
			return p.Items, nil
		}
	}
	return nil, nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) Reserve(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

const testAdminToken = "s3cret"

func newTestServices(store *memStore) Services {
	return Services{
		Sessions: service.NewSessions(),
		Catalog:  service.NewCatalogService(store, nil, nil),
		Basket:   service.NewBasketService(nil, nil),
		Purchases: service.NewPurchaseService(store,
			service.WithIdempotency(&memIdempotency{keys: map[string]bool{}}),
		),
		AdminToken: testAdminToken,
	}
}
