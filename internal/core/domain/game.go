package domain

import "github.com/shopspring/decimal"

type Genre struct {
	ID    int64
	Label string
}

type Rating struct {
	ID    int64
	Label string
}

// Game is a catalog row. Copies is the only stock counter in the system.
type Game struct {
	ID     int64
	Name   string
	Genre  Genre
	Rating Rating
	Price  decimal.Decimal
	Copies int
}

func (g Game) InStock() bool {
	return g.Copies > 0
}

// CatalogFilter scopes a catalog load. A zero GenreID means every genre.
type CatalogFilter struct {
	GenreID           int64
	IncludeOutOfStock bool
}

// GameUpdate carries the single field a catalog mutation changes.
type GameUpdate struct {
	Name     *string
	GenreID  *int64
	RatingID *int64
	Price    *decimal.Decimal
	Copies   *int
}

func (u GameUpdate) Empty() bool {
	return u.Name == nil && u.GenreID == nil && u.RatingID == nil && u.Price == nil && u.Copies == nil
}
