package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/core/service"
)

// Amounts travel as fixed two-decimal strings.

type GameDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	GenreID  int64  `json:"genre_id"`
	Genre    string `json:"genre"`
	RatingID int64  `json:"rating_id"`
	Rating   string `json:"rating"`
	Price    string `json:"price"`
	Copies   int    `json:"copies"`
}

type BasketLineDTO struct {
	GameID   int64  `json:"game_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

type BasketResponse struct {
	Lines          []BasketLineDTO `json:"lines"`
	Total          string          `json:"total"`
	TotalBeforeVAT string          `json:"total_before_vat"`
}

type ReceiptResponse struct {
	PurchaseID     int64  `json:"purchase_id"`
	Total          string `json:"total"`
	TotalBeforeVAT string `json:"total_before_vat"`
	Lines          int    `json:"lines"`
	Copies         int    `json:"copies"`
}

type PurchaseItemDTO struct {
	GameName       string `json:"game_name"`
	GamePrice      string `json:"game_price"`
	GameGenre      string `json:"game_genre"`
	GameRating     string `json:"game_rating"`
	Count          int    `json:"count"`
	Total          string `json:"total"`
	TotalBeforeVAT string `json:"total_before_vat"`
}

type PurchaseDTO struct {
	ID             int64             `json:"id"`
	Total          string            `json:"total"`
	TotalBeforeVAT string            `json:"total_before_vat"`
	Date           time.Time         `json:"date"`
	Items          []PurchaseItemDTO `json:"items,omitempty"`
}

type HistoryResponse struct {
	Purchases   []PurchaseDTO `json:"purchases"`
	GrandTotal  string        `json:"grand_total"`
	Average     string        `json:"average"`
	TotalCopies int           `json:"total_copies"`
}

type LabelDTO struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toGameDTOs(games []domain.Game) []GameDTO {
	out := make([]GameDTO, 0, len(games))
	for _, g := range games {
		out = append(out, GameDTO{
			ID:       g.ID,
			Name:     g.Name,
			GenreID:  g.Genre.ID,
			Genre:    g.Genre.Label,
			RatingID: g.Rating.ID,
			Rating:   g.Rating.Label,
			Price:    money(g.Price),
			Copies:   g.Copies,
		})
	}
	return out
}

func toBasketResponse(view service.BasketView) BasketResponse {
	lines := make([]BasketLineDTO, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, BasketLineDTO{
			GameID:   l.Game.ID,
			Name:     l.Game.Name,
			Price:    money(l.Game.Price),
			Quantity: l.Quantity,
			Total:    money(l.Total()),
		})
	}
	return BasketResponse{
		Lines:          lines,
		Total:          money(view.Total),
		TotalBeforeVAT: money(view.TotalBeforeVAT),
	}
}

func toReceiptResponse(r service.Receipt) ReceiptResponse {
	return ReceiptResponse{
		PurchaseID:     r.PurchaseID,
		Total:          money(r.Total),
		TotalBeforeVAT: money(r.TotalBeforeVAT),
		Lines:          r.Lines,
		Copies:         r.Copies,
	}
}

func toPurchaseDTO(p domain.Purchase) PurchaseDTO {
	dto := PurchaseDTO{
		ID:             p.ID,
		Total:          money(p.Total),
		TotalBeforeVAT: money(p.TotalBeforeVAT()),
		Date:           p.Date,
	}
	for _, item := range p.Items {
		dto.Items = append(dto.Items, PurchaseItemDTO{
			GameName:       item.GameName,
			GamePrice:      money(item.GamePrice),
			GameGenre:      item.GameGenre,
			GameRating:     item.GameRating,
			Count:          item.Count,
			Total:          money(item.Total),
			TotalBeforeVAT: money(item.TotalBeforeVAT()),
		})
	}
	return dto
}

func toHistoryResponse(h domain.PurchaseHistory) HistoryResponse {
	purchases := make([]PurchaseDTO, 0, len(h))
	for _, p := range h {
		purchases = append(purchases, toPurchaseDTO(p))
	}
	return HistoryResponse{
		Purchases:   purchases,
		GrandTotal:  money(h.GrandTotal()),
		Average:     money(h.Average()),
		TotalCopies: h.TotalCopies(),
	}
}
