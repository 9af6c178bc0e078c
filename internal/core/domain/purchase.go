package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Purchase struct {
	ID     int64
	UserID int64
	Total  decimal.Decimal
	Date   time.Time
	Items  []PurchaseLineItem
}

// PurchaseLineItem copies the game's name, price, genre and rating at the time of sale
// so history does not change when the catalog does.
type PurchaseLineItem struct {
	ID         int64
	PurchaseID int64
	GameID     int64 // drives the stock decrement, not stored with the item
	GameName   string
	GamePrice  decimal.Decimal
	GameGenre  string
	GameRating string
	Count      int
	Total      decimal.Decimal
}

func (i PurchaseLineItem) TotalBeforeVAT() decimal.Decimal {
	return beforeVAT(i.Total)
}

// NewPurchase builds an unsaved purchase from basket lines.
func NewPurchase(userID int64, lines []BasketLine, at time.Time) Purchase {
	items := make([]PurchaseLineItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item := PurchaseLineItem{
			GameID:     line.Game.ID,
			GameName:   line.Game.Name,
			GamePrice:  line.Game.Price,
			GameGenre:  line.Game.Genre.Label,
			GameRating: line.Game.Rating.Label,
			Count:      line.Quantity,
			Total:      line.Total(),
		}
		total = total.Add(item.Total)
		items = append(items, item)
	}

	return Purchase{
		UserID: userID,
		Total:  total,
		Date:   at,
		Items:  items,
	}
}

func (p Purchase) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Total)
	}
	return total
}

// Verify checks that the header total is the sum of the line totals.
func (p Purchase) Verify() error {
	if sum := p.ItemsTotal(); !sum.Equal(p.Total) {
		return fmt.Errorf("%w: purchase total %s does not match line items %s", ErrInvalidArgument, p.Total, sum)
	}
	for _, item := range p.Items {
		if item.Count <= 0 {
			return fmt.Errorf("%w: %d copies of %q", ErrInvalidQuantity, item.Count, item.GameName)
		}
	}
	return nil
}

func (p Purchase) Copies() int {
	n := 0
	for _, item := range p.Items {
		n += item.Count
	}
	return n
}

func (p Purchase) TotalBeforeVAT() decimal.Decimal {
	return beforeVAT(p.Total)
}

// PurchaseHistory is a user's purchases, newest first.
type PurchaseHistory []Purchase

func (h PurchaseHistory) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range h {
		total = total.Add(p.Total)
	}
	return total
}

// Average is the mean purchase total, zero when there are no purchases.
func (h PurchaseHistory) Average() decimal.Decimal {
	if len(h) == 0 {
		return decimal.Zero
	}
	return h.GrandTotal().Div(decimal.NewFromInt(int64(len(h))))
}

// TotalCopies only counts items that have been loaded onto each purchase.
func (h PurchaseHistory) TotalCopies() int {
	n := 0
	for _, p := range h {
		n += p.Copies()
	}
	return n
}
