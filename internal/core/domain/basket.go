package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// beforeVATRatio is the fixed share of a gross amount that excludes VAT.
var beforeVATRatio = decimal.RequireFromString("0.80")

func beforeVAT(total decimal.Decimal) decimal.Decimal {
	return total.Mul(beforeVATRatio)
}

// BasketLine holds a snapshot of the game taken when it was first added.
type BasketLine struct {
	Game     Game
	Quantity int
}

func (l BasketLine) Total() decimal.Decimal {
	return l.Game.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l BasketLine) TotalBeforeVAT() decimal.Decimal {
	return beforeVAT(l.Total())
}

// Basket is an ordered set of lines keyed by game id. It is never persisted.
type Basket struct {
	UserID int64
	lines  []BasketLine
}

func NewBasket(userID int64) *Basket {
	return &Basket{UserID: userID}
}

// Add reserves quantity copies of game. A second add for the same game merges into the
// existing line. The merged quantity is checked against game.Copies before anything changes.
func (b *Basket) Add(game Game, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{
			Op:  "add to basket",
			Err: fmt.Errorf("%w: %d copies of %q", ErrInvalidQuantity, quantity, game.Name),
		}
	}

	idx := b.index(game.ID)
	proposed := quantity
	if idx >= 0 {
		proposed = mergeQuantity(b.lines[idx].Quantity, quantity)
	}

	if err := CheckStock(game, proposed); err != nil {
		return err
	}

	if idx >= 0 {
		b.lines[idx].Quantity = proposed
		return nil
	}

	b.lines = append(b.lines, BasketLine{Game: game, Quantity: quantity})
	return nil
}

// mergeQuantity adds two positive quantities, saturating at math.MaxInt.
func mergeQuantity(existing, quantity int) int {
	if quantity > math.MaxInt-existing {
		return math.MaxInt
	}
	return existing + quantity
}

// Remove deletes the line for gameID. Removing a game that is not in the basket is an error.
func (b *Basket) Remove(gameID int64) error {
	idx := b.index(gameID)
	if idx < 0 {
		return &ValidationError{
			Op:  "remove from basket",
			Err: fmt.Errorf("%w: game %d is not in the basket", ErrNotFound, gameID),
		}
	}

	b.lines = append(b.lines[:idx], b.lines[idx+1:]...)
	return nil
}

func (b *Basket) Quantity(gameID int64) int {
	if idx := b.index(gameID); idx >= 0 {
		return b.lines[idx].Quantity
	}
	return 0
}

// Lines returns a copy of the basket lines in insertion order.
func (b *Basket) Lines() []BasketLine {
	out := make([]BasketLine, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Basket) Len() int {
	return len(b.lines)
}

func (b *Basket) Empty() bool {
	return len(b.lines) == 0
}

func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.lines {
		total = total.Add(line.Total())
	}
	return total
}

func (b *Basket) TotalBeforeVAT() decimal.Decimal {
	return beforeVAT(b.Total())
}

func (b *Basket) Clear() {
	b.lines = nil
}

func (b *Basket) index(gameID int64) int {
	for i, line := range b.lines {
		if line.Game.ID == gameID {
			return i
		}
	}
	return -1
}
