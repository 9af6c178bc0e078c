package domain

import "fmt"

// StockError reports a basket quantity that would pass the copies on hand.
type StockError struct {
	GameID    int64
	GameName  string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("cannot hold %d copies of %q in the basket, only %d available", e.Requested, e.GameName, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CheckStock is the inventory guard. It compares the proposed basket quantity for a game
// against the copies in the caller's catalog snapshot and never touches the store.
// A proposed quantity must be positive.
func CheckStock(game Game, proposed int) error {
	if proposed <= 0 {
		return &ValidationError{
			Op:  "check stock",
			Err: fmt.Errorf("%w: %d copies of %q", ErrInvalidQuantity, proposed, game.Name),
		}
	}
	if proposed > game.Copies {
		return &ValidationError{
			Op: "check stock",
			Err: &StockError{
				GameID:    game.ID,
				GameName:  game.Name,
				Requested: proposed,
				Available: game.Copies,
			},
		}
	}
	return nil
}
