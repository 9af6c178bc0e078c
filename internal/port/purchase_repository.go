package port

import (
	"context"

	"github.com/rl1809/game-stock/internal/core/domain"
)

type PurchaseRepository interface {
	// CommitPurchase writes the header, every line item and every stock decrement in one
	// transaction and returns the generated purchase id. Failures are *domain.CommitError.
	CommitPurchase(ctx context.Context, purchase domain.Purchase) (int64, error)

	// ListPurchases returns a user's purchase headers, newest first
	ListPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error)

	// PurchaseItems returns the stored line items of a purchase
	PurchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseLineItem, error)
}
