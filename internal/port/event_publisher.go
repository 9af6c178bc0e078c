package port

import (
	"context"

	"github.com/rl1809/game-stock/internal/core/domain"
)

type EventPublisher interface {
	PublishPurchaseCommitted(ctx context.Context, purchase domain.Purchase) error
}
