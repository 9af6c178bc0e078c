package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/adapter/storage"
	"github.com/rl1809/game-stock/internal/config"
	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/core/service"
)

const (
	initialCopies = 20
	totalSessions = 50
)

// Every session loads the catalog while all copies are still in stock, so every
// basket passes its own guard check. Only the conditional decrement in the commit
// transaction stands between the sessions and overselling.
func main() {
	ctx := context.Background()
	cfg := config.Load()

	dialect, err := storage.ParseDialect(cfg.Store.Driver)
	if err != nil {
		log.Fatal(err)
	}
	db, err := storage.OpenDB(ctx, dialect, cfg.Store.DSN, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns)
	if err != nil {
		log.Fatalf("failed to connect store: %v", err)
	}
	defer db.Close()

	store := storage.NewSQLAdapter(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	name := fmt.Sprintf("stress-%d", time.Now().UnixNano())
	gameID, err := store.AddGame(ctx, name, 0, 0, decimal.RequireFromString("9.99"), initialCopies)
	if err != nil {
		log.Fatalf("failed to add game: %v", err)
	}
	defer store.DeleteGame(ctx, gameID)

	sessions := service.NewSessions()
	catalog := service.NewCatalogService(store, nil, nil)
	basket := service.NewBasketService(nil, nil)
	purchases := service.NewPurchaseService(store)

	// Prepare baskets before anyone commits
	ready := make([]*service.Session, 0, totalSessions)
	for i := 0; i < totalSessions; i++ {
		sess := sessions.Open(int64(900000+i), false)
		if _, err := catalog.LoadCatalog(ctx, sess); err != nil {
			log.Fatalf("failed to load catalog: %v", err)
		}
		if err := basket.AddToBasket(sess, gameID, 1); err != nil {
			log.Fatalf("failed to fill basket: %v", err)
		}
		ready = append(ready, sess)
	}

	var successCount atomic.Int32
	var stockFailCount atomic.Int32
	var otherFailCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for _, sess := range ready {
		wg.Add(1)
		go func(sess *service.Session) {
			defer wg.Done()

			_, err := purchases.CommitPurchase(ctx, sess, "")
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				stockFailCount.Add(1)
			default:
				otherFailCount.Add(1)
				log.Printf("commit failed: %v", err)
			}
		}(sess)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	stockFail := stockFailCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Copies:   %d\n", initialCopies)
	fmt.Printf("Sessions:         %d\n", totalSessions)
	fmt.Printf("Committed:        %d\n", success)
	fmt.Printf("Out of stock:     %d\n", stockFail)
	fmt.Printf("Other failures:   %d\n", otherFailCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialCopies && stockFail == totalSessions-initialCopies {
		fmt.Printf("PASS: Exactly %d purchases committed, %d rejected\n", initialCopies, totalSessions-initialCopies)
	} else {
		fmt.Printf("FAIL: Expected %d committed/%d rejected, got %d/%d\n",
			initialCopies, totalSessions-initialCopies, success, stockFail)
	}

	games, err := store.ListGames(ctx, domain.CatalogFilter{IncludeOutOfStock: true})
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	for _, g := range games {
		if g.ID != gameID {
			continue
		}
		fmt.Printf("Final Copies: %d\n", g.Copies)
		if g.Copies == 0 {
			fmt.Println("PASS: Copies depleted to 0")
		} else {
			fmt.Printf("FAIL: Expected copies 0, got %d\n", g.Copies)
		}
	}
}
