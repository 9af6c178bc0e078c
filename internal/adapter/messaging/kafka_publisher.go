package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/game-stock/internal/core/domain"
)

const EventPurchaseCommitted = "purchase.committed"

// PurchaseCommitted is the message written for every committed purchase.
type PurchaseCommitted struct {
	Type       string          `json:"type"`
	PurchaseID int64           `json:"purchase_id"`
	UserID     int64           `json:"user_id"`
	Total      string          `json:"total"`
	Date       time.Time       `json:"date"`
	Items      []PurchasedItem `json:"items"`
}

type PurchasedItem struct {
	GameID   int64  `json:"game_id"`
	GameName string `json:"game_name"`
	Price    string `json:"price"`
	Count    int    `json:"count"`
	Total    string `json:"total"`
}

func NewPurchaseCommitted(p domain.Purchase) PurchaseCommitted {
	items := make([]PurchasedItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, PurchasedItem{
			GameID:   item.GameID,
			GameName: item.GameName,
			Price:    item.GamePrice.StringFixed(2),
			Count:    item.Count,
			Total:    item.Total.StringFixed(2),
		})
	}

	return PurchaseCommitted{
		Type:       EventPurchaseCommitted,
		PurchaseID: p.ID,
		UserID:     p.UserID,
		Total:      p.Total.StringFixed(2),
		Date:       p.Date,
		Items:      items,
	}
}

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishPurchaseCommitted writes the event keyed by user id so a user's purchases stay ordered.
func (p *KafkaPublisher) PublishPurchaseCommitted(ctx context.Context, purchase domain.Purchase) error {
	value, err := json.Marshal(NewPurchaseCommitted(purchase))
	if err != nil {
		return fmt.Errorf("marshal purchase event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(purchase.UserID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish purchase %d: %w", purchase.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
