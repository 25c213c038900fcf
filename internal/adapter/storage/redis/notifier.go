package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"cashback-platform/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const recentEventsCap = 100

// EventPublisher implements ports.NotificationDispatcher using Redis
// pub/sub. Notification portals subscribe to the channel; a capped
// list keeps the most recent events for late joiners.
type EventPublisher struct {
	client  *goredis.Client
	channel string
}

// NewEventPublisher creates a new Redis-backed event publisher.
func NewEventPublisher(client *goredis.Client, channel string) *EventPublisher {
	if channel == "" {
		channel = "settlement.events"
	}
	return &EventPublisher{client: client, channel: channel}
}

// Publish serializes the event and fans it out. Callers treat failures
// as non-fatal; settlement correctness never depends on delivery.
func (p *EventPublisher) Publish(ctx context.Context, event domain.SettlementEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.LPush(ctx, p.channel+":recent", payload)
	pipe.LTrim(ctx, p.channel+":recent", 0, recentEventsCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish settlement event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the most recently published events,
// newest first.
func (p *EventPublisher) Recent(ctx context.Context, limit int64) ([]domain.SettlementEvent, error) {
	if limit <= 0 || limit > recentEventsCap {
		limit = recentEventsCap
	}

	raw, err := p.client.LRange(ctx, p.channel+":recent", 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	events := make([]domain.SettlementEvent, 0, len(raw))
	for _, r := range raw {
		var ev domain.SettlementEvent
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal settlement event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
