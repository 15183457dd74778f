package service

import (
	"context"

	"github.com/iliyamo/blueprint-paywall/internal/queue"
)

// EventPublisher receives an event for every ledger write.  queue.Publisher
// implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.FulfillmentRecorded) error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.FulfillmentRecorded) error { return nil }
