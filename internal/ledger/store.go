package ledger

import (
	"context"
	"time"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

// Store is a key-value backend for fulfillment records keyed by session id.
// Get returns (nil, nil) when no record exists; a non-nil error always means
// the backend could not answer.
type Store interface {
	Get(ctx context.Context, sessionID string) (*model.Fulfillment, error)
	Set(ctx context.Context, f model.Fulfillment, ttl time.Duration) error
}
