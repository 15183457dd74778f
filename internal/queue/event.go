// Package queue defines the fulfillment event exchanged over RabbitMQ together
// with its publisher and background consumer.
package queue

import (
	"time"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

// Sources of a ledger write.
const (
	SourceSuccess = "success"
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

// FulfillmentRecorded is published after every successful ledger write.  It
// carries enough for downstream consumers to archive the purchase without
// reading the ledger.
type FulfillmentRecorded struct {
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Entry converts the event into an archive row.
func (ev FulfillmentRecorded) Entry() model.AuditEntry {
	return model.AuditEntry{
		SessionID:  ev.SessionID,
		Role:       ev.Role,
		Email:      ev.Email,
		Source:     ev.Source,
		RecordedAt: ev.RecordedAt.UTC(),
	}
}
