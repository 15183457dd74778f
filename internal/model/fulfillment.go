package model

import "time"

// Fulfillment records that a checkout session was confirmed paid and which
// role it unlocks.  It is the value stored in the fulfillment ledger under
// `fulfillment:{session_id}`.  The JSON layout is shared with records written
// by earlier deployments, so CreatedAt is kept as unix milliseconds.
//
// Fields:
//
//	SessionID – provider-issued checkout session identifier (primary key).
//	Role      – lowercase role slug the purchase unlocks.
//	Email     – customer email, record-keeping only; never used for access.
//	CreatedAt – unix milliseconds when the record was written.
type Fulfillment struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// CreatedTime converts CreatedAt into a time.Time in UTC.
func (f Fulfillment) CreatedTime() time.Time {
	return time.UnixMilli(f.CreatedAt).UTC()
}

// Access is the decoded content of a valid access token: the unlocked role and
// the checkout session that paid for it.
type Access struct {
	Role      string
	SessionID string
}

// AuditEntry is a row in the `fulfillment_audit` table.  The archive keeps
// purchases after the ledger TTL has expired them.
//
// Fields:
//
//	SessionID  – checkout session identifier (primary key).
//	Role       – unlocked role slug.
//	Email      – customer email (may be empty).
//	Source     – which confirmation path wrote the ledger record.
//	RecordedAt – when the ledger write happened.
type AuditEntry struct {
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}
