package ops

import "time"

const (
	AlertIdentityRejected = "identity_rejected"
	AlertPaymentFailed    = "payment_failed"
	AlertAmountMismatch   = "amount_mismatch"
	AlertWebhookFailure   = "webhook_failure"
)

// AdminAlert is a back-office notice. DedupeKey keeps webhook replays from stacking duplicates.
type AdminAlert struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind       string     `gorm:"type:varchar(40);not null;index" json:"kind"`
	DedupeKey  string     `gorm:"type:varchar(191);not null;uniqueIndex:idx_admin_alerts_dedupe" json:"dedupe_key"`
	UserID     *string    `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (AdminAlert) TableName() string { return "admin_alerts" }

// WebhookEvent stores provider event ids for idempotent processing.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Endpoint        string     `gorm:"type:varchar(20);not null;index" json:"endpoint"`
	EventID         string     `gorm:"type:varchar(191);not null;uniqueIndex:idx_webhook_events_event" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Done reports whether the event already went through without error.
func (e WebhookEvent) Done() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
