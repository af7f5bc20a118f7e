package domain

import "time"

const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// WebhookEvent is one outbound event row. Delivery is simulated: the row is
// written, the event is logged, and the row is marked sent.
type WebhookEvent struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	LicenseID string    `gorm:"column:license_id;index" json:"license_id"`
	EventType string    `gorm:"column:event_type" json:"event_type"`
	Payload   string    `gorm:"column:payload" json:"payload"`
	Status    string    `gorm:"column:status;default:pending" json:"status"`
	Attempts  int       `gorm:"column:attempts" json:"attempts"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhooks"
}
