package domain

import "time"

// AbuseAttempt is one append-only row in the abuse ledger. Headers holds a
// JSON snapshot of the offending request headers.
type AbuseAttempt struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"column:ip;index" json:"ip"`
	Endpoint  string    `gorm:"column:endpoint" json:"endpoint"`
	Method    string    `gorm:"column:method" json:"method"`
	Headers   string    `gorm:"column:headers" json:"headers"`
	Timestamp time.Time `gorm:"column:timestamp;index" json:"timestamp"`
}

func (AbuseAttempt) TableName() string {
	return "abuse_attempts"
}

// BlockedIP is a temporary block. At most one row per IP; a re-block replaces
// the old row rather than extending it.
type BlockedIP struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"column:ip;uniqueIndex" json:"ip"`
	BlockedAt time.Time `gorm:"column:blocked_at" json:"blocked_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;index" json:"expires_at"`
}

func (BlockedIP) TableName() string {
	return "blocked_ips"
}
