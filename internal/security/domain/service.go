package domain

import (
	"context"
	"errors"
	"time"
)

// Attempt describes a request worth recording in the abuse ledger.
type Attempt struct {
	IP       string
	Endpoint string
	Method   string
	Headers  map[string]string
}

type OffenderStat struct {
	IP       string    `json:"ip"`
	Attempts int64     `json:"attempts"`
	LastSeen time.Time `json:"last_seen"`
}

type ReportStats struct {
	TotalAttempts int64 `json:"total_attempts"`
	UniqueIPs     int64 `json:"unique_ips"`
	ActiveBlocks  int64 `json:"active_blocks"`
}

// Report is the admin-facing abuse summary over a trailing window.
type Report struct {
	WindowDays     int            `json:"window_days"`
	RecentAttempts []AbuseAttempt `json:"recent_attempts"`
	TopOffenders   []OffenderStat `json:"top_offenders"`
	ActiveBlocks   []BlockedIP    `json:"active_blocks"`
	Stats          ReportStats    `json:"stats"`
}

// Ledger is the security ledger plus the abuse detector built on top of it.
type Ledger interface {
	// IsBlocked reports whether the IP currently has an active block. A store
	// failure is logged and treated as not blocked; blocking is an
	// optimization, not the security boundary.
	IsBlocked(ctx context.Context, ip string) bool

	// RecordAttempt appends a ledger row. Best-effort: failures are logged
	// and swallowed, the caller's request is never affected.
	RecordAttempt(ctx context.Context, attempt Attempt)

	// HandleRateLimited records the attempt and escalates the IP to a
	// temporary block once its recent attempt count reaches the threshold.
	HandleRateLimited(ctx context.Context, attempt Attempt)

	Block(ctx context.Context, ip string, duration time.Duration) error

	// Unblock removes the block row for the IP; ErrNotBlocked when there is
	// none.
	Unblock(ctx context.Context, ip string) error

	Report(ctx context.Context, days int) (*Report, error)

	// SweepExpiredBlocks deletes blocks whose expiry is in the past and
	// returns the number removed. Safe to run repeatedly.
	SweepExpiredBlocks(ctx context.Context) (int64, error)

	// SweepOldAttempts deletes ledger rows older than the configured
	// retention and returns the number removed.
	SweepOldAttempts(ctx context.Context) (int64, error)
}

var ErrNotBlocked = errors.New("not_found")
