package domain

import (
	"context"
	"time"
)

// Entry is one admitted request to account for.
type Entry struct {
	LicenseID    string
	Endpoint     string
	Method       string
	StatusCode   int
	ResponseTime time.Duration
}

// LicenseSummary is one row of the admin-wide usage view.
type LicenseSummary struct {
	LicenseID       string  `json:"license_id"`
	CompanyName     string  `json:"company_name"`
	PlanType        string  `json:"plan_type"`
	RequestsUsed    int64   `json:"requests_used"`
	RequestsLimit   int64   `json:"requests_limit"`
	TotalRequests   int64   `json:"total_requests"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// TimelineBucket is one day of a license's request history.
type TimelineBucket struct {
	Date            string  `json:"date"`
	Requests        int64   `json:"requests"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

type UsageStats struct {
	TotalRequests   int64   `json:"total_requests"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorCount      int64   `json:"error_count"`
}

// Report is the per-license analytics view over a trailing period.
type Report struct {
	Period   string           `json:"period"`
	Stats    UsageStats       `json:"stats"`
	Timeline []TimelineBucket `json:"timeline"`
}

type Service interface {
	// Record appends one request log row. Best-effort: failures are logged
	// and swallowed so accounting can never fail a served response.
	Record(ctx context.Context, entry Entry)

	// GlobalSummary aggregates usage per license across all time.
	GlobalSummary(ctx context.Context) ([]LicenseSummary, error)

	// LicenseReport aggregates one license's traffic over the trailing
	// period ("24h", "7d" or "30d"; anything else falls back to 30d).
	LicenseReport(ctx context.Context, licenseID, period string) (*Report, error)
}
