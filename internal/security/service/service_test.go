package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	"github.com/smallbiznis/warden/internal/security/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLedger(t *testing.T) (securitydomain.Ledger, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&securitydomain.AbuseAttempt{}, &securitydomain.BlockedIP{}))

	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	ledger := New(Params{
		Config: config.Config{
			Abuse: config.AbuseConfig{
				Window:           15 * time.Minute,
				Threshold:        3,
				BlockDuration:    time.Hour,
				AttemptRetention: 30 * 24 * time.Hour,
			},
		},
		DB:     gdb,
		Log:    zap.NewNop(),
		Repo:   repository.Provide(),
		Clock:  clk,
	})
	return ledger, clk
}

func attempt(ip string) securitydomain.Attempt {
	return securitydomain.Attempt{
		IP:       ip,
		Endpoint: "/api/audio/process",
		Method:   "POST",
		Headers:  map[string]string{"User-Agent": "test"},
	}
}

func TestEscalationAfterThreshold(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	ledger.HandleRateLimited(ctx, attempt("203.0.113.5"))
	ledger.HandleRateLimited(ctx, attempt("203.0.113.5"))
	assert.False(t, ledger.IsBlocked(ctx, "203.0.113.5"))

	ledger.HandleRateLimited(ctx, attempt("203.0.113.5"))
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.5"))

	// Other IPs are unaffected.
	assert.False(t, ledger.IsBlocked(ctx, "203.0.113.6"))
}

func TestEscalationIgnoresAttemptsOutsideWindow(t *testing.T) {
	ledger, clk := newTestLedger(t)
	ctx := context.Background()

	ledger.HandleRateLimited(ctx, attempt("198.51.100.9"))
	ledger.HandleRateLimited(ctx, attempt("198.51.100.9"))

	clk.Advance(16 * time.Minute)

	ledger.HandleRateLimited(ctx, attempt("198.51.100.9"))
	assert.False(t, ledger.IsBlocked(ctx, "198.51.100.9"))
}

func TestBlockExpiresAndSweepIsExactAndIdempotent(t *testing.T) {
	ledger, clk := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Block(ctx, "203.0.113.1", time.Hour))
	require.NoError(t, ledger.Block(ctx, "203.0.113.2", 3*time.Hour))
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.1"))
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.2"))

	clk.Advance(2 * time.Hour)

	// Expiry takes effect before the sweep runs.
	assert.False(t, ledger.IsBlocked(ctx, "203.0.113.1"))
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.2"))

	removed, err := ledger.SweepExpiredBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.2"))

	removed, err = ledger.SweepExpiredBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestReblockReplacesWindow(t *testing.T) {
	ledger, clk := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Block(ctx, "203.0.113.7", time.Hour))
	clk.Advance(50 * time.Minute)
	require.NoError(t, ledger.Block(ctx, "203.0.113.7", time.Hour))

	clk.Advance(30 * time.Minute)
	assert.True(t, ledger.IsBlocked(ctx, "203.0.113.7"))
}

func TestUnblock(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Block(ctx, "203.0.113.3", time.Hour))
	require.NoError(t, ledger.Unblock(ctx, "203.0.113.3"))
	assert.False(t, ledger.IsBlocked(ctx, "203.0.113.3"))

	assert.ErrorIs(t, ledger.Unblock(ctx, "203.0.113.3"), securitydomain.ErrNotBlocked)
}

func TestSweepOldAttempts(t *testing.T) {
	ledger, clk := newTestLedger(t)
	ctx := context.Background()

	ledger.RecordAttempt(ctx, attempt("192.0.2.10"))
	clk.Advance(31 * 24 * time.Hour)
	ledger.RecordAttempt(ctx, attempt("192.0.2.11"))

	removed, err := ledger.SweepOldAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	report, err := ledger.Report(ctx, 1)
	require.NoError(t, err)
	require.Len(t, report.RecentAttempts, 1)
	assert.Equal(t, "192.0.2.11", report.RecentAttempts[0].IP)
}

func TestReport(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ledger.RecordAttempt(ctx, attempt("203.0.113.20"))
	}
	ledger.RecordAttempt(ctx, attempt("203.0.113.21"))
	require.NoError(t, ledger.Block(ctx, "203.0.113.20", time.Hour))

	report, err := ledger.Report(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, report.WindowDays)
	assert.Equal(t, int64(6), report.Stats.TotalAttempts)
	assert.Equal(t, int64(2), report.Stats.UniqueIPs)
	assert.Equal(t, int64(1), report.Stats.ActiveBlocks)
	require.NotEmpty(t, report.TopOffenders)
	assert.Equal(t, "203.0.113.20", report.TopOffenders[0].IP)
	assert.Equal(t, int64(5), report.TopOffenders[0].Attempts)
	require.Len(t, report.ActiveBlocks, 1)
}
