package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/warden/internal/clock"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	"github.com/smallbiznis/warden/internal/license/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (licensedomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&licensedomain.License{}))

	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, gdb, clk
}

func createLicense(t *testing.T, svc licensedomain.Service, plan string) *licensedomain.License {
	t.Helper()
	license, err := svc.Create(context.Background(), licensedomain.CreateRequest{
		CompanyName: "Acme Audio",
		Email:       "ops@acme.test",
		PlanType:    plan,
		ExpiresAt:   "2027-01-01",
	})
	require.NoError(t, err)
	return license
}

func TestCreateValidatesRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []licensedomain.CreateRequest{
		{Email: "a@b.test", PlanType: "basic", ExpiresAt: "2027-01-01"},
		{CompanyName: "Acme", PlanType: "basic", ExpiresAt: "2027-01-01"},
		{CompanyName: "Acme", Email: "a@b.test", ExpiresAt: "2027-01-01"},
		{CompanyName: "Acme", Email: "a@b.test", PlanType: "basic"},
		{CompanyName: "Acme", Email: "a@b.test", PlanType: "platinum", ExpiresAt: "2027-01-01"},
		{CompanyName: "Acme", Email: "a@b.test", PlanType: "basic", ExpiresAt: "soon"},
	}
	for _, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, licensedomain.ErrInvalidRequest)
	}
}

func TestCreateIssuesCredentialTriple(t *testing.T) {
	svc, _, _ := newTestService(t)

	license := createLicense(t, svc, licensedomain.PlanBasic)

	assert.True(t, strings.HasPrefix(license.APIKey, "sk_live_"))
	assert.True(t, strings.HasPrefix(license.SecretKey, "sk_secret_"))
	assert.True(t, strings.HasPrefix(license.LicenseKey, "lic_"))
	assert.Equal(t, licensedomain.StatusActive, license.Status)
	assert.Equal(t, int64(1000), license.RequestsLimit)
	assert.Equal(t, int64(0), license.RequestsUsed)
	assert.NotEmpty(t, license.ID)
	assert.NotEmpty(t, license.UserID)
}

func TestCreatePlanLimits(t *testing.T) {
	svc, _, _ := newTestService(t)

	pro := createLicense(t, svc, licensedomain.PlanPro)
	assert.Equal(t, int64(10000), pro.RequestsLimit)

	enterprise, err := svc.Create(context.Background(), licensedomain.CreateRequest{
		CompanyName: "Big Corp",
		Email:       "big@corp.test",
		PlanType:    "Enterprise",
		ExpiresAt:   "2027-06-30T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), enterprise.RequestsLimit)
	assert.Equal(t, licensedomain.PlanEnterprise, enterprise.PlanType)
}

func credsOf(l *licensedomain.License) licensedomain.Credentials {
	return licensedomain.Credentials{
		APIKey:     l.APIKey,
		LicenseKey: l.LicenseKey,
		SecretKey:  l.SecretKey,
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	license := createLicense(t, svc, licensedomain.PlanBasic)

	creds := credsOf(license)
	creds.SecretKey = ""
	_, err := svc.Authenticate(context.Background(), creds)
	assert.ErrorIs(t, err, licensedomain.ErrMissingCredentials)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	license := createLicense(t, svc, licensedomain.PlanBasic)

	// All three present but the triple does not match a single row.
	creds := credsOf(license)
	creds.APIKey = "sk_live_wrong"
	_, err := svc.Authenticate(context.Background(), creds)
	assert.ErrorIs(t, err, licensedomain.ErrInvalidCredentials)
}

func TestAuthenticateRevokedLicense(t *testing.T) {
	svc, _, _ := newTestService(t)
	license := createLicense(t, svc, licensedomain.PlanBasic)
	require.NoError(t, svc.Revoke(context.Background(), license.ID))

	_, err := svc.Authenticate(context.Background(), credsOf(license))
	assert.ErrorIs(t, err, licensedomain.ErrLicenseInactive)
}

func TestAuthenticateExpiredLicense(t *testing.T) {
	svc, _, clk := newTestService(t)
	license := createLicense(t, svc, licensedomain.PlanBasic)

	clk.Advance(2 * 365 * 24 * time.Hour)

	_, err := svc.Authenticate(context.Background(), credsOf(license))
	assert.ErrorIs(t, err, licensedomain.ErrLicenseExpired)
}

func TestAuthenticateQuotaBoundary(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	license := createLicense(t, svc, licensedomain.PlanBasic)

	require.NoError(t, gdb.Exec(
		`UPDATE licenses SET requests_used = requests_limit - 1 WHERE id = ?`,
		license.ID,
	).Error)

	// Request 1000 is the last one admitted.
	authed, err := svc.Authenticate(context.Background(), credsOf(license))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), authed.RequestsUsed)

	// Request 1001 is rejected and the counter does not overshoot.
	_, err = svc.Authenticate(context.Background(), credsOf(license))
	assert.ErrorIs(t, err, licensedomain.ErrQuotaExceeded)

	var used int64
	require.NoError(t, gdb.Raw(
		`SELECT requests_used FROM licenses WHERE id = ?`, license.ID,
	).Scan(&used).Error)
	assert.Equal(t, int64(1000), used)
}

func TestRevokeUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Revoke(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, licensedomain.ErrNotFound)
}

func TestLinkStripePicksNewestLicense(t *testing.T) {
	svc, gdb, clk := newTestService(t)
	ctx := context.Background()

	old := createLicense(t, svc, licensedomain.PlanBasic)
	clk.Advance(time.Hour)
	newest := createLicense(t, svc, licensedomain.PlanPro)

	customer := "cus_123"
	sub := "sub_456"
	require.NoError(t, svc.LinkStripe(ctx, "ops@acme.test", licensedomain.StripeLink{
		CustomerID:     &customer,
		SubscriptionID: &sub,
	}))

	var got licensedomain.License
	require.NoError(t, gdb.First(&got, "id = ?", newest.ID).Error)
	require.NotNil(t, got.StripeSubscriptionID)
	assert.Equal(t, sub, *got.StripeSubscriptionID)

	var untouched licensedomain.License
	require.NoError(t, gdb.First(&untouched, "id = ?", old.ID).Error)
	assert.Nil(t, untouched.StripeSubscriptionID)
}

func TestSyncSubscriptionStatus(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	ctx := context.Background()

	license := createLicense(t, svc, licensedomain.PlanBasic)
	sub := "sub_789"
	require.NoError(t, svc.LinkStripe(ctx, license.Email, licensedomain.StripeLink{SubscriptionID: &sub}))

	require.NoError(t, svc.SyncSubscriptionStatus(ctx, sub, false))
	var got licensedomain.License
	require.NoError(t, gdb.First(&got, "id = ?", license.ID).Error)
	assert.Equal(t, licensedomain.StatusRevoked, got.Status)

	require.NoError(t, svc.SyncSubscriptionStatus(ctx, sub, true))
	require.NoError(t, gdb.First(&got, "id = ?", license.ID).Error)
	assert.Equal(t, licensedomain.StatusActive, got.Status)

	assert.ErrorIs(t, svc.SyncSubscriptionStatus(ctx, "sub_unknown", true), licensedomain.ErrNotFound)
}
