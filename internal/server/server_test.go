package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	analyticsrepo "github.com/smallbiznis/warden/internal/analytics/repository"
	analyticsservice "github.com/smallbiznis/warden/internal/analytics/service"
	"github.com/smallbiznis/warden/internal/billing"
	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	licenserepo "github.com/smallbiznis/warden/internal/license/repository"
	licenseservice "github.com/smallbiznis/warden/internal/license/service"
	"github.com/smallbiznis/warden/internal/observability"
	"github.com/smallbiznis/warden/internal/ratelimit"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	securityrepo "github.com/smallbiznis/warden/internal/security/repository"
	securityservice "github.com/smallbiznis/warden/internal/security/service"
	webhookdomain "github.com/smallbiznis/warden/internal/webhook/domain"
	webhookrepo "github.com/smallbiznis/warden/internal/webhook/repository"
	webhookservice "github.com/smallbiznis/warden/internal/webhook/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	server   *Server
	db       *gorm.DB
	clk      *clock.FakeClock
	licenses licensedomain.Service
	ledger   securitydomain.Ledger
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig() config.Config {
	return config.Config{
		AppName:    "warden",
		AppVersion: "test",
		BaseURL:    "http://localhost:3000",
		RateLimit: config.RateLimitConfig{
			GlobalRate: 100, GlobalBurst: 1000,
			APIRate: 100, APIBurst: 1000,
			AuthRate: 100, AuthBurst: 1000,
		},
		Abuse: config.AbuseConfig{
			Window:           15 * time.Minute,
			Threshold:        100,
			BlockDuration:    time.Hour,
			AttemptRetention: 30 * 24 * time.Hour,
		},
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&licensedomain.License{},
		&analyticsdomain.ApiRequestLog{},
		&webhookdomain.WebhookEvent{},
		&securitydomain.AbuseAttempt{},
		&securitydomain.BlockedIP{},
	))

	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	licenses := licenseservice.New(licenseservice.Params{
		DB: gdb, Log: log, Repo: licenserepo.Provide(), Clock: clk,
	})
	ledger := securityservice.New(securityservice.Params{
		Config: cfg, DB: gdb, Log: log, Repo: securityrepo.Provide(), Clock: clk,
	})
	analytics := analyticsservice.New(analyticsservice.Params{
		DB: gdb, Log: log, Repo: analyticsrepo.Provide(), Clock: clk,
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	webhooks := webhookservice.New(webhookservice.Params{
		DB: gdb, Log: log, Repo: webhookrepo.Provide(), Clock: clk, Node: node,
	})
	billingSvc := billing.New(billing.Params{
		Config: cfg, Log: log, Clock: clk, Licenses: licenses,
	})
	limiter := ratelimit.NewTieredLimiter(cfg, ratelimit.NewMemoryStore(clk), log, nil)

	engine := NewEngine(observability.Config{
		ServiceName: "warden",
		Environment: "test",
		LogLevel:    "info",
	})
	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       cfg,
		Licenses:  licenses,
		Security:  ledger,
		Analytics: analytics,
		Webhooks:  webhooks,
		Billing:   billingSvc,
		Limiter:   limiter,
		Clock:     clk,
	})

	return &testEnv{server: srv, db: gdb, clk: clk, licenses: licenses, ledger: ledger}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func (e *testEnv) createLicense(t *testing.T) *licensedomain.License {
	t.Helper()
	license, err := e.licenses.Create(context.Background(), licensedomain.CreateRequest{
		CompanyName: "Acme Audio",
		Email:       "ops@acme.test",
		PlanType:    licensedomain.PlanBasic,
		ExpiresAt:   "2027-01-01",
	})
	require.NoError(t, err)
	return license
}

func authedRequest(method, path string, license *licensedomain.License, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+license.APIKey)
	req.Header.Set("X-License-Key", license.LicenseKey)
	req.Header.Set("X-Secret-Key", license.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "warden", body["name"])
}

func TestAPIMissingCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/license/status", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_credentials", decodeError(t, w).Error.Type)
}

func TestAPIInvalidCredentialsRecordsAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)

	req := authedRequest(http.MethodGet, "/api/license/status", license, nil)
	req.Header.Set("X-Secret-Key", "sk_secret_wrong")
	w := env.do(req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, w).Error.Type)

	var attempts int64
	require.NoError(t, env.db.Raw(`SELECT COUNT(*) FROM abuse_attempts`).Scan(&attempts).Error)
	assert.Equal(t, int64(1), attempts)
}

func TestAPILicenseStatusHappyPath(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)

	w := env.do(authedRequest(http.MethodGet, "/api/license/status", license, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "Acme Audio", body["company"])
	assert.Equal(t, float64(1), body["requests_used"])
	assert.Equal(t, float64(1000), body["requests_limit"])

	// Each admitted request consumes exactly one unit of quota.
	var used int64
	require.NoError(t, env.db.Raw(
		`SELECT requests_used FROM licenses WHERE id = ?`, license.ID,
	).Scan(&used).Error)
	assert.Equal(t, int64(1), used)
}

func TestAPIRevokedLicense(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)
	require.NoError(t, env.licenses.Revoke(context.Background(), license.ID))

	w := env.do(authedRequest(http.MethodGet, "/api/license/status", license, nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "license_inactive", decodeError(t, w).Error.Type)
}

func TestAPIQuotaExceeded(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)
	require.NoError(t, env.db.Exec(
		`UPDATE licenses SET requests_used = requests_limit WHERE id = ?`, license.ID,
	).Error)

	w := env.do(authedRequest(http.MethodGet, "/api/license/status", license, nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "quota_exceeded", decodeError(t, w).Error.Type)
}

func TestBlockedIPShortCircuits(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)
	require.NoError(t, env.ledger.Block(context.Background(), "192.0.2.1", time.Hour))

	// Valid credentials do not matter once the IP is blocked.
	req := authedRequest(http.MethodGet, "/api/license/status", license, nil)
	req.RemoteAddr = "192.0.2.1:50000"
	w := env.do(req)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ip_blocked", decodeError(t, w).Error.Type)

	// The rejection happens before auth, so no quota was spent.
	var used int64
	require.NoError(t, env.db.Raw(
		`SELECT requests_used FROM licenses WHERE id = ?`, license.ID,
	).Scan(&used).Error)
	assert.Equal(t, int64(0), used)
}

func TestAuthTierRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.AuthRate = 0.5
		cfg.RateLimit.AuthBurst = 1
	})

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/license/status", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/license/status", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeError(t, w).Error.Type)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Admin and public routes sit outside the auth tier.
	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCreateLicense(t *testing.T) {
	env := newTestEnv(t, nil)

	payload := `{"companyName":"Beta Sound","email":"dev@beta.test","planType":"pro","expiresAt":"2027-06-30"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/licenses", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Message string                `json:"message"`
		License licensedomain.License `json:"license"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "license created", body.Message)
	assert.True(t, strings.HasPrefix(body.License.APIKey, "sk_live_"))
	assert.True(t, strings.HasPrefix(body.License.SecretKey, "sk_secret_"))
	assert.True(t, strings.HasPrefix(body.License.LicenseKey, "lic_"))
	assert.Equal(t, int64(10000), body.License.RequestsLimit)
}

func TestAdminCreateLicenseRejectsBadPlan(t *testing.T) {
	env := newTestEnv(t, nil)

	payload := `{"companyName":"Beta Sound","email":"dev@beta.test","planType":"platinum","expiresAt":"2027-06-30"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/licenses", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Error.Type)
}

func TestAdminRevokeLicense(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)

	w := env.do(httptest.NewRequest(http.MethodPatch, "/admin/licenses/"+license.ID+"/revoke", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodPatch, "/admin/licenses/no-such-id/revoke", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error.Type)
}

func TestAdminUnblockIP(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.ledger.Block(context.Background(), "203.0.113.9", time.Hour))

	body := `{"ip":"203.0.113.9"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/security/unblock", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/security/unblock", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error.Type)
}

func TestAdminAbuseReportValidatesDays(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/security/abuse", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/security/abuse?days=zero", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Error.Type)
}

func TestProcessAudio(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)

	payload := `{"audio_url":"https://example.com/track.wav","format":"wav"}`
	w := env.do(authedRequest(http.MethodPost, "/api/audio/process", license, bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "processing started", body["message"])
	assert.Equal(t, "processing", body["status"])
	assert.NotEmpty(t, body["job_id"])
}

func TestProcessAudioRequiresURL(t *testing.T) {
	env := newTestEnv(t, nil)
	license := env.createLicense(t)

	w := env.do(authedRequest(http.MethodPost, "/api/audio/process", license, bytes.NewBufferString(`{}`)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Error.Type)
}

func TestBillingCheckoutUnconfigured(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewBufferString(`{"amount":2990}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	require.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "not_configured", decodeError(t, w).Error.Type)
}
