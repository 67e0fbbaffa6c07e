package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/cache"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/tywin1104/mc-dashboard/server"
)

const secret = "jwt_secret"

type fakeDashboard struct {
	report     *aggregate.Report
	refreshErr error
	refreshed  int
	days       int
	reference  time.Time
}

func (f *fakeDashboard) Report() (aggregate.Report, error) {
	if f.report == nil {
		return aggregate.Report{}, dashboard.ErrNoReport
	}
	return *f.report, nil
}

func (f *fakeDashboard) Daily(days int, reference time.Time) ([]aggregate.DayCount, error) {
	f.days = days
	f.reference = reference
	return aggregate.DailyCounts(nil, days, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
}

func (f *fakeDashboard) Summary() aggregate.Summary {
	return aggregate.Summary{Total: 3, Pending: 1, Approved: 1, Denied: 1}
}

func (f *fakeDashboard) Refresh(ctx context.Context, trigger string) error {
	f.refreshed++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.report = &aggregate.Report{Stats: f.Summary()}
	return nil
}

func (f *fakeDashboard) Settings() dashboard.Settings {
	return dashboard.Settings{WindowDays: 5}
}

type fakeCache struct {
	report *aggregate.Report
}

func (f *fakeCache) GetReport() (aggregate.Report, error) {
	if f.report == nil {
		return aggregate.Report{}, cache.ErrNotCached
	}
	return *f.report, nil
}

func newTestServer(d server.Dashboard, c server.ReportCache) http.Handler {
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	return server.NewService(d, c, events, secret, logrus.NewEntry(logrus.New())).Handler()
}

func signedToken(t *testing.T, key string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		ExpiresAt: time.Now().Add(20 * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(&fakeDashboard{}, nil)
	for _, target := range []string{"/api/v1/dashboard/report", "/api/v1/dashboard/daily", "/api/v1/dashboard/summary"} {
		rr := do(t, h, "GET", target, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)

		rr = do(t, h, "GET", target, signedToken(t, "not_the_secret"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
	rr := do(t, h, "POST", "/api/v1/dashboard/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPublicRoutes(t *testing.T) {
	h := newTestServer(&fakeDashboard{}, nil)

	rr := do(t, h, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok", "ready": false}`, rr.Body.String())

	rr = do(t, h, "GET", "/api/v1/dashboard/events", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	rr = do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getReport(t *testing.T, h http.Handler) aggregate.Report {
	rr := do(t, h, "GET", "/api/v1/dashboard/report", signedToken(t, secret))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Report aggregate.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Report
}

func TestGetReportServesNewest(t *testing.T) {
	earlier := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	// caching the latest report failed, the cache still holds an older one
	d := &fakeDashboard{report: &aggregate.Report{GeneratedAt: later, Stats: aggregate.Summary{Total: 3}}}
	c := &fakeCache{report: &aggregate.Report{GeneratedAt: earlier, Stats: aggregate.Summary{Total: 7}}}
	h := newTestServer(d, c)
	assert.Equal(t, 3, getReport(t, h).Stats.Total)

	// another instance published a newer one
	c.report = &aggregate.Report{GeneratedAt: later.Add(time.Minute), Stats: aggregate.Summary{Total: 8}}
	assert.Equal(t, 8, getReport(t, h).Stats.Total)
}

func TestGetReportFromCacheBeforeFirstReport(t *testing.T) {
	cached := &aggregate.Report{Stats: aggregate.Summary{Total: 7}}
	h := newTestServer(&fakeDashboard{}, &fakeCache{report: cached})
	assert.Equal(t, 7, getReport(t, h).Stats.Total)
}

func TestGetReportFallsBackToMemory(t *testing.T) {
	d := &fakeDashboard{}
	h := newTestServer(d, &fakeCache{})
	token := signedToken(t, secret)

	rr := do(t, h, "GET", "/api/v1/dashboard/report", token)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	d.report = &aggregate.Report{Stats: aggregate.Summary{Total: 3}}
	rr = do(t, h, "GET", "/api/v1/dashboard/report", token)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Report aggregate.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Report.Stats.Total)
}

func TestGetDaily(t *testing.T) {
	d := &fakeDashboard{}
	h := newTestServer(d, nil)
	token := signedToken(t, secret)

	rr := do(t, h, "GET", "/api/v1/dashboard/daily", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, d.days)
	assert.True(t, d.reference.IsZero())
	var body struct {
		Daily []aggregate.DayCount `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Daily, 5)
	assert.Equal(t, "2024-01-06", body.Daily[0].Date)

	rr = do(t, h, "GET", "/api/v1/dashboard/daily?days=3&date=2024-02-29", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, d.days)
	assert.Equal(t, "2024-02-29", d.reference.Format(aggregate.DateLayout))
}

func TestGetDailyRejectsInvalidQuery(t *testing.T) {
	h := newTestServer(&fakeDashboard{}, nil)
	token := signedToken(t, secret)
	for _, query := range []string{"days=0", "days=-2", "days=abc", "days=100000", "date=2024-13-01", "date=yesterday"} {
		rr := do(t, h, "GET", "/api/v1/dashboard/daily?"+query, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestGetSummary(t *testing.T) {
	h := newTestServer(&fakeDashboard{}, nil)
	rr := do(t, h, "GET", "/api/v1/dashboard/summary", signedToken(t, secret))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Stats aggregate.Summary `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Stats.Pending)
	assert.Equal(t, 3, body.Stats.Total)
}

func TestRefresh(t *testing.T) {
	d := &fakeDashboard{}
	h := newTestServer(d, nil)
	token := signedToken(t, secret)

	rr := do(t, h, "POST", "/api/v1/dashboard/refresh", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, d.refreshed)
	assert.True(t, strings.Contains(rr.Body.String(), `"message":"success"`))

	d.refreshErr = errors.New("backend unavailable")
	rr = do(t, h, "POST", "/api/v1/dashboard/refresh", token)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = do(t, h, "GET", "/api/v1/dashboard/refresh", token)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
