package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := InitSalt(s); err != nil {
		t.Fatalf("InitSalt failed: %v", err)
	}
	return s
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua      string
		browser string
		os      string
		device  string
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", "Chrome", "Windows", "Desktop"},
		{"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Edge", "Windows", "Desktop"},
		{"Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", "Chrome", "Android", "Mobile"},
		{"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1", "Safari", "iOS", "Tablet"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "Linux", "Desktop"},
	}
	for _, tt := range tests {
		b, o, d := ParseUserAgent(tt.ua)
		if b != tt.browser || o != tt.os || d != tt.device {
			t.Errorf("ParseUserAgent(%q) = %s/%s/%s, want %s/%s/%s", tt.ua, b, o, d, tt.browser, tt.os, tt.device)
		}
	}
}

func TestIsBot(t *testing.T) {
	if !IsBot("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)") {
		t.Error("Googlebot should be a bot")
	}
	if got := ExtractBotName("Mozilla/5.0 (compatible; Googlebot/2.1)"); got != "Googlebot" {
		t.Errorf("ExtractBotName() = %q", got)
	}
	if IsBot("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0") {
		t.Error("Firefox should not be a bot")
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"", "Direct"},
		{"https://www.google.com/search?q=go", "Google"},
		{"https://github.com/parangodev", "GitHub"},
		{"https://www.example.org/post", "example.org"},
		{"https://parango.dev/blog/", ""},
		{"not a url", "Other"},
	}
	for _, tt := range tests {
		if got := CleanReferrer(tt.ref, "parango.dev"); got != tt.want {
			t.Errorf("CleanReferrer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.allow("b") {
		t.Error("other keys should not be limited")
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("window should have expired")
	}
}

func TestSettings(t *testing.T) {
	s := setupTestStore(t)
	if v, err := s.GetSetting("missing"); err != nil || v != "" {
		t.Errorf("GetSetting(missing) = %q, %v", v, err)
	}
	if err := s.SetSetting("k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting("k"); v != "2" {
		t.Errorf("GetSetting(k) = %q, want 2", v)
	}
}

func TestGetStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	visits := []Visit{
		{VisitorID: "v1", Path: "/blog/hola/", Browser: "Firefox", Device: "Desktop", Referrer: "Google", Timestamp: day},
		{VisitorID: "v1", Path: "/blog/hola/", Event: "dataLayer.push", Browser: "Firefox", Device: "Desktop", Timestamp: day},
		{VisitorID: "v2", Path: "/blog/hola/", Browser: "Chrome", Device: "Mobile", Timestamp: day.Add(time.Hour)},
		{VisitorID: "v2", Path: "/", Browser: "Chrome", Device: "Mobile", Timestamp: day.AddDate(0, 0, 1)},
		{VisitorID: "old", Path: "/", Browser: "Chrome", Device: "Mobile", Timestamp: day.AddDate(0, -2, 0)},
	}
	for i := range visits {
		if err := s.SaveVisit(ctx, &visits[i]); err != nil {
			t.Fatalf("SaveVisit failed: %v", err)
		}
	}
	if err := s.SaveBotVisit(ctx, &BotVisit{BotName: "Googlebot", UserAgent: "Googlebot", Path: "/", Timestamp: day}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats(ctx, day.Truncate(24*time.Hour), day.AddDate(0, 0, 2).Truncate(24*time.Hour), false)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", stats.TotalViews)
	}
	if stats.UniqueVisitors != 2 {
		t.Errorf("UniqueVisitors = %d, want 2", stats.UniqueVisitors)
	}
	if stats.BotVisits != 1 {
		t.Errorf("BotVisits = %d, want 1", stats.BotVisits)
	}
	if len(stats.TopPages) != 2 || stats.TopPages[0].Path != "/blog/hola/" || stats.TopPages[0].Views != 2 {
		t.Errorf("TopPages = %+v", stats.TopPages)
	}
	if len(stats.TopEvents) != 2 || stats.TopEvents[0].Name != DefaultEvent || stats.TopEvents[0].Count != 3 {
		t.Errorf("TopEvents = %+v", stats.TopEvents)
	}
	if len(stats.ReferrerStats) != 1 || stats.ReferrerStats[0].Name != "Google" {
		t.Errorf("ReferrerStats = %+v", stats.ReferrerStats)
	}
	if len(stats.DailyViews) != 2 || stats.DailyViews[0].Date != "2026-03-10" || stats.DailyViews[0].Views != 2 {
		t.Errorf("DailyViews = %+v", stats.DailyViews)
	}
}

func TestCleanupOldVisits(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	old := &Visit{VisitorID: "v", Path: "/", Timestamp: time.Now().AddDate(0, 0, -400)}
	recent := &Visit{VisitorID: "v", Path: "/", Timestamp: time.Now().Add(-time.Hour)}
	for _, v := range []*Visit{old, recent} {
		if err := s.SaveVisit(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CleanupOldVisits(ctx, 365); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("visits after cleanup = %d, want 1", n)
	}
}

func postCollect(t *testing.T, h *Handler, body, ua string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e, func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	req := httptest.NewRequest(http.MethodPost, CollectPath, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "text/plain;charset=UTF-8")
	req.Header.Set("User-Agent", ua)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

func TestSummaryCoversThirtyDays(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{now.AddDate(0, 0, -20), now.AddDate(0, 0, -29), now.AddDate(0, 0, -40)} {
		if err := s.SaveVisit(ctx, &Visit{VisitorID: "v", Path: "/", Timestamp: ts}); err != nil {
			t.Fatalf("SaveVisit failed: %v", err)
		}
	}

	h := NewHandler(s, "parango.dev")
	h.now = func() time.Time { return now }
	stats, err := h.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if stats.TotalViews != 2 {
		t.Errorf("TotalViews = %d, want 2", stats.TotalViews)
	}
}

func TestCollect(t *testing.T) {
	s := setupTestStore(t)
	h := NewHandler(s, "parango.dev")

	rec := postCollect(t, h, `{"event":"dataLayer.push","path":"/blog/hola/","referrer":"https://parango.dev/","screen_size":"1920x1080"}`, firefoxUA)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}

	var event, browser, referrer string
	err := s.db.QueryRow(`SELECT event, browser, referrer FROM visits`).Scan(&event, &browser, &referrer)
	if err != nil {
		t.Fatalf("visit not stored: %v", err)
	}
	if event != "dataLayer.push" || browser != "Firefox" || referrer != "" {
		t.Errorf("stored visit = %s/%s/%q", event, browser, referrer)
	}
}

func TestCollectRejectsInvalid(t *testing.T) {
	h := NewHandler(setupTestStore(t), "parango.dev")
	for _, body := range []string{
		`{"path":"https://evil.example.com/"}`,
		`{"path":"/","event":"<script>"}`,
		`not json`,
	} {
		if rec := postCollect(t, h, body, firefoxUA); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCollectBot(t *testing.T) {
	s := setupTestStore(t)
	h := NewHandler(s, "parango.dev")
	rec := postCollect(t, h, `{"path":"/"}`, "Mozilla/5.0 (compatible; bingbot/2.0)")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	var visits, bots int
	s.db.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&visits)
	s.db.QueryRow(`SELECT COUNT(*) FROM bot_visits`).Scan(&bots)
	if visits != 0 || bots != 1 {
		t.Errorf("visits = %d, bots = %d", visits, bots)
	}
}

func TestCalcTimeRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	from, to := calcTimeRange(now, 7)
	if !to.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %v", to)
	}
	if !from.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
}
