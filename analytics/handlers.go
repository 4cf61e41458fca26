package analytics

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
)

// CollectPath is where the forwarder posts relayed calls.
const CollectPath = "/api/analytics/collect"

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	siteHost       string
	collectLimiter *rateLimiter
	now            func() time.Time
}

// NewHandler creates a new analytics handler. siteHost is used to drop
// internal referrers. The collect endpoint is rate-limited to 60 requests
// per IP per minute.
func NewHandler(store *Store, siteHost string) *Handler {
	return &Handler{
		store:          store,
		siteHost:       siteHost,
		collectLimiter: newRateLimiter(60, time.Minute),
		now:            time.Now,
	}
}

// CollectRequest is the expected request body for the collect endpoint.
type CollectRequest struct {
	Event      string `json:"event"`
	Path       string `json:"path"`
	Referrer   string `json:"referrer"`
	ScreenSize string `json:"screen_size"`
}

// Input validation limits for the collect endpoint.
const (
	maxEventLen      = 64
	maxPathLen       = 2048
	maxReferrerLen   = 2048
	maxScreenSizeLen = 32
)

var reEvent = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

func validateCollectRequest(req *CollectRequest) error {
	if len(req.Event) > maxEventLen {
		return fmt.Errorf("event exceeds maximum length of %d", maxEventLen)
	}
	if req.Event != "" && !reEvent.MatchString(req.Event) {
		return fmt.Errorf("invalid event name %q", req.Event)
	}
	if req.Path == "" || req.Path[0] != '/' {
		return fmt.Errorf("path must be site-relative")
	}
	if len(req.Path) > maxPathLen {
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	}
	if len(req.Referrer) > maxReferrerLen {
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	}
	if len(req.ScreenSize) > maxScreenSizeLen {
		return fmt.Errorf("screen_size exceeds maximum length of %d", maxScreenSizeLen)
	}
	return nil
}

// Collect records a page view or relayed event.
func (h *Handler) Collect(c echo.Context) error {
	ip := c.RealIP()
	if !h.collectLimiter.allow(ip) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	// sendBeacon posts text/plain; bind JSON regardless of the content type.
	c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := validateCollectRequest(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	now := h.now().UTC()
	userAgent := c.Request().UserAgent()

	if IsBot(userAgent) {
		if len(userAgent) > 512 {
			userAgent = userAgent[:512]
		}
		bv := &BotVisit{
			BotName:   ExtractBotName(userAgent),
			IPHash:    HashIP(ip),
			UserAgent: userAgent,
			Path:      req.Path,
			Timestamp: now,
		}
		if err := h.store.SaveBotVisit(ctx, bv); err != nil {
			c.Logger().Errorf("Failed to save bot visit: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, os, device := ParseUserAgent(userAgent)
	v := &Visit{
		VisitorID:  GenerateVisitorID(ip, userAgent, now),
		IPHash:     HashIP(ip),
		Event:      req.Event,
		Browser:    browser,
		OS:         os,
		Device:     device,
		Path:       req.Path,
		Referrer:   CleanReferrer(req.Referrer, h.siteHost),
		ScreenSize: req.ScreenSize,
		Timestamp:  now,
	}
	if err := h.store.SaveVisit(ctx, v); err != nil {
		c.Logger().Errorf("Failed to save visit: %v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	PeriodDays int    `json:"period_days"`
	Monthly    bool   `json:"monthly"`
}

// GetStats returns analytics statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	days, monthly := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(h.now().UTC(), days)

	stats, err := h.store.GetStats(c.Request().Context(), from, to, monthly)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Stats: stats, PeriodDays: days, Monthly: monthly})
}

// SummaryDays is the window the admin dashboard reports on.
const SummaryDays = 30

// Summary returns the last SummaryDays days of stats for the admin dashboard.
func (h *Handler) Summary(ctx context.Context) (*Stats, error) {
	from, to := calcTimeRange(h.now().UTC(), SummaryDays)
	return h.store.GetStats(ctx, from, to, false)
}

// parsePeriod maps the period query parameter to a day count.
func parsePeriod(period string) (days int, monthly bool) {
	switch period {
	case "today":
		return 1, false
	case "month":
		return 30, false
	case "year":
		return 365, true
	default:
		return 7, false
	}
}

// calcTimeRange returns whole UTC days covering the last days days.
func calcTimeRange(now time.Time, days int) (time.Time, time.Time) {
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	return from, to
}

// RegisterRoutes registers analytics routes. Stats are behind authMiddleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMiddleware echo.MiddlewareFunc) {
	e.POST(CollectPath, h.Collect)

	admin := e.Group("/admin/analytics")
	admin.Use(authMiddleware)
	admin.GET("/api/stats", h.GetStats)
}
