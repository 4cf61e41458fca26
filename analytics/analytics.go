// Package analytics records page views and events relayed from forwarded
// third-party calls, without storing raw IP addresses.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultEvent names visits that did not carry an explicit event.
const DefaultEvent = "page_view"

// salt holds the per-installation random salt for IP hashing.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates a persistent salt for IP hashing.
// Must be called once at startup before any requests are served.
func InitSalt(store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting("hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting("hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// Visit is a single page view or relayed event.
type Visit struct {
	ID         int64     `json:"-"`
	VisitorID  string    `json:"visitor_id"`
	IPHash     string    `json:"-"`
	Event      string    `json:"event"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	Device     string    `json:"device"`
	Path       string    `json:"path"`
	Referrer   string    `json:"referrer"`
	ScreenSize string    `json:"screen_size"`
	Timestamp  time.Time `json:"timestamp"`
}

// BotVisit is a request from a crawler.
type BotVisit struct {
	ID        int64     `json:"-"`
	BotName   string    `json:"bot_name"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats holds aggregated analytics for a period.
type Stats struct {
	Period         string          `json:"period"`
	UniqueVisitors int             `json:"unique_visitors"`
	TotalViews     int             `json:"total_views"`
	BotVisits      int             `json:"bot_visits"`
	TopPages       []PageStat      `json:"top_pages"`
	TopEvents      []DimensionStat `json:"top_events"`
	BrowserStats   []DimensionStat `json:"browsers"`
	DeviceStats    []DimensionStat `json:"devices"`
	ReferrerStats  []DimensionStat `json:"referrers"`
	DailyViews     []DailyView     `json:"daily_views"`
}

// PageStat is the view count of one path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// DimensionStat is a breakdown bucket (browser, event, referrer...).
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyView is the view count of one day (or month).
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(salt.value + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GenerateVisitorID creates a salted visitor ID from IP and User-Agent.
// The current day is mixed in so visitors cannot be followed across days.
func GenerateVisitorID(ip, userAgent string, day time.Time) string {
	h := sha256.New()
	h.Write([]byte(salt.value + ip + "|" + userAgent + "|" + day.UTC().Format("2006-01-02")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParseUserAgent extracts browser, OS, and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// More specific patterns first: Edge and Opera UAs also contain "chrome".
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android before Linux since Android UAs contain "linux".
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	// iPad UAs contain "mobile"; check tablet first.
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}

	return
}

var botPatterns = []struct {
	pattern string
	name    string
}{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"gptbot", "GPTBot"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

// IsBot reports whether the User-Agent is likely a bot or crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	if strings.Contains(ua, "bot") || strings.Contains(ua, "crawl") || strings.Contains(ua, "scrape") {
		return true
	}
	for _, b := range botPatterns {
		if strings.Contains(ua, b.pattern) {
			return true
		}
	}
	return false
}

// ExtractBotName returns a display name for a bot User-Agent. Patterns are
// checked in order so specific bots win over generic matches.
func ExtractBotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range botPatterns {
		if strings.Contains(ua, b.pattern) {
			return b.name
		}
	}
	if strings.Contains(ua, "bot") {
		return "Other Bot"
	}
	return "Unknown"
}

var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// CleanReferrer reduces a referrer URL to a source name. Referrers from
// siteHost count as internal navigation and return "".
func CleanReferrer(ref, siteHost string) string {
	if ref == "" {
		return "Direct"
	}
	refLower := strings.ToLower(ref)
	switch {
	case strings.Contains(refLower, "google."):
		return "Google"
	case strings.Contains(refLower, "bing."):
		return "Bing"
	case strings.Contains(refLower, "duckduckgo."):
		return "DuckDuckGo"
	case strings.Contains(refLower, "github."):
		return "GitHub"
	case strings.Contains(refLower, "linkedin."):
		return "LinkedIn"
	case strings.Contains(refLower, "x.com") || strings.Contains(refLower, "t.co/"):
		return "X"
	}
	matches := referrerDomainRegex.FindStringSubmatch(refLower)
	if len(matches) > 1 {
		if siteHost != "" && matches[1] == strings.TrimPrefix(strings.ToLower(siteHost), "www.") {
			return ""
		}
		return matches[1]
	}
	return "Other"
}
