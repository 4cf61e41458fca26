package parango

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/parangodev/parango/scriptproxy"
)

const sessionName = "admin_session"

// Security headers, shared by the middleware and the exported _headers file.
const (
	headerXSSProtection  = "1; mode=block"
	headerNosniff        = "nosniff"
	headerFrameOptions   = "DENY"
	headerReferrerPolicy = "strict-origin-when-cross-origin"
)

// contentSecurityPolicy allows the script proxy upstreams as script and
// connect sources. Static sites load those scripts directly, and proxied
// scripts still report to their own origin.
func (a *App) contentSecurityPolicy() string {
	sources := "'self'"
	if sp := a.Config.Integrations.ScriptProxy; sp.Enabled {
		origins := make([]string, 0, len(sp.Upstreams))
		for _, raw := range sp.Upstreams {
			if u, err := url.Parse(raw); err == nil && u.Host != "" {
				origins = append(origins, u.Scheme+"://"+u.Host)
			}
		}
		sort.Strings(origins)
		for _, o := range origins {
			sources += " " + o
		}
	}
	return "default-src 'self'; script-src " + sources + " 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; font-src 'self'; connect-src " + sources + "; frame-ancestors 'none'"
}

// cacheRules maps request paths to Cache-Control values. A trailing "*"
// matches by prefix; the first matching rule wins.
var cacheRules = []struct {
	path  string
	value string
}{
	{ImagePrefix + "/*", "public, max-age=31536000, immutable"},
	{"/public/*", "public, max-age=86400"},
	{"/admin/*", "no-store"},
	{"/api/*", "no-store"},
	{"/rss.xml", "public, max-age=86400"},
	{"/robots.txt", "public, max-age=86400"},
	{"/sitemap-*", "public, max-age=86400"},
}

const defaultCacheControl = "public, max-age=3600"

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if prefix, ok := strings.CutSuffix(r.path, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return r.value
			}
		} else if path == r.path {
			return r.value
		}
	}
	return defaultCacheControl
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	if !strings.HasPrefix(a.Config.SiteHost(), "www.") {
		e.Pre(middleware.NonWWWRedirect())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, ImagePrefix+"/") || strings.HasPrefix(path, scriptproxy.PathPrefix+"/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         headerXSSProtection,
		ContentTypeNosniff:    headerNosniff,
		XFrameOptions:         headerFrameOptions,
		ReferrerPolicy:        headerReferrerPolicy,
		ContentSecurityPolicy: a.contentSecurityPolicy(),
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	if a.Config.AdminPassword != "" {
		e.Use(session.Middleware(a.newSessionStore()))

		// Only the admin area has forms; public pages stay cookie-free.
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
			TokenLookup:    "header:X-CSRF-Token,form:_csrf",
			CookieName:     "_csrf",
			CookiePath:     "/admin/",
			CookieSameSite: http.SameSiteLaxMode,
			CookieSecure:   a.Config.CookieSecure,
			Skipper: func(c echo.Context) bool {
				return !strings.HasPrefix(c.Request().URL.Path, "/admin/")
			},
			ErrorHandler: func(err error, c echo.Context) error {
				return c.String(http.StatusForbidden, "Forbidden")
			},
		}))
	}

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/public") ||
				strings.HasPrefix(path, ImagePrefix) ||
				strings.HasPrefix(path, scriptproxy.PathPrefix) ||
				strings.HasPrefix(path, "/api/") ||
				strings.HasPrefix(path, "/admin/analytics/api/") ||
				strings.HasSuffix(path, ".xml") ||
				strings.HasSuffix(path, ".txt") ||
				strings.HasSuffix(path, ".svg") ||
				strings.HasSuffix(path, ".json")
		},
	}))

	e.Use(cacheControlMiddleware)
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControlFor(c.Request().URL.Path))
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/admin/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values["authenticated"].(bool)
	return ok && auth
}

func setAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["authenticated"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
