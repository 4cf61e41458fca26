// Package scriptproxy serves third-party scripts from the site's own origin
// and relays calls to forwarded globals (such as dataLayer.push) to the
// first-party event collector.
package scriptproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// PathPrefix is where proxied upstreams are mounted.
const PathPrefix = "/~proxy"

// ForwarderPath is the URL of the script that installs forwarding stubs.
const ForwarderPath = "/public/forward.js"

var (
	reForward  = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)
	reUpstream = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// Config describes the upstreams and forwarded globals.
type Config struct {
	// Forward lists global functions whose calls are relayed, e.g. "dataLayer.push".
	Forward []string
	// Upstreams maps a short name to the origin it proxies.
	Upstreams map[string]string
	// Scripts are third-party script URLs to load; each must belong to an upstream.
	Scripts []string
	// CollectURL receives relayed calls. Empty disables relaying.
	CollectURL string
	// Direct loads scripts from their own origin and mounts no proxy
	// routes. Static hosting has nothing to proxy with.
	Direct bool
}

// Proxy proxies configured upstreams and renders the loader snippet.
type Proxy struct {
	cfg       Config
	names     []string
	upstreams map[string]*url.URL
	scripts   []string
}

// New validates cfg and builds a Proxy.
func New(cfg Config) (*Proxy, error) {
	var errs []error
	for _, f := range cfg.Forward {
		if !reForward.MatchString(f) {
			errs = append(errs, fmt.Errorf("scriptproxy: invalid forward name %q", f))
		}
	}
	p := &Proxy{cfg: cfg, upstreams: make(map[string]*url.URL, len(cfg.Upstreams))}
	for name, raw := range cfg.Upstreams {
		if !reUpstream.MatchString(name) {
			errs = append(errs, fmt.Errorf("scriptproxy: invalid upstream name %q", name))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Errorf("scriptproxy: upstream %s: %q is not an absolute URL", name, raw))
			continue
		}
		p.upstreams[name] = &url.URL{Scheme: u.Scheme, Host: u.Host}
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)
	for _, s := range cfg.Scripts {
		local, ok := p.Rewrite(s)
		if !ok {
			errs = append(errs, fmt.Errorf("scriptproxy: script %q has no matching upstream", s))
			continue
		}
		if cfg.Direct {
			local = s
		}
		p.scripts = append(p.scripts, local)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// Rewrite maps a third-party URL to its same-origin proxy path. It reports
// false when no upstream serves the URL's origin.
func (p *Proxy) Rewrite(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	for _, name := range p.names {
		up := p.upstreams[name]
		if strings.EqualFold(up.Host, u.Host) && (u.Scheme == "" || u.Scheme == up.Scheme) {
			local := PathPrefix + "/" + name + u.EscapedPath()
			if u.RawQuery != "" {
				local += "?" + u.RawQuery
			}
			return local, true
		}
	}
	return "", false
}

// RegisterRoutes mounts one reverse proxy per upstream under PathPrefix.
func (p *Proxy) RegisterRoutes(e *echo.Echo) {
	if p.cfg.Direct {
		return
	}
	for _, name := range p.names {
		target := p.upstreams[name]
		prefix := PathPrefix + "/" + name
		g := e.Group(prefix)
		g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				req := c.Request()
				if req.Method != http.MethodGet && req.Method != http.MethodHead {
					return echo.NewHTTPError(http.StatusMethodNotAllowed)
				}
				// Never leak first-party cookies to the upstream.
				req.Header.Del("Cookie")
				req.Header.Del("Authorization")
				req.Host = target.Host
				return next(c)
			}
		})
		g.Use(middleware.ProxyWithConfig(middleware.ProxyConfig{
			Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
				{Name: name, URL: target},
			}),
			Rewrite: map[string]string{
				prefix + "/*": "/$1",
			},
			ModifyResponse: func(res *http.Response) error {
				res.Header.Del("Set-Cookie")
				if res.StatusCode == http.StatusOK {
					res.Header.Set("Cache-Control", "public, max-age=3600")
				}
				return nil
			},
		}))
	}
}

// Snippet renders the forwarder followed by the proxied scripts. The
// forwarder is blocking so the stubs exist before any deferred script runs.
func (p *Proxy) Snippet() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		if len(p.cfg.Forward) > 0 {
			b.WriteString(`<script src="`)
			b.WriteString(templ.EscapeString(ForwarderPath))
			b.WriteString(`" data-forward="`)
			b.WriteString(templ.EscapeString(strings.Join(p.cfg.Forward, " ")))
			b.WriteString(`"`)
			if p.cfg.CollectURL != "" {
				b.WriteString(` data-collect="`)
				b.WriteString(templ.EscapeString(p.cfg.CollectURL))
				b.WriteString(`"`)
			}
			b.WriteString("></script>")
		}
		for _, s := range p.scripts {
			b.WriteString(`<script defer src="`)
			b.WriteString(templ.EscapeString(s))
			b.WriteString(`"></script>`)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}
