package parango

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/parangodev/parango/markdown"
)

// Output modes.
const (
	OutputServer = "server"
	OutputStatic = "static"
)

// Deployment adapters.
const (
	AdapterCloudflare = "cloudflare"
	AdapterStandalone = "standalone"
)

// DefaultConfigName is the file LoadConfig looks for in the working
// directory when no path is given.
const DefaultConfigName = "parango.yaml"

// Config holds all configuration for a parango site.
type Config struct {
	Site       string `mapstructure:"site"`        // Canonical URL
	Addr       string `mapstructure:"addr"`        // Listen address
	ContentDir string `mapstructure:"content_dir"` // Markdown collections
	PublicDir  string `mapstructure:"public_dir"`  // Static assets served under /public
	OutDir     string `mapstructure:"out_dir"`     // Static export target
	DataDir    string `mapstructure:"data_dir"`    // SQLite databases and optimized images
	Output     string `mapstructure:"output"`      // "server" or "static"
	Adapter    string `mapstructure:"adapter"`     // "cloudflare" or "standalone"
	ShowDrafts bool   `mapstructure:"show_drafts"`
	LogLevel   string `mapstructure:"log_level"`

	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	AdminPassword string `mapstructure:"admin_password"` // Empty disables /admin
	SessionSecret string `mapstructure:"session_secret"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`

	Markdown     MarkdownConfig `mapstructure:"markdown"`
	Integrations Integrations   `mapstructure:"integrations"`
}

// MarkdownConfig controls rendering of entry bodies.
type MarkdownConfig struct {
	Theme     string `mapstructure:"theme"`
	HardWraps bool   `mapstructure:"hard_wraps"`
}

// Integrations activates the optional site features.
type Integrations struct {
	Styling     StylingConfig     `mapstructure:"styling"`
	Sitemap     SitemapConfig     `mapstructure:"sitemap"`
	MDX         MDXConfig         `mapstructure:"mdx"`
	Search      SearchConfig      `mapstructure:"search"`
	ScriptProxy ScriptProxyConfig `mapstructure:"scriptproxy"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
}

// StylingConfig lists prebuilt stylesheets linked from every page.
type StylingConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Stylesheets []string `mapstructure:"stylesheets"`
}

// SitemapConfig controls sitemap generation.
type SitemapConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	EntryLimit int      `mapstructure:"entry_limit"`
	ChangeFreq string   `mapstructure:"change_freq"`
	Exclude    []string `mapstructure:"exclude"`
}

// MDXConfig lists the file extensions loaded as entries.
type MDXConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Extensions []string `mapstructure:"extensions"`
}

// SearchConfig controls the search index and API.
type SearchConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	ResultLimit int  `mapstructure:"result_limit"`
}

// ScriptProxyConfig controls third-party script proxying.
type ScriptProxyConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Forward   []string          `mapstructure:"forward"`
	Upstreams map[string]string `mapstructure:"upstreams"`
	Scripts   []string          `mapstructure:"scripts"`
}

// AnalyticsConfig controls first-party event collection.
type AnalyticsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Site:       "https://parango.dev",
		Addr:       ":4321",
		ContentDir: "content",
		PublicDir:  "public",
		OutDir:     "dist",
		DataDir:    "data",
		Output:     OutputServer,
		Adapter:    AdapterCloudflare,
		LogLevel:   "info",
		CacheTTL:   5 * time.Minute,
		Markdown: MarkdownConfig{
			Theme: markdown.CSSVariablesTheme,
		},
		Integrations: Integrations{
			Styling: StylingConfig{Enabled: true, Stylesheets: []string{"/public/styles.css"}},
			Sitemap: SitemapConfig{Enabled: true, EntryLimit: 45000},
			MDX:     MDXConfig{Enabled: true, Extensions: []string{".md", ".mdx"}},
			Search:  SearchConfig{Enabled: true, ResultLimit: 20},
			ScriptProxy: ScriptProxyConfig{
				Enabled:   true,
				Forward:   []string{"dataLayer.push"},
				Upstreams: map[string]string{},
			},
			Analytics: AnalyticsConfig{Enabled: true, RetentionDays: 365},
		},
	}
}

// setDefaults registers every key of d with v so file values merge over
// defaults field by field and env overrides are recognized.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("site", d.Site)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("content_dir", d.ContentDir)
	v.SetDefault("public_dir", d.PublicDir)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output", d.Output)
	v.SetDefault("adapter", d.Adapter)
	v.SetDefault("show_drafts", d.ShowDrafts)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("admin_password", d.AdminPassword)
	v.SetDefault("session_secret", d.SessionSecret)
	v.SetDefault("cookie_secure", d.CookieSecure)

	v.SetDefault("markdown.theme", d.Markdown.Theme)
	v.SetDefault("markdown.hard_wraps", d.Markdown.HardWraps)

	in := d.Integrations
	v.SetDefault("integrations.styling.enabled", in.Styling.Enabled)
	v.SetDefault("integrations.styling.stylesheets", in.Styling.Stylesheets)
	v.SetDefault("integrations.sitemap.enabled", in.Sitemap.Enabled)
	v.SetDefault("integrations.sitemap.entry_limit", in.Sitemap.EntryLimit)
	v.SetDefault("integrations.sitemap.change_freq", in.Sitemap.ChangeFreq)
	v.SetDefault("integrations.sitemap.exclude", in.Sitemap.Exclude)
	v.SetDefault("integrations.mdx.enabled", in.MDX.Enabled)
	v.SetDefault("integrations.mdx.extensions", in.MDX.Extensions)
	v.SetDefault("integrations.search.enabled", in.Search.Enabled)
	v.SetDefault("integrations.search.result_limit", in.Search.ResultLimit)
	v.SetDefault("integrations.scriptproxy.enabled", in.ScriptProxy.Enabled)
	v.SetDefault("integrations.scriptproxy.forward", in.ScriptProxy.Forward)
	v.SetDefault("integrations.scriptproxy.upstreams", in.ScriptProxy.Upstreams)
	v.SetDefault("integrations.scriptproxy.scripts", in.ScriptProxy.Scripts)
	v.SetDefault("integrations.analytics.enabled", in.Analytics.Enabled)
	v.SetDefault("integrations.analytics.retention_days", in.Analytics.RetentionDays)
}

// LoadConfig reads configuration from path, falling back to parango.yaml in
// the working directory when path is empty. Environment variables prefixed
// with PARANGO_ override both (integrations.search.result_limit becomes
// PARANGO_INTEGRATIONS_SEARCH_RESULT_LIMIT). A missing default file is not
// an error; a missing explicit file is.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultConfigName, ".yaml"))
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PARANGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("parango: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parango: decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every configuration problem in one joined error.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Site)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("site: %q is not an absolute http(s) URL", c.Site))
	}
	if c.Output != OutputServer && c.Output != OutputStatic {
		errs = append(errs, fmt.Errorf("output: unknown mode %q", c.Output))
	}
	if c.Adapter != AdapterCloudflare && c.Adapter != AdapterStandalone {
		errs = append(errs, fmt.Errorf("adapter: unknown adapter %q", c.Adapter))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl: must be positive"))
	}
	if c.AdminPassword != "" && c.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("session_secret: required when admin_password is set"))
	}

	in := c.Integrations
	if in.MDX.Enabled {
		switch {
		case strings.TrimSpace(c.Markdown.Theme) == "":
			errs = append(errs, fmt.Errorf("markdown.theme: required when mdx is enabled"))
		case !markdown.KnownTheme(c.Markdown.Theme):
			errs = append(errs, fmt.Errorf("markdown.theme: unknown theme %q", c.Markdown.Theme))
		}
		for _, ext := range in.MDX.Extensions {
			if !strings.HasPrefix(ext, ".") {
				errs = append(errs, fmt.Errorf("integrations.mdx.extensions: %q must start with a dot", ext))
			}
		}
	}
	if in.Sitemap.Enabled && (in.Sitemap.EntryLimit <= 0 || in.Sitemap.EntryLimit > 50000) {
		errs = append(errs, fmt.Errorf("integrations.sitemap.entry_limit: %d not in 1..50000", in.Sitemap.EntryLimit))
	}
	if in.Search.Enabled && in.Search.ResultLimit <= 0 {
		errs = append(errs, fmt.Errorf("integrations.search.result_limit: must be positive"))
	}
	if in.ScriptProxy.Enabled {
		for name, raw := range in.ScriptProxy.Upstreams {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Errorf("integrations.scriptproxy.upstreams.%s: %q is not an absolute http(s) URL", name, raw))
			}
		}
	}
	if in.Analytics.Enabled && in.Analytics.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("integrations.analytics.retention_days: must be positive"))
	}
	return errors.Join(errs...)
}

// Names returns the enabled integrations in declaration order.
func (in Integrations) Names() []string {
	var names []string
	for _, it := range []struct {
		name    string
		enabled bool
	}{
		{"styling", in.Styling.Enabled},
		{"sitemap", in.Sitemap.Enabled},
		{"mdx", in.MDX.Enabled},
		{"search", in.Search.Enabled},
		{"scriptproxy", in.ScriptProxy.Enabled},
		{"analytics", in.Analytics.Enabled},
	} {
		if it.enabled {
			names = append(names, it.name)
		}
	}
	return names
}

// SiteHost returns the host of the canonical URL.
func (c Config) SiteHost() string {
	u, err := url.Parse(c.Site)
	if err != nil {
		return ""
	}
	return u.Host
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are mounted.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogOutput redirects the application logger.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) {
		a.logOutput = w
	}
}
