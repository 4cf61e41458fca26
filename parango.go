// Package parango serves and exports a personal blog: markdown collections
// of posts and projects, rendered with user-provided templ views, with
// search, sitemaps, RSS, a third-party script proxy and first-party
// analytics.
//
// Users provide their templates via the ViewFuncs struct; parango handles
// the content pipeline, handlers, middleware and storage.
package parango

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/parangodev/parango/analytics"
	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/markdown"
	"github.com/parangodev/parango/scriptproxy"
	"github.com/parangodev/parango/search"
)

// App is the central parango application. It wires together the store,
// cache, handlers, middleware, and user-provided templates.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *EntryCache
	Views  ViewFuncs

	renderer       *markdown.Renderer
	search         *search.Handler
	proxy          *scriptproxy.Proxy
	analytics      *analytics.Handler
	analyticsStore *analytics.Store
	stopCleanup    func()
	loginLimiter   *LoginLimiter
	customRoutes   []func(*App)
	logOutput      io.Writer

	initOnce sync.Once
	initErr  error
	reloadMu sync.Mutex
}

// ContentError reports entries that failed to load. The remaining entries
// were still indexed.
type ContentError struct {
	Err error
}

func (e *ContentError) Error() string { return "parango: content: " + e.Err.Error() }

func (e *ContentError) Unwrap() error { return e.Err }

// New creates a new parango App with the given configuration and view functions.
func New(cfg Config, views ViewFuncs, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logOutput != nil {
		a.Echo.Logger.SetOutput(a.logOutput)
	}
	a.Echo.Logger.SetLevel(parseLogLevel(cfg.LogLevel))
	return a
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// Init validates the configuration, opens the databases and mounts
// middleware and routes. It is called by Start and Export and is safe to
// call more than once.
func (a *App) Init() error {
	a.initOnce.Do(func() { a.initErr = a.init() })
	return a.initErr
}

func (a *App) init() error {
	cfg := a.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("parango: invalid config: %w", err)
	}

	store, err := NewStore(filepath.Join(cfg.DataDir, "site.db"))
	if err != nil {
		return fmt.Errorf("parango: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewEntryCache(a.Store, cfg.CacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.renderer = markdown.New(markdown.Options{
		Theme:     cfg.Markdown.Theme,
		HardWraps: cfg.Markdown.HardWraps,
	})

	in := cfg.Integrations
	if in.Search.Enabled {
		a.search = search.NewHandler(a.Store, in.Search.ResultLimit)
	}

	// Events can only be collected when a server is running.
	collect := in.Analytics.Enabled && cfg.Output == OutputServer
	if collect {
		as, err := analytics.NewStore(filepath.Join(cfg.DataDir, "analytics.db"))
		if err != nil {
			return fmt.Errorf("parango: init analytics: %w", err)
		}
		a.analyticsStore = as
		if err := analytics.InitSalt(as); err != nil {
			return fmt.Errorf("parango: init analytics salt: %w", err)
		}
		a.analytics = analytics.NewHandler(as, cfg.SiteHost())
	}

	if in.ScriptProxy.Enabled {
		pc := scriptproxy.Config{
			Forward:   in.ScriptProxy.Forward,
			Upstreams: in.ScriptProxy.Upstreams,
			Scripts:   in.ScriptProxy.Scripts,
			Direct:    cfg.Output == OutputStatic,
		}
		if collect {
			pc.CollectURL = analytics.CollectPath
		}
		proxy, err := scriptproxy.New(pc)
		if err != nil {
			return fmt.Errorf("parango: init script proxy: %w", err)
		}
		a.proxy = proxy
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app, indexes the content and serves until ctx is
// cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Reload(ctx); err != nil {
		var ce *ContentError
		if !errors.As(err, &ce) {
			return err
		}
		a.Echo.Logger.Warnf("%v", err)
	}

	if a.analyticsStore != nil {
		retention := a.Config.Integrations.Analytics.RetentionDays
		a.stopCleanup = a.analyticsStore.StartCleanupScheduler(retention, 24*time.Hour, func(err error) {
			a.Echo.Logger.Errorf("analytics cleanup: %v", err)
		})
	}

	a.Echo.Logger.Infof("parango: integrations: %s", strings.Join(a.Config.Integrations.Names(), ", "))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Echo.Shutdown(shutdownCtx); err != nil {
			a.Echo.Logger.Errorf("shutdown: %v", err)
		}
	}()

	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Reload loads the content tree, optimizes referenced images and replaces
// the indexed entries. Files that fail to load are reported as a
// *ContentError after the rest has been indexed.
func (a *App) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	start := time.Now()
	entries, loadErr := a.loader().Load()
	entries = content.Published(entries, a.Config.ShowDrafts)

	optimized := a.optimizeImages(entries)

	if err := a.Store.ReplaceEntries(ctx, entries); err != nil {
		return fmt.Errorf("parango: replace entries: %w", err)
	}
	a.Cache.Invalidate()
	a.Echo.Logger.Infof("parango: indexed %d entries, %d images optimized (%s)",
		len(entries), optimized, time.Since(start).Round(time.Millisecond))

	if loadErr != nil {
		return &ContentError{Err: loadErr}
	}
	return nil
}

func (a *App) loader() *content.Loader {
	exts := []string{".md"}
	if mdx := a.Config.Integrations.MDX; mdx.Enabled {
		exts = mdx.Extensions
	}
	return &content.Loader{
		Dir:         a.Config.ContentDir,
		Extensions:  exts,
		Renderer:    a.renderer,
		ImagePrefix: ImagePrefix,
	}
}

func (a *App) setupRoutes() {
	e := a.Echo
	cfg := a.Config

	// Framework assets are served under /public/ ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	assets := echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler))
	e.GET(scriptproxy.ForwarderPath, assets)
	e.GET(searchScriptPath, assets)
	e.GET(syntaxCSSPath, a.handleSyntaxCSS)

	e.Static("/public", cfg.PublicDir)
	e.Static(ImagePrefix, a.imagesDir())
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/rss.xml", a.handleRSS)
	if cfg.Integrations.Sitemap.Enabled {
		e.GET(sitemapIndexPath, a.handleSitemapIndex)
		e.GET("/sitemap-:chunk", a.handleSitemapChunk)
	}

	e.GET("/", a.handleHome)
	for _, coll := range content.Collections {
		base := "/" + string(coll)
		e.GET(base+"/", a.handleList(coll))
		e.GET(base+"/tags/:tag/", a.handleList(coll))
		e.GET(base+"/:slug/", a.handleEntry(coll))
	}

	if a.search != nil {
		e.GET("/search/", a.handleSearchPage)
		e.GET(searchIndexPath, a.handleSearchIndex)
		a.search.RegisterRoutes(e)
	}
	if a.proxy != nil {
		a.proxy.RegisterRoutes(e)
	}

	if cfg.AdminPassword != "" {
		e.GET("/admin/", a.handleAdmin)
		e.POST("/admin/login/", a.handleAdminLogin)
		e.POST("/admin/logout/", handleAdminLogout)
		e.POST("/admin/reindex/", a.handleAdminReindex)
	}

	if a.analytics != nil {
		a.analytics.RegisterRoutes(e, func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if !IsAdmin(c) {
					return c.Redirect(http.StatusSeeOther, "/admin/")
				}
				return next(c)
			}
		})
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.analyticsStore != nil {
		errs = append(errs, a.analyticsStore.Close())
	}
	return errors.Join(errs...)
}
