package parango

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/markdown"
	"github.com/parangodev/parango/search"
	"github.com/parangodev/parango/site"
)

const (
	syntaxCSSPath    = "/public/syntax.css"
	searchScriptPath = "/public/search.js"
	searchIndexPath  = "/search-index.json"
)

// relatedLimit caps the related entries shown under a post.
const relatedLimit = 3

// page builds the data shared by every page. path is the site-relative
// path of the page and becomes the canonical URL.
func (a *App) page(path string, meta site.Metadata) Page {
	title := site.Site.Title
	if meta.Title != "" && meta.Title != site.Site.Title {
		title = meta.Title + " | " + site.Site.Title
	}
	desc := meta.Description
	if desc == "" {
		desc = site.Site.Description
	}
	p := Page{
		Meta: PageMeta{
			Title:       title,
			Description: desc,
			URL:         a.absURL(path),
			OGType:      "website",
		},
		Path:          path,
		SiteTitle:     site.Site.Title,
		Email:         site.Site.Email,
		Socials:       site.SocialLinks(),
		SyntaxCSS:     syntaxCSSPath,
		SearchEnabled: a.search != nil,
		HasSitemap:    a.Config.Integrations.Sitemap.Enabled,
		Year:          time.Now().Year(),
	}
	if st := a.Config.Integrations.Styling; st.Enabled {
		p.Stylesheets = st.Stylesheets
	}
	if a.proxy != nil {
		p.Scripts = a.proxy.Snippet()
	}
	return p
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.List(content.Blog, "")
	if err != nil {
		return err
	}
	projects, err := a.Cache.List(content.Projects, "")
	if err != nil {
		return err
	}
	p := a.page("/", site.Home)
	p.Meta.JSONLD = WebsiteJsonLD(a.Config)
	return Render(c, a.Views.Home(HomeData{
		Page:     p,
		Intro:    site.Home,
		Posts:    content.Latest(posts, site.Site.NumPostsOnHomepage),
		Projects: content.Latest(projects, site.Site.NumProjectsOnHomepage),
	}))
}

func collectionMeta(coll content.Collection) site.Metadata {
	if coll == content.Projects {
		return site.Projects
	}
	return site.Blog
}

func (a *App) handleList(coll content.Collection) echo.HandlerFunc {
	return func(c echo.Context) error {
		tag, _ := url.PathUnescape(c.Param("tag"))
		tag = normalizeTag(tag)
		entries, err := a.Cache.List(coll, tag)
		if err != nil {
			return err
		}
		tags, err := a.Cache.Tags(coll)
		if err != nil {
			return err
		}
		if tag != "" && len(entries) == 0 {
			return echo.ErrNotFound
		}

		meta := collectionMeta(coll)
		path := "/" + string(coll) + "/"
		if tag != "" {
			path = TagURL(coll, tag)
			meta.Title = meta.Title + ": " + tag
		}
		return Render(c, a.Views.List(ListData{
			Page:       a.page(path, meta),
			Collection: coll,
			Heading:    collectionMeta(coll),
			Entries:    entries,
			Years:      content.GroupByYear(entries),
			Tags:       tags,
			ActiveTag:  tag,
		}))
	}
}

func (a *App) handleEntry(coll content.Collection) echo.HandlerFunc {
	return func(c echo.Context) error {
		slug := c.Param("slug")
		entry, err := a.Cache.Get(coll, slug)
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		if err != nil {
			return err
		}
		all, err := a.Cache.List(coll, "")
		if err != nil {
			return err
		}
		prev, next := content.Adjacent(all, slug)

		p := a.page(entry.Link(), site.Metadata{Title: entry.Title, Description: entry.Description})
		p.Meta.OGType = "article"
		if coll == content.Projects {
			p.Meta.JSONLD = ProjectJsonLD(entry, a.Config)
		} else {
			p.Meta.JSONLD = BlogPostingJsonLD(entry, a.Config)
		}
		return Render(c, a.Views.Entry(EntryData{
			Page:    p,
			Entry:   entry,
			Prev:    prev,
			Next:    next,
			Related: RelatedEntries(entry, all, relatedLimit),
		}))
	}
}

func (a *App) handleSearchPage(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	data := SearchData{
		Page:  a.page("/search/", site.Metadata{Title: "Buscar", Description: site.Site.Description}),
		Query: q,
	}
	if a.Config.Output == OutputStatic {
		data.IndexURL = searchIndexPath
		data.ScriptURL = searchScriptPath
		return Render(c, a.Views.Search(data))
	}
	if q != "" {
		results, err := a.search.Query(c.Request().Context(), q, 0)
		if err != nil && !errors.Is(err, search.ErrEmptyQuery) {
			return err
		}
		data.Results = results
	}
	return Render(c, a.Views.Search(data))
}

// handleSearchIndex serves every indexed entry as the JSON document set
// searched in the browser on static sites.
func (a *App) handleSearchIndex(c echo.Context) error {
	var docs []search.Document
	for _, coll := range content.Collections {
		entries, err := a.Cache.List(coll, "")
		if err != nil {
			return err
		}
		for _, e := range entries {
			docs = append(docs, search.Document{
				URL:         e.Link(),
				Collection:  string(e.Collection),
				Title:       e.Title,
				Description: e.Description,
				Date:        e.DateString(),
				Tags:        e.Tags,
				Excerpt:     search.Excerpt(e.Description+" "+e.Body, 160),
				Terms:       search.UniqueTerms(e.Title, e.Description, strings.Join(e.Tags, " "), e.Body),
			})
		}
	}
	var buf bytes.Buffer
	if err := search.WriteIndex(&buf, docs); err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, buf.Bytes())
}

func (a *App) handleSyntaxCSS(c echo.Context) error {
	var buf bytes.Buffer
	if err := markdown.WriteThemeCSS(&buf, a.renderer.Theme()); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.PublicDir, "favicon.svg"))
}

func (a *App) handleRobots(c echo.Context) error {
	// A user-provided robots.txt wins over the generated one.
	custom := filepath.Join(a.Config.PublicDir, "robots.txt")
	if _, err := os.Stat(custom); err == nil {
		return c.File(custom)
	}
	return c.String(http.StatusOK, a.robotsTxt())
}

func (a *App) handleRSS(c echo.Context) error {
	posts, err := a.Cache.List(content.Blog, "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound && acceptsHTML(c) {
		p := a.page(c.Request().URL.Path, site.Metadata{Title: "No encontrado"})
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(p))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if acceptsHTML(c) {
			_ = RenderStatus(c, code, a.Views.ServerError(a.page(c.Request().URL.Path, site.Metadata{Title: "Error"})))
			return
		}
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// acceptsHTML reports whether the request is for a page rather than an
// API, feed or asset.
func acceptsHTML(c echo.Context) bool {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/analytics/api/") {
		return false
	}
	return filepath.Ext(path) == "" || strings.HasSuffix(path, ".html")
}
