package parango

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/parangodev/parango/content"
)

const (
	sitemapIndexPath = "/sitemap-index.xml"
	sitemapNS        = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	XMLNS    string         `xml:"xmlns,attr"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// sitemapPaths lists every public page, minus excluded prefixes. The
// export walks the same list.
func (a *App) sitemapPaths() ([]sitemapURL, error) {
	pages := []sitemapURL{{Loc: "/"}}
	for _, coll := range content.Collections {
		pages = append(pages, sitemapURL{Loc: "/" + string(coll) + "/"})
	}
	if a.search != nil {
		pages = append(pages, sitemapURL{Loc: "/search/"})
	}
	for _, coll := range content.Collections {
		entries, err := a.Cache.List(coll, "")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			pages = append(pages, sitemapURL{Loc: e.Link(), LastMod: e.DateString()})
		}
	}

	cfg := a.Config.Integrations.Sitemap
	out := pages[:0]
	for _, p := range pages {
		if excluded(p.Loc, cfg.Exclude) {
			continue
		}
		p.ChangeFreq = cfg.ChangeFreq
		out = append(out, p)
	}
	return out, nil
}

func excluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// sitemapChunks splits the sitemap into files of at most EntryLimit URLs.
// There is always at least one chunk.
func (a *App) sitemapChunks() ([][]sitemapURL, error) {
	urls, err := a.sitemapPaths()
	if err != nil {
		return nil, err
	}
	limit := a.Config.Integrations.Sitemap.EntryLimit
	var chunks [][]sitemapURL
	for len(urls) > limit {
		chunks = append(chunks, urls[:limit])
		urls = urls[limit:]
	}
	return append(chunks, urls), nil
}

func sitemapChunkPath(i int) string {
	return "/sitemap-" + strconv.Itoa(i) + ".xml"
}

func (a *App) handleSitemapIndex(c echo.Context) error {
	chunks, err := a.sitemapChunks()
	if err != nil {
		return err
	}
	idx := sitemapIndex{XMLNS: sitemapNS}
	for i := range chunks {
		idx.Sitemaps = append(idx.Sitemaps, sitemapEntry{Loc: a.absURL(sitemapChunkPath(i))})
	}
	return writeXML(c, "application/xml; charset=utf-8", idx)
}

func (a *App) handleSitemapChunk(c echo.Context) error {
	name, ok := strings.CutSuffix(c.Param("chunk"), ".xml")
	if !ok {
		return echo.ErrNotFound
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || strconv.Itoa(n) != name {
		return echo.ErrNotFound
	}
	chunks, err := a.sitemapChunks()
	if err != nil {
		return err
	}
	if n >= len(chunks) {
		return echo.ErrNotFound
	}
	set := sitemapURLSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, len(chunks[n]))}
	for i, u := range chunks[n] {
		u.Loc = a.absURL(u.Loc)
		set.URLs[i] = u
	}
	return writeXML(c, "application/xml; charset=utf-8", set)
}

func (a *App) robotsTxt() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /~proxy/\n")
	if a.Config.Integrations.Sitemap.Enabled {
		b.WriteString("\nSitemap: " + a.absURL(sitemapIndexPath) + "\n")
	}
	return b.String()
}

func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	return encodeXML(c.Response(), v)
}

func encodeXML(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(v)
}
