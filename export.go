package parango

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/scriptproxy"
)

// exportWorkers bounds how many pages render at once.
const exportWorkers = 8

// Export renders the whole site into OutDir. Every page goes through the
// same routes and middleware as in server mode, so both outputs match.
// Export requires Output to be "static".
func (a *App) Export(ctx context.Context) error {
	if a.Config.Output != OutputStatic {
		return fmt.Errorf("parango: export requires output %q, got %q", OutputStatic, a.Config.Output)
	}
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Reload(ctx); err != nil {
		return err
	}

	out := a.Config.OutDir
	if err := a.checkOutDir(); err != nil {
		return err
	}
	if err := os.RemoveAll(out); err != nil {
		return fmt.Errorf("parango: clean %s: %w", out, err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	pages, err := a.exportPages()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for _, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return a.exportPath(p, pageFile(p), http.StatusOK)
		})
	}
	for _, f := range a.exportFiles() {
		g.Go(func() error {
			return a.exportPath(f, filepath.FromSlash(strings.TrimPrefix(f, "/")), http.StatusOK)
		})
	}
	g.Go(func() error {
		return a.exportPath("/404/", "404.html", http.StatusNotFound)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := copyTree(a.Config.PublicDir, filepath.Join(out, "public")); err != nil {
		return fmt.Errorf("parango: copy public: %w", err)
	}
	if err := copyTree(a.imagesDir(), filepath.Join(out, strings.TrimPrefix(ImagePrefix, "/"))); err != nil {
		return fmt.Errorf("parango: copy images: %w", err)
	}
	if a.Config.Adapter == AdapterCloudflare {
		if err := os.WriteFile(filepath.Join(out, "_headers"), []byte(a.headersFile()), 0o644); err != nil {
			return err
		}
	}
	a.Echo.Logger.Infof("parango: exported %d pages to %s", len(pages), out)
	return nil
}

// checkOutDir refuses output directories whose cleanup would destroy
// sources: the working directory, its parents, or anything holding the
// content, public or data directories.
func (a *App) checkOutDir() error {
	out, err := filepath.Abs(a.Config.OutDir)
	if err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if within(wd, out) {
		return fmt.Errorf("parango: refusing to export into %s: it contains the working directory", a.Config.OutDir)
	}
	for _, dir := range []string{a.Config.ContentDir, a.Config.PublicDir, a.Config.DataDir} {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if within(abs, out) || within(out, abs) {
			return fmt.Errorf("parango: refusing to export into %s: it overlaps %s", a.Config.OutDir, dir)
		}
	}
	return nil
}

// within reports whether path is dir or lies inside it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// exportPages lists every HTML page of the site, tag listings included.
func (a *App) exportPages() ([]string, error) {
	pages := []string{"/"}
	for _, coll := range content.Collections {
		pages = append(pages, "/"+string(coll)+"/")
		tags, err := a.Cache.Tags(coll)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			pages = append(pages, TagURL(coll, t))
		}
		entries, err := a.Cache.List(coll, "")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			pages = append(pages, e.Link())
		}
	}
	if a.search != nil {
		pages = append(pages, "/search/")
	}
	return pages, nil
}

// exportFiles lists the non-HTML routes written next to the pages.
func (a *App) exportFiles() []string {
	files := []string{"/rss.xml", "/robots.txt", syntaxCSSPath}
	if _, err := os.Stat(filepath.Join(a.Config.PublicDir, "favicon.svg")); err == nil {
		files = append(files, "/favicon.svg")
	}
	if a.Config.Integrations.Sitemap.Enabled {
		files = append(files, sitemapIndexPath)
		if chunks, err := a.sitemapChunks(); err == nil {
			for i := range chunks {
				files = append(files, sitemapChunkPath(i))
			}
		}
	}
	if a.search != nil {
		files = append(files, searchIndexPath, searchScriptPath)
	}
	if a.proxy != nil {
		files = append(files, scriptproxy.ForwarderPath)
	}
	return files
}

// pageFile maps a page URL to its index.html below the output directory.
func pageFile(p string) string {
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return filepath.Join(filepath.FromSlash(strings.Trim(p, "/")), "index.html")
}

// exportPath renders p through the router and writes the body to rel
// below OutDir. The response must have status want.
func (a *App) exportPath(p, rel string, want int) error {
	req := httptest.NewRequest(http.MethodGet, p, nil)
	req.Host = a.Config.SiteHost()
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != want {
		return fmt.Errorf("parango: export %s: status %d", p, rec.Code)
	}

	dst := filepath.Join(a.Config.OutDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, rec.Body.Bytes(), 0o644)
}

// copyTree copies the regular files below src into dst. A missing src is
// not an error.
func copyTree(src, dst string) error {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// headersFile renders the security headers and cache rules in the
// Cloudflare Pages _headers format.
func (a *App) headersFile() string {
	var b strings.Builder
	b.WriteString("/*\n")
	b.WriteString("  X-XSS-Protection: " + headerXSSProtection + "\n")
	b.WriteString("  X-Content-Type-Options: " + headerNosniff + "\n")
	b.WriteString("  X-Frame-Options: " + headerFrameOptions + "\n")
	b.WriteString("  Referrer-Policy: " + headerReferrerPolicy + "\n")
	b.WriteString("  Content-Security-Policy: " + a.contentSecurityPolicy() + "\n")
	b.WriteString("  Strict-Transport-Security: max-age=31536000; includeSubDomains\n")
	for _, r := range cacheRules {
		b.WriteString("\n" + r.path + "\n")
		b.WriteString("  Cache-Control: " + r.value + "\n")
	}
	return b.String()
}
