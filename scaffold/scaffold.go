// Package scaffold creates new parango sites from embedded templates.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/parangodev/parango/content"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

// Data holds the template variables passed to every scaffold template.
type Data struct {
	SiteName string
	Site     string
	Date     string
}

// NewData derives template data for a site created in dir.
func NewData(dir, site string, now time.Time) Data {
	if site == "" {
		site = "https://example.com"
	}
	return Data{
		SiteName: content.TitleFromSlug(filepath.Base(filepath.Clean(dir))),
		Site:     site,
		Date:     now.Format("2006-01-02"),
	}
}

// Generate writes a new site into dir, which must not exist yet. Each
// created path is reported to log.
func Generate(dir string, data Data, log io.Writer) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %q already exists", dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	root := "templates"
	return fs.WalkDir(Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, filepath.FromSlash(path))
		if err != nil {
			return err
		}
		outPath := filepath.Join(dir, strings.TrimSuffix(relPath, ".tmpl"))

		// Dotfiles are stored without the dot so embed keeps them visible.
		if filepath.Base(outPath) == "gitignore" {
			outPath = filepath.Join(filepath.Dir(outPath), ".gitignore")
		}

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}

		raw, err := Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(filepath.Base(path)).Parse(string(raw))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		if err := tmpl.Execute(f, data); err != nil {
			f.Close()
			return fmt.Errorf("execute template %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(log, "  created %s\n", outPath)
		return nil
	})
}
