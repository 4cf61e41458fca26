package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/parangodev/parango/markdown"
)

// frontMatter is the schema shared by both collections. Project-only fields
// are ignored for posts.
type frontMatter struct {
	Title       string   `yaml:"title" toml:"title"`
	Description string   `yaml:"description" toml:"description"`
	Date        any      `yaml:"date" toml:"date"`
	Draft       bool     `yaml:"draft" toml:"draft"`
	Tags        []string `yaml:"tags" toml:"tags"`
	DemoURL     string   `yaml:"demoURL" toml:"demoURL"`
	RepoURL     string   `yaml:"repoURL" toml:"repoURL"`
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2 2006",
	"Jan 02 2006",
}

// Loader reads collections from a directory tree:
//
//	<dir>/blog/<slug>.md
//	<dir>/blog/<slug>/index.md
//	<dir>/projects/<slug>.md
type Loader struct {
	Dir        string
	Extensions []string
	Renderer   *markdown.Renderer
	// ImagePrefix is the URL prefix optimized images are served under
	// (e.g. "/_images"). Empty disables image rewriting.
	ImagePrefix string
}

// Load parses every entry of every collection. Entries are returned newest
// first. Errors from individual files are joined so one bad file does not
// hide the others.
func (l *Loader) Load() ([]Entry, error) {
	exts := l.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".mdx"}
	}
	var entries []Entry
	var errs []error
	for _, c := range Collections {
		root := filepath.Join(l.Dir, string(c))
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasExt(d.Name(), exts) {
				return nil
			}
			e, err := l.loadFile(c, root, p)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", root, err))
		}
	}
	entries, dupErr := dropDuplicateSlugs(entries)
	if dupErr != nil {
		errs = append(errs, dupErr)
	}
	SortEntries(entries)
	return entries, errors.Join(errs...)
}

func (l *Loader) loadFile(c Collection, root, p string) (Entry, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", p, err)
	}
	var fm frontMatter
	body, err := frontmatter.MustParse(bytes.NewReader(raw), &fm)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: frontmatter: %w", p, err)
	}
	if err := fm.validate(); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", p, err)
	}
	date, err := parseDate(fm.Date)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", p, err)
	}

	slug := slugFor(root, p)
	imageBase := ""
	if l.ImagePrefix != "" {
		imageBase = path.Join(l.ImagePrefix, string(c), slug)
	}

	e := Entry{
		Collection:  c,
		Slug:        slug,
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		Date:        date,
		Draft:       fm.Draft,
		Tags:        normalizeTags(fm.Tags),
		Body:        string(body),
		ReadingTime: ReadingTime(string(body)),
		SourcePath:  p,
	}
	if c == Projects {
		e.DemoURL = strings.TrimSpace(fm.DemoURL)
		e.RepoURL = strings.TrimSpace(fm.RepoURL)
	}
	if l.Renderer != nil {
		res, err := l.Renderer.Render(body, imageBase)
		if err != nil {
			return Entry{}, fmt.Errorf("%s: %w", p, err)
		}
		e.HTML = res.HTML
		e.Images = res.Images
	}
	return e, nil
}

func (fm frontMatter) validate() error {
	var errs []error
	if strings.TrimSpace(fm.Title) == "" {
		errs = append(errs, errors.New("frontmatter: title is required"))
	}
	if strings.TrimSpace(fm.Description) == "" {
		errs = append(errs, errors.New("frontmatter: description is required"))
	}
	if dateMissing(fm.Date) {
		errs = append(errs, errors.New("frontmatter: date is required"))
	}
	return errors.Join(errs...)
}

func dateMissing(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(d) == ""
	}
	return false
}

// parseDate accepts a YAML string or a native TOML date. TOML local dates
// and datetimes keep their wall clock and are read as UTC.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		if strings.HasSuffix(d.Location().String(), "-local") {
			return time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), time.UTC), nil
		}
		return d.UTC(), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("frontmatter: unrecognized date %q", s)
	default:
		return time.Time{}, fmt.Errorf("frontmatter: unrecognized date %v", v)
	}
}

// slugFor derives the slug from the file name, or from the folder name for
// "index" files: "hola.md" and "2024/hola/index.md" both become "hola".
// An index file directly in the collection root has no slug of its own.
func slugFor(root, p string) string {
	name := filepath.Base(p)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if strings.EqualFold(name, "index") {
		if dir := filepath.Dir(p); filepath.Clean(dir) != filepath.Clean(root) {
			name = filepath.Base(dir)
		}
	}
	return strings.ToLower(name)
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// dropDuplicateSlugs keeps the first entry walked for each collection and
// slug, reporting the rest as errors.
func dropDuplicateSlugs(entries []Entry) ([]Entry, error) {
	seen := make(map[string]string)
	var errs []error
	out := entries[:0]
	for _, e := range entries {
		key := string(e.Collection) + "/" + e.Slug
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s: slug %q already used by %s", e.SourcePath, e.Slug, prev))
			continue
		}
		seen[key] = e.SourcePath
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}

var titleCaser = cases.Title(language.Spanish)

// TitleFromSlug turns "mi-primer-post" into "Mi Primer Post". It names
// scaffolded entries and tag headings.
func TitleFromSlug(slug string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(path.Base(slug))
	return titleCaser.String(s)
}
