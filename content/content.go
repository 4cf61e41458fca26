// Package content loads the blog and projects collections from markdown files
// with frontmatter.
package content

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Collection names a content folder.
type Collection string

const (
	Blog     Collection = "blog"
	Projects Collection = "projects"
)

// Collections lists every collection in display order.
var Collections = []Collection{Blog, Projects}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == Blog || c == Projects
}

// Entry is one post or project.
type Entry struct {
	Collection  Collection
	Slug        string
	Title       string
	Description string
	Date        time.Time
	Draft       bool
	Tags        []string
	DemoURL     string
	RepoURL     string
	Body        string
	HTML        string
	ReadingTime int
	SourcePath  string
	// Images are relative image paths referenced by the body, resolved
	// against the directory of SourcePath.
	Images []string
}

// Link returns the site-relative URL of the entry.
func (e Entry) Link() string {
	return "/" + string(e.Collection) + "/" + e.Slug + "/"
}

// DateString formats the entry date as YYYY-MM-DD.
func (e Entry) DateString() string {
	return e.Date.Format("2006-01-02")
}

// YearGroup is a run of entries published in the same year.
type YearGroup struct {
	Year    int
	Entries []Entry
}

const wordsPerMinute = 200

// ReadingTime estimates minutes to read body at 200 words per minute.
func ReadingTime(body string) int {
	words := len(strings.FieldsFunc(body, func(r rune) bool {
		return unicode.IsSpace(r)
	}))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// SortEntries orders entries newest first, breaking ties by slug.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].Slug < entries[j].Slug
	})
}

// Published drops drafts unless showDrafts is set.
func Published(entries []Entry, showDrafts bool) []Entry {
	if showDrafts {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Draft {
			out = append(out, e)
		}
	}
	return out
}

// Filter returns the entries belonging to c.
func Filter(entries []Entry, c Collection) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Collection == c {
			out = append(out, e)
		}
	}
	return out
}

// Adjacent returns the newer (prev) and older (next) neighbours of slug in a
// newest-first list. Either is nil at the ends or when slug is absent.
func Adjacent(entries []Entry, slug string) (prev, next *Entry) {
	for i := range entries {
		if entries[i].Slug != slug {
			continue
		}
		if i > 0 {
			p := entries[i-1]
			prev = &p
		}
		if i < len(entries)-1 {
			n := entries[i+1]
			next = &n
		}
		return prev, next
	}
	return nil, nil
}

// GroupByYear splits a newest-first list into year groups, newest year first.
func GroupByYear(entries []Entry) []YearGroup {
	var groups []YearGroup
	index := make(map[int]int)
	for _, e := range entries {
		y := e.Date.Year()
		i, ok := index[y]
		if !ok {
			i = len(groups)
			index[y] = i
			groups = append(groups, YearGroup{Year: y})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Year > groups[j].Year })
	return groups
}

// Latest returns at most n entries from the head of the list.
func Latest(entries []Entry, n int) []Entry {
	if n < 0 || len(entries) <= n {
		return entries
	}
	return entries[:n]
}
