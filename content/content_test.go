package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parangodev/parango/markdown"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog", "primer-post.md"), `---
title: "Primer post"
description: "Hola"
date: 2024-01-15
tags: [Go, web, go]
---
# Hola

Texto del post.
`)
	writeFile(t, filepath.Join(dir, "blog", "segundo", "index.md"), `---
title: "Segundo"
description: "Otro"
date: "2024-03-01"
draft: true
---
![portada](./cover.png)
`)
	writeFile(t, filepath.Join(dir, "projects", "parango.md"), `---
title: "Parango"
description: "El blog"
date: "2023-12-01"
demoURL: "https://parango.dev"
repoURL: "https://github.com/parangodev/parango"
---
Proyecto.
`)
	writeFile(t, filepath.Join(dir, "blog", "notas.txt"), "ignored")

	l := &Loader{Dir: dir, Renderer: markdown.New(markdown.Options{}), ImagePrefix: "/_images"}
	entries, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	// Newest first.
	if entries[0].Slug != "segundo" || entries[1].Slug != "primer-post" || entries[2].Slug != "parango" {
		t.Errorf("order = %s, %s, %s", entries[0].Slug, entries[1].Slug, entries[2].Slug)
	}

	second := entries[0]
	if !second.Draft {
		t.Error("segundo should be a draft")
	}
	if len(second.Images) != 1 || second.Images[0] != "cover.png" {
		t.Errorf("Images = %v", second.Images)
	}
	if !strings.Contains(second.HTML, "/_images/blog/segundo/cover.jpg") {
		t.Errorf("image not rewritten: %q", second.HTML)
	}

	first := entries[1]
	if first.Collection != Blog {
		t.Errorf("Collection = %q", first.Collection)
	}
	if got := strings.Join(first.Tags, ","); got != "go,web" {
		t.Errorf("Tags = %q, want go,web", got)
	}
	if first.Link() != "/blog/primer-post/" {
		t.Errorf("Link() = %q", first.Link())
	}
	if first.DateString() != "2024-01-15" {
		t.Errorf("DateString() = %q", first.DateString())
	}
	if !strings.Contains(first.HTML, `<h1 id="hola">Hola</h1>`) {
		t.Errorf("HTML = %q", first.HTML)
	}

	project := entries[2]
	if project.Collection != Projects || project.DemoURL != "https://parango.dev" || project.RepoURL == "" {
		t.Errorf("project = %+v", project)
	}
}

func TestLoadReportsEveryBadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog", "sin-titulo.md"), "---\ndescription: d\ndate: \"2024-01-01\"\n---\nx\n")
	writeFile(t, filepath.Join(dir, "blog", "mala-fecha.md"), "---\ntitle: t\ndescription: d\ndate: \"ayer\"\n---\nx\n")
	writeFile(t, filepath.Join(dir, "blog", "ok.md"), "---\ntitle: t\ndescription: d\ndate: \"2024-01-01\"\n---\nx\n")

	entries, err := (&Loader{Dir: dir}).Load()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "title is required") || !strings.Contains(msg, `unrecognized date "ayer"`) {
		t.Errorf("error = %q", msg)
	}
	if len(entries) != 1 || entries[0].Slug != "ok" {
		t.Errorf("good entries should still load, got %v", entries)
	}
}

func TestLoadDuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	fm := "---\ntitle: t\ndescription: d\ndate: \"2024-01-01\"\n---\nx\n"
	writeFile(t, filepath.Join(dir, "blog", "hola.md"), fm)
	writeFile(t, filepath.Join(dir, "blog", "hola", "index.md"), fm)

	writeFile(t, filepath.Join(dir, "blog", "Otro.MD"), fm)
	writeFile(t, filepath.Join(dir, "blog", "otro.md"), fm)

	entries, err := (&Loader{Dir: dir}).Load()
	if err == nil || !strings.Contains(err.Error(), `slug "hola" already used`) || !strings.Contains(err.Error(), `slug "otro" already used`) {
		t.Fatalf("expected duplicate slug errors, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("duplicates should be dropped, got %d entries", len(entries))
	}
	if entries[0].Slug == entries[1].Slug {
		t.Errorf("slugs = %s, %s", entries[0].Slug, entries[1].Slug)
	}
}

func TestLoadNestedFileSlug(t *testing.T) {
	dir := t.TempDir()
	fm := "---\ntitle: t\ndescription: d\ndate: \"2024-01-01\"\n---\nx\n"
	writeFile(t, filepath.Join(dir, "blog", "2024", "anidado.md"), fm)
	writeFile(t, filepath.Join(dir, "blog", "2023", "carpeta", "index.md"), fm)

	entries, err := (&Loader{Dir: dir}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got := map[string]bool{}
	for _, e := range entries {
		got[e.Slug] = true
	}
	if len(entries) != 2 || !got["anidado"] || !got["carpeta"] {
		t.Errorf("slugs = %v, want anidado and carpeta", got)
	}
}

func TestLoadTOMLFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog", "toml.md"), `+++
title = "Con TOML"
description = "Fecha nativa"
date = 2024-01-02
tags = ["go"]
+++
Cuerpo.
`)
	writeFile(t, filepath.Join(dir, "blog", "hora.md"), `+++
title = "Con hora"
description = "Fecha con zona"
date = 2024-02-03T10:00:00+02:00
+++
Cuerpo.
`)

	entries, err := (&Loader{Dir: dir}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Slug != "hora" || !entries[0].Date.Equal(time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("hora = %s %v", entries[0].Slug, entries[0].Date)
	}
	if entries[1].Slug != "toml" || entries[1].DateString() != "2024-01-02" || entries[1].Title != "Con TOML" {
		t.Errorf("toml = %s %v %q", entries[1].Slug, entries[1].Date, entries[1].Title)
	}
	if len(entries[1].Tags) != 1 || entries[1].Tags[0] != "go" {
		t.Errorf("Tags = %v", entries[1].Tags)
	}
}

func TestLoadMissingDir(t *testing.T) {
	entries, err := (&Loader{Dir: filepath.Join(t.TempDir(), "nope")}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1},
		{1, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}
	for _, tt := range tests {
		body := strings.Repeat("palabra ", tt.words)
		if got := ReadingTime(body); got != tt.want {
			t.Errorf("ReadingTime(%d words) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestPublished(t *testing.T) {
	entries := []Entry{{Slug: "a"}, {Slug: "b", Draft: true}}
	if got := Published(entries, false); len(got) != 1 || got[0].Slug != "a" {
		t.Errorf("Published(false) = %v", got)
	}
	if got := Published(entries, true); len(got) != 2 {
		t.Errorf("Published(true) = %v", got)
	}
}

func TestAdjacent(t *testing.T) {
	entries := []Entry{{Slug: "c"}, {Slug: "b"}, {Slug: "a"}}

	prev, next := Adjacent(entries, "b")
	if prev == nil || prev.Slug != "c" || next == nil || next.Slug != "a" {
		t.Errorf("Adjacent(b) = %v, %v", prev, next)
	}
	prev, next = Adjacent(entries, "c")
	if prev != nil || next == nil || next.Slug != "b" {
		t.Errorf("Adjacent(c) = %v, %v", prev, next)
	}
	prev, next = Adjacent(entries, "a")
	if prev == nil || next != nil {
		t.Errorf("Adjacent(a) = %v, %v", prev, next)
	}
	prev, next = Adjacent(entries, "zzz")
	if prev != nil || next != nil {
		t.Errorf("Adjacent(missing) = %v, %v", prev, next)
	}
}

func TestGroupByYear(t *testing.T) {
	entries := []Entry{
		{Slug: "d", Date: date("2024-05-01")},
		{Slug: "c", Date: date("2024-01-01")},
		{Slug: "b", Date: date("2023-07-01")},
		{Slug: "a", Date: date("2021-02-01")},
	}
	groups := GroupByYear(entries)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	if groups[0].Year != 2024 || len(groups[0].Entries) != 2 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[2].Year != 2021 {
		t.Errorf("groups[2].Year = %d", groups[2].Year)
	}
}

func TestSortEntriesTieBreak(t *testing.T) {
	d := date("2024-01-01")
	entries := []Entry{{Slug: "b", Date: d}, {Slug: "a", Date: d}, {Slug: "z", Date: date("2025-01-01")}}
	SortEntries(entries)
	if entries[0].Slug != "z" || entries[1].Slug != "a" || entries[2].Slug != "b" {
		t.Errorf("order = %s %s %s", entries[0].Slug, entries[1].Slug, entries[2].Slug)
	}
}

func TestLatest(t *testing.T) {
	entries := []Entry{{Slug: "a"}, {Slug: "b"}, {Slug: "c"}}
	if got := Latest(entries, 2); len(got) != 2 {
		t.Errorf("Latest(2) len = %d", len(got))
	}
	if got := Latest(entries, 5); len(got) != 3 {
		t.Errorf("Latest(5) len = %d", len(got))
	}
}

func TestTitleFromSlug(t *testing.T) {
	if got := TitleFromSlug("mi-primer_post"); got != "Mi Primer Post" {
		t.Errorf("TitleFromSlug() = %q", got)
	}
}
