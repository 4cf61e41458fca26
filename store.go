package parango

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/search"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("parango: not found")

// Store wraps a SQLite database holding the indexed entries and their
// full-text index.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers keep serving while a reindex transaction runs.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    collection TEXT NOT NULL,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    date TEXT NOT NULL,
    draft INTEGER NOT NULL DEFAULT 0,
    tags TEXT NOT NULL,
    demo_url TEXT NOT NULL DEFAULT '',
    repo_url TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    html TEXT NOT NULL,
    reading_time INTEGER NOT NULL,
    source_path TEXT NOT NULL,
    PRIMARY KEY (collection, slug)
);

CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(collection, date DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
    title, description, body, tags,
    collection UNINDEXED, slug UNINDEXED,
    tokenize = 'unicode61 remove_diacritics 2'
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

// ReplaceEntries swaps the whole index for entries in one transaction, so
// readers see either the old or the new content set.
func (s *Store) ReplaceEntries(ctx context.Context, entries []content.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts`); err != nil {
		return err
	}

	ins, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(collection, slug, title, description, date, draft, tags, demo_url, repo_url, body, html, reading_time, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ins.Close()
	fts, err := tx.PrepareContext(ctx, `INSERT INTO entries_fts
		(title, description, body, tags, collection, slug) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fts.Close()

	for _, e := range entries {
		if !e.Collection.Valid() {
			return fmt.Errorf("insert %s/%s: unknown collection", e.Collection, e.Slug)
		}
		draft := 0
		if e.Draft {
			draft = 1
		}
		if _, err := ins.ExecContext(ctx,
			string(e.Collection), e.Slug, e.Title, e.Description, formatDate(e.Date), draft,
			joinTags(e.Tags), e.DemoURL, e.RepoURL, e.Body, e.HTML, e.ReadingTime, e.SourcePath,
		); err != nil {
			return fmt.Errorf("insert %s/%s: %w", e.Collection, e.Slug, err)
		}
		if _, err := fts.ExecContext(ctx,
			e.Title, e.Description, e.Body, strings.Join(e.Tags, " "), string(e.Collection), e.Slug,
		); err != nil {
			return fmt.Errorf("index %s/%s: %w", e.Collection, e.Slug, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('indexed_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

const entryColumns = `collection, slug, title, description, date, draft, tags, demo_url, repo_url, body, html, reading_time, source_path`

// ListEntries returns the entries of collection newest first. If tag is
// non-empty, results are filtered to entries carrying that tag.
func (s *Store) ListEntries(collection content.Collection, tag string) ([]content.Entry, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.Query(`SELECT `+entryColumns+` FROM entries WHERE collection = ? ORDER BY date DESC, slug`, string(collection))
	} else {
		rows, err = s.db.Query(`SELECT `+entryColumns+` FROM entries WHERE collection = ? AND instr(tags, ',' || ? || ',') > 0 ORDER BY date DESC, slug`,
			string(collection), normalizeTag(tag))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []content.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntry returns a single entry or ErrNotFound.
func (s *Store) GetEntry(collection content.Collection, slug string) (content.Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE collection = ? AND slug = ?`, string(collection), slug)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Entry{}, ErrNotFound
	}
	return e, err
}

// ListTags returns a sorted, deduplicated slice of the tags used in collection.
func (s *Store) ListTags(collection content.Collection) ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM entries WHERE collection = ?`, string(collection))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		all = append(all, parseTags(tags)...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueSorted(all), nil
}

// Counts returns the number of indexed entries per collection.
func (s *Store) Counts() (map[content.Collection]int, error) {
	rows, err := s.db.Query(`SELECT collection, COUNT(*) FROM entries GROUP BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[content.Collection]int, len(content.Collections))
	for _, c := range content.Collections {
		counts[c] = 0
	}
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		counts[content.Collection(c)] = n
	}
	return counts, rows.Err()
}

// IndexedAt returns when ReplaceEntries last succeeded, or the zero time.
func (s *Store) IndexedAt() (time.Time, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'indexed_at'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// Snippet markers. Control characters cannot occur in escaped output, so
// they survive html.EscapeString and are then swapped for <mark> tags.
const (
	markOpen  = "\x02"
	markClose = "\x03"
)

// Search runs an FTS5 match expression built by search.BuildMatch. Title
// hits weigh most, then description, tags and body. Excerpts are HTML with
// the matched terms wrapped in <mark>.
func (s *Store) Search(ctx context.Context, match string, limit int) ([]search.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT e.collection, e.slug, e.title, e.description, e.date, e.tags,
       snippet(entries_fts, 2, ?, ?, '…', 24)
FROM entries_fts
JOIN entries e ON e.collection = entries_fts.collection AND e.slug = entries_fts.slug
WHERE entries_fts MATCH ?
ORDER BY bm25(entries_fts, 10.0, 5.0, 1.0, 3.0), e.date DESC
LIMIT ?`, markOpen, markClose, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []search.Result
	for rows.Next() {
		var collection, slug, date, tags, snippet string
		var r search.Result
		if err := rows.Scan(&collection, &slug, &r.Title, &r.Description, &date, &tags, &snippet); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		r.Collection = collection
		r.URL = "/" + collection + "/" + slug + "/"
		r.Tags = parseTags(tags)
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			r.Date = t.Format("2006-01-02")
		}
		r.Excerpt = highlight(snippet)
		results = append(results, r)
	}
	return results, rows.Err()
}

func highlight(snippet string) string {
	s := html.EscapeString(strings.Join(strings.Fields(snippet), " "))
	s = strings.ReplaceAll(s, markOpen, "<mark>")
	return strings.ReplaceAll(s, markClose, "</mark>")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (content.Entry, error) {
	var e content.Entry
	var collection, date, tags string
	var draft int
	if err := row.Scan(&collection, &e.Slug, &e.Title, &e.Description, &date, &draft,
		&tags, &e.DemoURL, &e.RepoURL, &e.Body, &e.HTML, &e.ReadingTime, &e.SourcePath); err != nil {
		return content.Entry{}, err
	}
	d, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return content.Entry{}, fmt.Errorf("entry %s/%s: bad date %q", collection, e.Slug, date)
	}
	e.Collection = content.Collection(collection)
	e.Date = d
	e.Draft = draft == 1
	e.Tags = parseTags(tags)
	return e, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// joinTags stores tags as ",go,web," so a single tag can be matched with
// instr.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	normalized := make([]string, len(tags))
	for i, t := range tags {
		normalized[i] = normalizeTag(t)
	}
	return "," + strings.Join(normalized, ",") + ","
}

// parseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func parseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
