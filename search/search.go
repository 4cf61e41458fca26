// Package search turns user queries into SQLite FTS5 expressions, serves
// search results as JSON and writes the index consumed by static builds.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
)

// ErrEmptyQuery is returned when a query has no searchable terms.
var ErrEmptyQuery = errors.New("search: empty query")

// maxTerms caps the number of tokens taken from a query.
const maxTerms = 8

// Result is one search hit.
type Result struct {
	URL         string   `json:"url"`
	Collection  string   `json:"collection"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags,omitempty"`
	Excerpt     string   `json:"excerpt"`
}

// Searcher runs a prepared FTS5 match expression.
type Searcher interface {
	Search(ctx context.Context, match string, limit int) ([]Result, error)
}

// Tokens splits q into lowercase terms made of letters and digits.
func Tokens(q string) []string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) > maxTerms {
		fields = fields[:maxTerms]
	}
	return fields
}

// BuildMatch converts free text into an FTS5 expression in which every term
// must match and the last term matches as a prefix, so results update while
// the user is still typing. Terms are quoted so FTS5 operators in the input
// are treated as text.
func BuildMatch(q string) (string, error) {
	terms := Tokens(q)
	if len(terms) == 0 {
		return "", ErrEmptyQuery
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = `"` + t + `"`
		if i == len(terms)-1 {
			parts[i] += "*"
		}
	}
	return strings.Join(parts, " AND "), nil
}

// Handler serves GET /api/search.
type Handler struct {
	searcher Searcher
	maxLimit int
}

// NewHandler creates a search handler returning at most maxLimit results.
func NewHandler(s Searcher, maxLimit int) *Handler {
	if maxLimit <= 0 {
		maxLimit = 20
	}
	return &Handler{searcher: s, maxLimit: maxLimit}
}

// Response is the JSON body of a search request.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Query runs q against the index. It is shared by the JSON API and the
// search page.
func (h *Handler) Query(ctx context.Context, q string, limit int) ([]Result, error) {
	match, err := BuildMatch(q)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > h.maxLimit {
		limit = h.maxLimit
	}
	results, err := h.searcher.Search(ctx, match, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	results, err := h.Query(c.Request().Context(), q, limit)
	if errors.Is(err, ErrEmptyQuery) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	if err != nil {
		c.Logger().Errorf("search %q: %v", q, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, Response{Query: q, Results: results})
}

// RegisterRoutes mounts the search API.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/search", h.Search)
}

// Document is one record of the static search index.
type Document struct {
	URL         string   `json:"url"`
	Collection  string   `json:"collection"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags,omitempty"`
	Excerpt     string   `json:"excerpt"`
	Terms       []string `json:"terms"`
}

// Index is the static search index file.
type Index struct {
	Version   int        `json:"version"`
	Documents []Document `json:"documents"`
}

// WriteIndex writes docs as a JSON index for client-side search.
func WriteIndex(w io.Writer, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(Index{Version: 1, Documents: docs})
}

// Excerpt returns the first n runes of text with whitespace collapsed.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// UniqueTerms returns the distinct tokens of the given texts in first-seen
// order.
func UniqueTerms(texts ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range texts {
		for _, tok := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len([]rune(tok)) < 2 {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
