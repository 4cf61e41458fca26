package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestBuildMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"go", `"go"*`},
		{"Go Echo", `"go" AND "echo"*`},
		{`go" OR 1=1 --`, `"go" AND "or" AND "1" AND "1"*`},
		{"código rápido", `"código" AND "rápido"*`},
		{"title:secret NEAR(x)", `"title" AND "secret" AND "near" AND "x"*`},
	}
	for _, tt := range tests {
		got, err := BuildMatch(tt.input)
		if err != nil {
			t.Errorf("BuildMatch(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BuildMatch(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildMatchEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "***", `""`} {
		if _, err := BuildMatch(q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("BuildMatch(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestTokensCapped(t *testing.T) {
	got := Tokens(strings.Repeat("a ", 20))
	if len(got) != maxTerms {
		t.Errorf("len(Tokens) = %d, want %d", len(got), maxTerms)
	}
}

type fakeSearcher struct {
	match string
	limit int
	res   []Result
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, match string, limit int) ([]Result, error) {
	f.match, f.limit = match, limit
	return f.res, f.err
}

func doSearch(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSearch(t *testing.T) {
	f := &fakeSearcher{res: []Result{{URL: "/blog/hola/", Title: "Hola"}}}
	rec := doSearch(t, NewHandler(f, 10), "/api/search?q=hola&limit=50")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if f.match != `"hola"*` {
		t.Errorf("match = %q", f.match)
	}
	if f.limit != 10 {
		t.Errorf("limit = %d, want capped 10", f.limit)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "hola" || len(resp.Results) != 1 || resp.Results[0].URL != "/blog/hola/" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandlerSearchEmptyQuery(t *testing.T) {
	rec := doSearch(t, NewHandler(&fakeSearcher{}, 10), "/api/search?q=")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerSearchNoResultsIsEmptyArray(t *testing.T) {
	rec := doSearch(t, NewHandler(&fakeSearcher{}, 10), "/api/search?q=nada")
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandlerSearchError(t *testing.T) {
	rec := doSearch(t, NewHandler(&fakeSearcher{err: errors.New("boom")}, 10), "/api/search?q=x")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWriteIndex(t *testing.T) {
	var buf bytes.Buffer
	docs := []Document{{URL: "/blog/a/", Title: "A & B", Terms: []string{"a"}}}
	if err := WriteIndex(&buf, docs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"title":"A & B"`) {
		t.Errorf("expected unescaped ampersand, got %s", buf.String())
	}
	var idx Index
	if err := json.Unmarshal(buf.Bytes(), &idx); err != nil {
		t.Fatal(err)
	}
	if idx.Version != 1 || len(idx.Documents) != 1 {
		t.Errorf("idx = %+v", idx)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("  hola \n mundo  ", 50); got != "hola mundo" {
		t.Errorf("Excerpt() = %q", got)
	}
	if got := Excerpt("abcdefghij", 4); got != "abcd…" {
		t.Errorf("Excerpt() = %q", got)
	}
}

func TestUniqueTerms(t *testing.T) {
	got := UniqueTerms("Go es genial", "go, Echo y templ")
	want := "go es genial echo templ"
	if strings.Join(got, " ") != want {
		t.Errorf("UniqueTerms() = %v, want %s", got, want)
	}
}
