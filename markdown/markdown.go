// Package markdown renders entry bodies to HTML with goldmark and exposes the
// result as templ components.
package markdown

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/a-h/templ"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// CSSVariablesTheme emits token classes bound to CSS custom properties so the
// stylesheet, not the renderer, decides the colors.
const CSSVariablesTheme = "css-variables"

// Options configures a Renderer.
type Options struct {
	Theme     string // highlighting theme (default CSSVariablesTheme)
	HardWraps bool
}

// Result is the output of rendering one document.
type Result struct {
	HTML string
	// Images lists the relative image references found in the document,
	// in document order, before rewriting.
	Images []string
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md    goldmark.Markdown
	theme string
}

var (
	imageBaseKey = parser.NewContextKey()
	imagesKey    = parser.NewContextKey()
)

// New builds a Renderer with GFM, footnotes, typographic punctuation, heading
// IDs and class-based syntax highlighting.
func New(opts Options) *Renderer {
	theme := opts.Theme
	if theme == "" {
		theme = CSSVariablesTheme
	}
	style := theme
	if theme == CSSVariablesTheme {
		style = "github"
	}

	var rendererOpts []renderer.Option
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(imageRewriter{}, 100),
			),
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md, theme: theme}
}

// Theme returns the configured highlighting theme.
func (r *Renderer) Theme() string {
	return r.theme
}

// Render converts src to HTML. Relative image destinations are rewritten to
// live under imageBase (e.g. "/_images/blog/my-post"); an empty imageBase
// leaves them untouched.
func (r *Renderer) Render(src []byte, imageBase string) (Result, error) {
	ctx := parser.NewContext()
	ctx.Set(imageBaseKey, imageBase)

	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	images, _ := ctx.Get(imagesKey).([]string)
	return Result{HTML: buf.String(), Images: images}, nil
}

// Markdown returns a templ.Component that writes already rendered HTML.
func Markdown(renderedHTML string) templ.Component {
	return templ.Raw(renderedHTML)
}

// imageRewriter points relative image destinations at the optimized copies.
type imageRewriter struct{}

func (imageRewriter) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	base, _ := pc.Get(imageBaseKey).(string)
	var found []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if !IsRelativeImage(dest) {
			return ast.WalkContinue, nil
		}
		clean := path.Clean(strings.TrimPrefix(dest, "./"))
		found = append(found, clean)
		if base != "" {
			img.Destination = []byte(OptimizedPath(base, clean))
		}
		return ast.WalkContinue, nil
	})
	pc.Set(imagesKey, found)
}

// IsRelativeImage reports whether dest points at a file next to the entry.
func IsRelativeImage(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "#") {
		return false
	}
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "data:") || strings.HasPrefix(dest, "//") {
		return false
	}
	return !strings.HasPrefix(path.Clean(dest), "..")
}

// Optimizable reports whether the image decoder can re-encode rel.
func Optimizable(rel string) bool {
	switch strings.ToLower(path.Ext(rel)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// OptimizedPath maps a relative image reference to its served URL: a JPEG
// for optimizable formats, the original name for anything else.
func OptimizedPath(base, rel string) string {
	base = strings.TrimSuffix(base, "/") + "/"
	if !Optimizable(rel) {
		return base + rel
	}
	return base + strings.TrimSuffix(rel, path.Ext(rel)) + ".jpg"
}
