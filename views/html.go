package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// writer accumulates markup and remembers the first write error, so page
// functions can emit a whole tree and check once.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *writer) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text writes s HTML-escaped.
func (h *writer) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *writer) num(n int) {
	h.raw(strconv.Itoa(n))
}

// open writes a start tag. attrs alternate name and value; values are
// escaped and empty values are omitted.
func (h *writer) open(tag string, attrs ...string) {
	h.raw("<" + tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		h.raw(" " + attrs[i] + `="`)
		h.text(attrs[i+1])
		h.raw(`"`)
	}
	h.raw(">")
}

func (h *writer) close(tag string) {
	h.raw("</" + tag + ">")
}

// elem writes a complete element with escaped text content.
func (h *writer) elem(tag, content string, attrs ...string) {
	h.open(tag, attrs...)
	h.text(content)
	h.close(tag)
}

func (h *writer) link(href, label string, attrs ...string) {
	h.elem("a", label, append([]string{"href", href}, attrs...)...)
}

func (h *writer) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// component wraps a page body writer as a templ.Component.
func component(fn func(h *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}
