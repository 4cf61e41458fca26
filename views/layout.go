package views

import (
	"github.com/parangodev/parango"
)

var nav = []struct {
	href, label string
}{
	{"/", "Inicio"},
	{"/blog/", "Blog"},
	{"/projects/", "Proyectos"},
}

// layout renders the document shell around body.
func layout(p parango.Page, body func(h *writer)) func(h *writer) {
	return func(h *writer) {
		h.raw("<!doctype html>")
		h.open("html", "lang", "es")
		head(h, p)
		h.open("body", "class", "mx-auto max-w-3xl px-4 font-sans text-ink dark:text-white")
		header(h, p)
		h.open("main", "id", "content", "class", "py-10")
		body(h)
		h.close("main")
		footer(h, p)
		h.close("body")
		h.close("html")
	}
}

func head(h *writer, p parango.Page) {
	m := p.Meta
	h.raw(`<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	h.elem("title", m.Title)
	h.open("meta", "name", "description", "content", m.Description)
	h.open("link", "rel", "canonical", "href", m.URL)
	h.open("meta", "property", "og:title", "content", m.Title)
	h.open("meta", "property", "og:description", "content", m.Description)
	h.open("meta", "property", "og:url", "content", m.URL)
	h.open("meta", "property", "og:type", "content", m.OGType)
	h.open("meta", "property", "og:site_name", "content", p.SiteTitle)
	h.open("meta", "property", "og:locale", "content", "es_ES")
	h.open("meta", "name", "twitter:card", "content", "summary")
	h.open("link", "rel", "icon", "type", "image/svg+xml", "href", "/favicon.svg")
	h.open("link", "rel", "alternate", "type", "application/rss+xml", "title", p.SiteTitle, "href", "/rss.xml")
	if p.HasSitemap {
		h.open("link", "rel", "sitemap", "href", "/sitemap-index.xml")
	}
	for _, s := range p.Stylesheets {
		h.open("link", "rel", "stylesheet", "href", s)
	}
	if p.SyntaxCSS != "" {
		h.open("link", "rel", "stylesheet", "href", p.SyntaxCSS)
	}
	if m.JSONLD != "" {
		// JSON-LD comes from encoding/json, which escapes <, > and &.
		h.raw(`<script type="application/ld+json">`)
		h.raw(m.JSONLD)
		h.raw("</script>")
	}
	h.component(p.Scripts)
	h.raw("</head>")
}

func header(h *writer, p parango.Page) {
	h.open("header", "class", "flex items-center justify-between py-6")
	h.link("/", p.SiteTitle, "class", "text-lg font-bold")
	h.open("nav", "class", "flex gap-4 text-sm")
	for _, n := range nav {
		active := IsActive(p.Path, n.href)
		current := ""
		if active {
			current = "page"
		}
		h.link(n.href, n.label, "class", NavClass(active), "aria-current", current)
	}
	if p.SearchEnabled {
		active := IsActive(p.Path, "/search/")
		current := ""
		if active {
			current = "page"
		}
		h.link("/search/", "Buscar", "class", NavClass(active), "aria-current", current)
	}
	h.close("nav")
	h.close("header")
}

func footer(h *writer, p parango.Page) {
	h.open("footer", "class", "border-t py-6 text-sm")
	h.raw("&copy; ")
	h.num(p.Year)
	h.raw(" ")
	h.text(p.SiteTitle)
	if p.Email != "" {
		h.raw(" · ")
		h.link("mailto:"+p.Email, p.Email)
	}
	if len(p.Socials) > 0 {
		h.open("ul", "class", "mt-2 flex gap-3")
		for _, s := range p.Socials {
			h.open("li")
			h.link(s.Href, s.Name, "rel", "me noopener", "target", "_blank")
			h.close("li")
		}
		h.close("ul")
	}
	h.close("footer")
}
