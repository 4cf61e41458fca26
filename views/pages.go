package views

import (
	"github.com/a-h/templ"

	"github.com/parangodev/parango"
	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/markdown"
)

// Home renders the landing page: intro, latest posts and latest projects.
func Home(d parango.HomeData) templ.Component {
	return component(layout(d.Page, func(h *writer) {
		h.open("section", "class", "mb-12")
		h.elem("h1", d.SiteTitle, "class", "text-3xl font-bold")
		h.elem("p", d.Intro.Description, "class", "mt-3")
		h.close("section")

		h.open("section", "class", "mb-12")
		h.elem("h2", "Últimas entradas", "class", "text-xl font-semibold")
		entryList(h, d.Posts)
		h.link("/blog/", "Ver todas las entradas", "class", "text-sm underline")
		h.close("section")

		h.open("section")
		h.elem("h2", "Proyectos", "class", "text-xl font-semibold")
		entryList(h, d.Projects)
		h.link("/projects/", "Ver todos los proyectos", "class", "text-sm underline")
		h.close("section")
	}))
}

func entryList(h *writer, entries []content.Entry) {
	if len(entries) == 0 {
		h.elem("p", "Nada publicado todavía.", "class", "my-4 text-sm")
		return
	}
	h.open("ul", "class", "my-4 space-y-3")
	for _, e := range entries {
		h.open("li", "class", "flex flex-col sm:flex-row sm:gap-4")
		h.elem("time", FormatDate(e.Date), "datetime", e.DateString(), "class", "shrink-0 text-sm tabular-nums")
		h.open("div")
		h.link(e.Link(), e.Title, "class", "font-medium hover:underline")
		if e.Description != "" {
			h.elem("p", e.Description, "class", "text-sm")
		}
		h.close("div")
		h.close("li")
	}
	h.close("ul")
}

// List renders a collection index grouped by year, with the tag cloud.
func List(d parango.ListData) templ.Component {
	return component(layout(d.Page, func(h *writer) {
		h.elem("h1", d.Heading.Title, "class", "text-3xl font-bold")
		h.elem("p", d.Heading.Description, "class", "mt-3")

		if len(d.Tags) > 0 {
			h.open("ul", "class", "my-6 flex flex-wrap gap-2", "aria-label", "Etiquetas")
			for _, t := range d.Tags {
				h.open("li")
				h.link(parango.TagURL(d.Collection, t), t, "class", TagClass(t == d.ActiveTag))
				h.close("li")
			}
			h.close("ul")
		}
		if d.ActiveTag != "" {
			h.open("p", "class", "mb-6 text-sm")
			h.text("Mostrando entradas con la etiqueta «" + d.ActiveTag + "». ")
			h.link("/"+string(d.Collection)+"/", "Ver todas", "class", "underline")
			h.close("p")
		}

		for _, y := range d.Years {
			h.open("section", "class", "mb-8")
			h.open("h2", "class", "text-xl font-semibold")
			h.num(y.Year)
			h.close("h2")
			entryList(h, y.Entries)
			h.close("section")
		}
		if len(d.Years) == 0 {
			entryList(h, nil)
		}
	}))
}

// Entry renders a single post or project.
func Entry(d parango.EntryData) templ.Component {
	e := d.Entry
	return component(layout(d.Page, func(h *writer) {
		h.open("article", "class", "prose dark:prose-invert max-w-none")
		h.elem("h1", e.Title)
		h.open("p", "class", "text-sm")
		h.elem("time", FormatDate(e.Date), "datetime", e.DateString())
		h.raw(" · ")
		h.text(ReadingTime(e.ReadingTime))
		h.close("p")

		if e.DemoURL != "" || e.RepoURL != "" {
			h.open("p", "class", "flex gap-4")
			if e.DemoURL != "" {
				h.link(e.DemoURL, "Demo", "rel", "noopener", "target", "_blank")
			}
			if e.RepoURL != "" {
				h.link(e.RepoURL, "Repositorio", "rel", "noopener", "target", "_blank")
			}
			h.close("p")
		}

		h.component(markdown.Markdown(e.HTML))

		if len(e.Tags) > 0 {
			h.open("ul", "class", "not-prose mt-8 flex flex-wrap gap-2")
			for _, t := range e.Tags {
				h.open("li")
				h.link(parango.TagURL(e.Collection, t), t, "class", TagClass(false))
				h.close("li")
			}
			h.close("ul")
		}
		h.close("article")

		if d.Prev != nil || d.Next != nil {
			h.open("nav", "class", "mt-10 flex justify-between gap-4 text-sm", "aria-label", "Entradas")
			if d.Next != nil {
				h.link(d.Next.Link(), "← "+d.Next.Title)
			} else {
				h.raw("<span></span>")
			}
			if d.Prev != nil {
				h.link(d.Prev.Link(), d.Prev.Title+" →")
			}
			h.close("nav")
		}

		if len(d.Related) > 0 {
			h.open("aside", "class", "mt-10")
			h.elem("h2", "Relacionado", "class", "text-lg font-semibold")
			entryList(h, d.Related)
			h.close("aside")
		}
	}))
}

// Search renders the search form and, in server mode, its results.
func Search(d parango.SearchData) templ.Component {
	return component(layout(d.Page, func(h *writer) {
		h.elem("h1", "Buscar", "class", "text-3xl font-bold")
		h.open("form", "id", "search-form", "method", "get", "action", "/search/", "role", "search", "class", "my-6 flex gap-2")
		h.open("input", "type", "search", "name", "q", "value", d.Query, "aria-label", "Buscar", "class", "flex-1 rounded border px-3 py-2")
		h.elem("button", "Buscar", "type", "submit", "class", "rounded border px-3 py-2")
		h.close("form")

		h.open("ul", "id", "search-results", "class", "space-y-4")
		for _, r := range d.Results {
			h.open("li")
			h.link(r.URL, r.Title, "class", "font-medium hover:underline")
			// Excerpts are escaped by the index; only <mark> is markup.
			h.raw("<p class=\"text-sm\">" + r.Excerpt + "</p>")
			h.close("li")
		}
		if d.Query != "" && len(d.Results) == 0 && d.ScriptURL == "" {
			h.elem("li", "Sin resultados")
		}
		h.close("ul")

		if d.ScriptURL != "" {
			h.open("script", "src", d.ScriptURL, "data-index", d.IndexURL)
			h.close("script")
		}
	}))
}

// NotFound renders the 404 page.
func NotFound(p parango.Page) templ.Component {
	return component(layout(p, func(h *writer) {
		h.elem("h1", "Página no encontrada", "class", "text-3xl font-bold")
		h.elem("p", "La página que buscas no existe o fue movida.", "class", "mt-3")
		h.link("/", "Volver al inicio", "class", "mt-6 inline-block underline")
	}))
}

// ServerError renders the 500 page.
func ServerError(p parango.Page) templ.Component {
	return component(layout(p, func(h *writer) {
		h.elem("h1", "Algo salió mal", "class", "text-3xl font-bold")
		h.elem("p", "Inténtalo de nuevo en unos minutos.", "class", "mt-3")
	}))
}
