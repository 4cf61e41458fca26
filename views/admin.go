package views

import (
	"github.com/a-h/templ"

	"github.com/parangodev/parango"
	"github.com/parangodev/parango/analytics"
	"github.com/parangodev/parango/content"
)

// AdminLogin renders the password form.
func AdminLogin(d parango.AdminLoginData) templ.Component {
	return component(layout(d.Page, func(h *writer) {
		h.elem("h1", "Admin", "class", "text-3xl font-bold")
		if d.ShowError {
			h.elem("p", "Contraseña incorrecta.", "role", "alert", "class", "mt-3 text-red-600")
		}
		h.open("form", "method", "post", "action", "/admin/login/", "class", "mt-6 flex gap-2")
		h.open("input", "type", "hidden", "name", "_csrf", "value", d.CSRFToken)
		h.open("input", "type", "password", "name", "password", "autocomplete", "current-password", "aria-label", "Contraseña", "class", "flex-1 rounded border px-3 py-2")
		h.elem("button", "Entrar", "type", "submit", "class", "rounded border px-3 py-2")
		h.close("form")
	}))
}

// AdminDashboard renders the index status and, when collected, analytics.
func AdminDashboard(d parango.AdminData) templ.Component {
	return component(layout(d.Page, func(h *writer) {
		h.open("div", "class", "flex items-center justify-between")
		h.elem("h1", "Admin", "class", "text-3xl font-bold")
		postForm(h, "/admin/logout/", "Salir", d.CSRFToken)
		h.close("div")
		if d.Message != "" {
			h.elem("p", d.Message, "role", "status", "class", "mt-3 rounded border px-3 py-2")
		}

		h.open("section", "class", "mt-8")
		h.elem("h2", "Contenido", "class", "text-xl font-semibold")
		h.open("dl", "class", "mt-3 grid grid-cols-2 gap-2")
		for _, coll := range content.Collections {
			h.elem("dt", string(coll))
			h.open("dd")
			h.num(d.Counts[coll])
			h.close("dd")
		}
		h.elem("dt", "Indexado")
		if d.IndexedAt.IsZero() {
			h.elem("dd", "nunca")
		} else {
			h.elem("dd", d.IndexedAt.Local().Format("2006-01-02 15:04:05"))
		}
		h.elem("dt", "Integraciones")
		h.open("dd")
		for i, name := range d.Integrations {
			if i > 0 {
				h.raw(", ")
			}
			h.text(name)
		}
		h.close("dd")
		h.close("dl")
		postForm(h, "/admin/reindex/", "Reindexar", d.CSRFToken)
		h.close("section")

		if d.Stats != nil {
			stats(h, d.Stats)
		}
	}))
}

func postForm(h *writer, action, label, csrf string) {
	h.open("form", "method", "post", "action", action, "class", "mt-4")
	h.open("input", "type", "hidden", "name", "_csrf", "value", csrf)
	h.elem("button", label, "type", "submit", "class", "rounded border px-3 py-2 text-sm")
	h.close("form")
}

func stats(h *writer, s *analytics.Stats) {
	h.open("section", "class", "mt-10", "id", "analytics", "data-stats", "/admin/analytics/api/stats")
	h.elem("h2", "Analítica ("+s.Period+")", "class", "text-xl font-semibold")
	h.open("dl", "class", "mt-3 grid grid-cols-3 gap-2")
	for _, kv := range []struct {
		label string
		n     int
	}{
		{"Visitantes únicos", s.UniqueVisitors},
		{"Vistas", s.TotalViews},
		{"Bots", s.BotVisits},
	} {
		h.open("div")
		h.elem("dt", kv.label, "class", "text-sm")
		h.open("dd", "class", "text-2xl font-bold")
		h.num(kv.n)
		h.close("dd")
		h.close("div")
	}
	h.close("dl")

	pages := make([]analytics.DimensionStat, len(s.TopPages))
	for i, p := range s.TopPages {
		pages[i] = analytics.DimensionStat{Name: p.Path, Count: p.Views}
	}
	table(h, "Páginas", pages)
	table(h, "Eventos", s.TopEvents)
	table(h, "Navegadores", s.BrowserStats)
	table(h, "Dispositivos", s.DeviceStats)
	table(h, "Referentes", s.ReferrerStats)

	daily := make([]analytics.DimensionStat, len(s.DailyViews))
	for i, v := range s.DailyViews {
		daily[i] = analytics.DimensionStat{Name: v.Date, Count: v.Views}
	}
	table(h, "Por día", daily)
	h.close("section")
}

func table(h *writer, caption string, rows []analytics.DimensionStat) {
	if len(rows) == 0 {
		return
	}
	h.open("table", "class", "mt-6 w-full text-sm")
	h.elem("caption", caption, "class", "text-left font-semibold")
	h.raw("<tbody>")
	for _, r := range rows {
		h.raw("<tr>")
		h.elem("td", r.Name)
		h.open("td", "class", "text-right tabular-nums")
		h.num(r.Count)
		h.close("td")
		h.raw("</tr>")
	}
	h.raw("</tbody>")
	h.close("table")
}
