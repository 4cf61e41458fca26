package views

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition"
	if active {
		base += " bg-ink dark:bg-white text-white dark:text-ink"
	}
	return base
}

// NavClass returns CSS classes for a header link.
func NavClass(active bool) string {
	if active {
		return "font-semibold underline underline-offset-4"
	}
	return "hover:underline underline-offset-4"
}

// IsActive reports whether the nav link href covers the current path.
func IsActive(current, href string) bool {
	if href == "/" {
		return current == "/"
	}
	return strings.HasPrefix(current, href)
}

var months = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// FormatDate renders t as "2 ene 2024".
func FormatDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + months[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// ReadingTime renders minutes as "5 min de lectura".
func ReadingTime(minutes int) string {
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes) + " min de lectura"
}
