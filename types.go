package parango

import (
	"time"

	"github.com/a-h/templ"

	"github.com/parangodev/parango/analytics"
	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/search"
	"github.com/parangodev/parango/site"
)

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}

// Page is the data shared by every rendered page.
type Page struct {
	Meta          PageMeta
	Path          string // request path, for active navigation links
	SiteTitle     string
	Email         string
	Socials       site.Socials
	Stylesheets   []string
	SyntaxCSS     string          // URL of the code highlighting stylesheet, empty when disabled
	Scripts       templ.Component // third-party script loader, nil when disabled
	SearchEnabled bool
	HasSitemap    bool
	Year          int
}

// HomeData is rendered at /.
type HomeData struct {
	Page
	Intro    site.Metadata
	Posts    []content.Entry
	Projects []content.Entry
}

// ListData is rendered at /blog/ and /projects/, optionally filtered by tag.
type ListData struct {
	Page
	Collection content.Collection
	Heading    site.Metadata
	Entries    []content.Entry
	Years      []content.YearGroup
	Tags       []string
	ActiveTag  string
}

// EntryData is rendered for a single post or project.
type EntryData struct {
	Page
	Entry   content.Entry
	Prev    *content.Entry // newer
	Next    *content.Entry // older
	Related []content.Entry
}

// SearchData is rendered at /search/.
type SearchData struct {
	Page
	Query     string
	Results   []search.Result
	// IndexURL is set on static sites, where search runs in the browser
	// against the exported index.
	IndexURL  string
	ScriptURL string
}

// AdminLoginData is rendered at /admin/ for anonymous visitors.
type AdminLoginData struct {
	Page
	ShowError bool
	CSRFToken string
}

// AdminData is the admin dashboard.
type AdminData struct {
	Page
	CSRFToken    string
	Message      string
	Counts       map[content.Collection]int
	IndexedAt    time.Time
	Integrations []string
	Stats        *analytics.Stats // nil when analytics is disabled
}

// ViewFuncs holds the templ components the App calls when rendering pages.
// Every field must be set; views.Default provides a complete set.
type ViewFuncs struct {
	Home           func(HomeData) templ.Component
	List           func(ListData) templ.Component
	Entry          func(EntryData) templ.Component
	Search         func(SearchData) templ.Component
	AdminLogin     func(AdminLoginData) templ.Component
	AdminDashboard func(AdminData) templ.Component
	NotFound       func(Page) templ.Component
	ServerError    func(Page) templ.Component
}
