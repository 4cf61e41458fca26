// Package site holds the copy and links rendered into every page: the blog's
// title and description, per-section metadata, and the social profiles shown
// in the footer.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Info describes the site as a whole.
type Info struct {
	Title                 string
	Description           string
	Email                 string
	NumPostsOnHomepage    int
	NumProjectsOnHomepage int
}

// Metadata is the title and description of a top-level section.
type Metadata struct {
	Title       string
	Description string
}

// Social is a link to a profile on another site.
type Social struct {
	Name string
	Href string
}

// Host returns the host part of the link, or "" if Href does not parse.
func (s Social) Host() string {
	u, err := url.Parse(s.Href)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// Socials is an ordered list of profile links. Order is display order.
type Socials []Social

var (
	Site = Info{
		Title:                 "Parango Blog",
		Description:           "En Parango Blog, registro mis aprendizajes y pruebas de nuevas herramientas y códigos, compartiendo mi progreso en el mundo del desarrollo.",
		Email:                 "pabloarangobte@gmail.com",
		NumPostsOnHomepage:    5,
		NumProjectsOnHomepage: 3,
	}

	Home = Metadata{
		Title:       "Inicio",
		Description: "Una visión general de mi viaje en desarrollo, con herramientas, código, y progreso documentado.",
	}

	Blog = Metadata{
		Title:       "Blog",
		Description: "Una colección de mis aprendizajes sobre herramientas y tecnologías de desarrollo",
	}

	Projects = Metadata{
		Title:       "Proyectos",
		Description: "Una colección de mis proyectos con enlaces a repositorios y demostraciones en vivo.",
	}
)

var socials = Socials{
	{Name: "X (Twitter)", Href: "https://x.com/parangodev"},
	{Name: "GitHub", Href: "https://github.com/parangodev"},
	{Name: "LinkedIn", Href: "https://www.linkedin.com/in/pabloarangodev/"},
}

// SocialLinks returns a copy of the social links in display order.
func SocialLinks() Socials {
	out := make(Socials, len(socials))
	copy(out, socials)
	return out
}

// Validate checks the site records for empty copy, bad links and duplicate
// link targets. All problems are reported in a single joined error.
func Validate() error {
	return validate(Site, []namedPage{
		{"Home", Home},
		{"Blog", Blog},
		{"Projects", Projects},
	}, socials)
}

type namedPage struct {
	name string
	meta Metadata
}

func validate(info Info, pages []namedPage, links Socials) error {
	var errs []error
	required := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", field))
		}
	}

	required("Site.Title", info.Title)
	required("Site.Description", info.Description)
	required("Site.Email", info.Email)
	if info.Email != "" && !strings.Contains(info.Email, "@") {
		errs = append(errs, fmt.Errorf("Site.Email %q is not an address", info.Email))
	}
	if info.NumPostsOnHomepage <= 0 {
		errs = append(errs, fmt.Errorf("Site.NumPostsOnHomepage must be positive, got %d", info.NumPostsOnHomepage))
	}
	if info.NumProjectsOnHomepage <= 0 {
		errs = append(errs, fmt.Errorf("Site.NumProjectsOnHomepage must be positive, got %d", info.NumProjectsOnHomepage))
	}

	for _, p := range pages {
		required(p.name+".Title", p.meta.Title)
		required(p.name+".Description", p.meta.Description)
	}

	seen := make(map[string]int, len(links))
	for i, l := range links {
		required(fmt.Sprintf("Socials[%d].Name", i), l.Name)
		u, err := url.Parse(l.Href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("Socials[%d].Href %q is not an absolute http(s) URL", i, l.Href))
			continue
		}
		key := normalizeHref(u)
		if j, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("Socials[%d] duplicates the URL of Socials[%d]: %s", i, j, l.Href))
			continue
		}
		seen[key] = i
	}
	return errors.Join(errs...)
}

// normalizeHref makes "https://X.com/a/" and "https://x.com/a" compare equal.
func normalizeHref(u *url.URL) string {
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.EscapedPath(), "/")
}
