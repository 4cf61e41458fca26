package parango

import (
	"encoding/json"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/site"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// absURL resolves a site-relative path against the canonical site URL,
// keeping the path exactly as given.
func (a *App) absURL(p string) string {
	return strings.TrimRight(a.Config.Site, "/") + p
}

// TagURL returns the listing URL of a tag within a collection.
func TagURL(coll content.Collection, tag string) string {
	return "/" + string(coll) + "/tags/" + url.PathEscape(tag) + "/"
}

// RelatedEntries finds up to n entries sharing at least one tag with
// current, ordered by the number of shared tags and then by recency.
func RelatedEntries(current content.Entry, entries []content.Entry, n int) []content.Entry {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := normalizeTag(t); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	if len(tagSet) == 0 || n <= 0 {
		return nil
	}
	type scored struct {
		entry  content.Entry
		shared int
	}
	var matches []scored
	for _, e := range entries {
		if e.Slug == current.Slug {
			continue
		}
		shared := 0
		for _, t := range e.Tags {
			if _, ok := tagSet[normalizeTag(t)]; ok {
				shared++
			}
		}
		if shared > 0 {
			matches = append(matches, scored{e, shared})
		}
	}
	// entries arrive newest first; keep that order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].shared > matches[j].shared
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	related := make([]content.Entry, len(matches))
	for i, m := range matches {
		related[i] = m.entry
	}
	return related
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func publisher() map[string]any {
	return map[string]any{
		"@type": "Organization",
		"name":  site.Site.Title,
		"email": site.Site.Email,
	}
}

func sameAs() []string {
	links := site.SocialLinks()
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Href
	}
	return out
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema.
func WebsiteJsonLD(cfg Config) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        site.Site.Title,
		"url":         BuildURL(cfg.Site),
		"description": site.Site.Description,
		"inLanguage":  "es",
		"publisher":   publisher(),
		"sameAs":      sameAs(),
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(e content.Entry, cfg Config) string {
	postURL := BuildURL(cfg.Site, string(e.Collection), e.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      e.Title,
		"description":   e.Description,
		"datePublished": e.DateString(),
		"url":           postURL,
		"inLanguage":    "es",
		"timeRequired":  "PT" + strconv.Itoa(e.ReadingTime) + "M",
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
		"publisher": publisher(),
	}
	if len(e.Tags) > 0 {
		data["keywords"] = strings.Join(e.Tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ProjectJsonLD returns a JSON-LD string for a project, linking its
// repository and live demo when present.
func ProjectJsonLD(e content.Entry, cfg Config) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "CreativeWork",
		"name":        e.Title,
		"description": e.Description,
		"dateCreated": e.DateString(),
		"url":         BuildURL(cfg.Site, string(e.Collection), e.Slug),
		"creator":     publisher(),
	}
	if e.RepoURL != "" {
		data["@type"] = "SoftwareSourceCode"
		data["codeRepository"] = e.RepoURL
	}
	if e.DemoURL != "" {
		data["sameAs"] = e.DemoURL
	}
	if len(e.Tags) > 0 {
		data["keywords"] = strings.Join(e.Tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
