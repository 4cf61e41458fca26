package parango

import (
	"encoding/xml"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/site"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          rssLink   `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type rssLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

func (a *App) buildRSS(posts []content.Entry) rssXML {
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := a.absURL(p.Link())
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Description,
			PubDate:     p.Date.Format(time.RFC1123Z),
			GUID:        postURL,
			Categories:  p.Tags,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       site.Site.Title,
			Link:        a.absURL("/"),
			Description: site.Site.Description,
			Language:    "es",
			Self:        rssLink{Href: a.absURL("/rss.xml"), Rel: "self", Type: "application/rss+xml"},
			Items:       items,
		},
	}
	if len(posts) > 0 {
		feed.Channel.LastBuildDate = posts[0].Date.Format(time.RFC1123Z)
	}
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []content.Entry) error {
	return writeXML(c, "application/rss+xml; charset=utf-8", a.buildRSS(posts))
}
