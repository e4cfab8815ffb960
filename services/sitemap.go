package services

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/rpupo63/digital-mix-backend/models"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap renders the sitemap of a site: its home page, the blog listing and one entry per
// published post
func Sitemap(siteURL string, posts []models.BlogPost, now time.Time) ([]byte, error) {
	base := strings.TrimRight(siteURL, "/")
	today := now.UTC().Format(time.DateOnly)

	set := urlSet{
		Xmlns: sitemapNamespace,
		URLs: []sitemapURL{
			{Loc: base, LastMod: today, ChangeFreq: "weekly", Priority: 1},
			{Loc: base + "/blogs", LastMod: today, ChangeFreq: "weekly", Priority: 0.8},
		},
	}
	for _, post := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/blogs/" + post.Slug,
			LastMod:    post.UpdatedAt.UTC().Format(time.DateOnly),
			ChangeFreq: "monthly",
			Priority:   0.6,
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
