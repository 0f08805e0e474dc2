package enrich

import (
	stdhtml "html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Strategy turns a fetched document into article text. An empty result means
// the strategy found nothing.
type Strategy interface {
	Name() string
	Extract(doc, pageURL string) string
}

// DefaultStrategies returns the chain in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		Readability{policy: bluemonday.StrictPolicy()},
		Paragraphs{},
		RawText{},
	}
}

type Readability struct {
	policy *bluemonday.Policy
}

func (Readability) Name() string { return "readability" }

func (r Readability) Extract(doc, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}

	parsed, err := readability.FromReader(strings.NewReader(doc), u)
	if err != nil {
		return ""
	}

	text := parsed.TextContent
	if strings.TrimSpace(text) == "" && parsed.Content != "" {
		policy := r.policy
		if policy == nil {
			policy = bluemonday.StrictPolicy()
		}
		text = stdhtml.UnescapeString(policy.Sanitize(parsed.Content))
	}
	return collapse(text)
}

var paragraphScopes = []string{
	"article p",
	"[itemprop='articleBody'] p",
	"main p",
	".article-body p, .story-body p, .entry-content p, .post-content p",
	"p",
}

// Paragraphs joins the paragraphs of the first content scope that has any.
type Paragraphs struct{}

func (Paragraphs) Name() string { return "paragraphs" }

func (Paragraphs) Extract(doc, _ string) string {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	d.Find("script, style, noscript, nav, footer, aside").Remove()

	for _, scope := range paragraphScopes {
		var parts []string
		d.Find(scope).Each(func(_ int, s *goquery.Selection) {
			if p := collapse(s.Text()); len(p) >= 40 {
				parts = append(parts, p)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n")
		}
	}
	return ""
}

type RawText struct{}

func (RawText) Name() string { return "raw" }

func (RawText) Extract(doc, _ string) string {
	text, err := rawText(doc)
	if err != nil {
		return ""
	}
	return text
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
