package extract

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/devraulu/newsreap/pkg/article"
)

const StructuralTier = "structural"

var (
	headingSelector = "h1, h2, h3, h4, h5, h6, [role='heading']"
	blockSelector   = "article, section, li, div"

	inlineDateRe = regexp.MustCompile(`(?i)\b((\d+|an?)\s+(second|minute|min|hour|day|week|month|year)s?\s+ago|yesterday|(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},\s+\d{4}|\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4})\b`)
	videoHostRe  = regexp.MustCompile(`(^|\.)(youtube\.com|youtu\.be|vimeo\.com|dailymotion\.com)$`)
)

type strategy struct {
	name string
	find func(doc *goquery.Document) *goquery.Selection
}

// Page is what one result page yields.
type Page struct {
	Records []article.Record
	NextURL string
	Tier    string
}

type Extractor struct {
	sel        Selectors
	strategies []strategy
	now        func() time.Time
}

func New(sel Selectors) *Extractor {
	e := &Extractor{sel: sel, now: time.Now}

	for _, css := range sel.Containers {
		css := css
		e.strategies = append(e.strategies, strategy{
			name: css,
			find: func(doc *goquery.Document) *goquery.Selection { return doc.Find(css) },
		})
	}
	e.strategies = append(e.strategies, strategy{name: StructuralTier, find: structuralBlocks})

	return e
}

// structuralBlocks finds the innermost blocks holding both a hyperlink and a
// heading-like element.
func structuralBlocks(doc *goquery.Document) *goquery.Selection {
	candidates := doc.Find(blockSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("a[href]").Length() > 0 && s.Find(headingSelector).Length() > 0
	})

	return candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.FindSelection(candidates).Length() == 0
	})
}

func (e *Extractor) Extract(html, pageURL string) []article.Record {
	return e.ExtractPage(html, pageURL).Records
}

// ExtractPage parses one result page. The first container strategy with at
// least one match is used for the whole page.
func (e *Extractor) ExtractPage(html, pageURL string) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Warn("failed to parse result page", slog.String("url", pageURL), slog.Any("err", err))
		return Page{}
	}

	base := baseURL(doc, pageURL)

	var page Page
	for _, st := range e.strategies {
		containers := st.find(doc)
		if containers.Length() == 0 {
			slog.Debug("selector tier found nothing", slog.String("tier", st.name))
			continue
		}

		page.Tier = st.name
		page.Records = e.records(containers, base)
		slog.Debug("selector tier matched",
			slog.String("tier", st.name),
			slog.Int("containers", containers.Length()),
			slog.Int("records", len(page.Records)),
		)
		break
	}

	if page.Tier == "" {
		slog.Warn("no results extracted", slog.String("url", pageURL))
	}

	page.NextURL = e.nextURL(doc, base)
	return page
}

func (e *Extractor) records(containers *goquery.Selection, base *url.URL) []article.Record {
	now := e.now()

	var featured, regular []article.Record
	containers.Each(func(i int, c *goquery.Selection) {
		rec, ok := e.record(c, base)
		if !ok {
			slog.Debug("skipping malformed result", slog.Int("index", i))
			return
		}
		rec.DiscoveredAt = now

		if rec.Featured {
			featured = append(featured, rec)
		} else {
			regular = append(regular, rec)
		}
	})

	out := append(featured, regular...)
	for i := range out {
		out[i].Position = i
	}
	return out
}

func (e *Extractor) record(c *goquery.Selection, base *url.URL) (article.Record, bool) {
	link := e.link(c, base)
	title := firstText(c, e.sel.Title)
	if link == "" {
		return article.Record{}, false
	}

	displayed := firstText(c, e.sel.DisplayedURL)
	if title == "" {
		title = displayed
	}
	if title == "" {
		title = link
	}

	date := firstText(c, e.sel.Date)
	if date == "" {
		date = inlineDateRe.FindString(cleanText(c.Text()))
	}

	source := firstText(c, e.sel.Source)
	if source == "" {
		source = article.SourceFromURL(link)
	}

	return article.Record{
		Title:        title,
		URL:          link,
		DisplayedURL: displayed,
		Snippet:      firstText(c, e.sel.Snippet),
		Date:         date,
		Source:       source,
		IsAd:         isAd(c, e.sel.Ad),
		Featured:     matches(c, e.sel.Featured),
		IsVideo:      matches(c, e.sel.Video) || isVideoURL(link),
		IsNews:       matches(c, e.sel.News),
	}, true
}

func (e *Extractor) link(c *goquery.Selection, base *url.URL) string {
	if c.Is("a[href]") {
		href, _ := c.Attr("href")
		if u := cleanURL(href, base); u != "" {
			return u
		}
	}

	for _, css := range e.sel.Link {
		var found string
		c.Find(css).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			found = cleanURL(href, base)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func (e *Extractor) nextURL(doc *goquery.Document, base *url.URL) string {
	for _, css := range e.sel.Next {
		href, ok := doc.Find(css).First().Attr("href")
		if !ok {
			continue
		}
		if u := resolve(href, base); u != "" {
			return u
		}
	}
	return ""
}

func baseURL(doc *goquery.Document, pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		base = nil
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if base == nil {
			if b, err := url.Parse(href); err == nil && b.IsAbs() {
				return b
			}
		} else if b, err := base.Parse(href); err == nil {
			return b
		}
	}
	return base
}

func firstText(c *goquery.Selection, selectors []string) string {
	for _, css := range selectors {
		var text string
		c.Find(css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = cleanText(s.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

func matches(c *goquery.Selection, selectors []string) bool {
	for _, css := range selectors {
		if c.Is(css) || c.Find(css).Length() > 0 || c.Closest(css).Length() > 0 {
			return true
		}
	}
	return false
}

func isAd(c *goquery.Selection, selectors []string) bool {
	if matches(c, selectors) {
		return true
	}
	text := cleanText(c.Text())
	return strings.HasPrefix(text, "Sponsored") || strings.HasPrefix(text, "Ad ·")
}

func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return videoHostRe.MatchString(strings.ToLower(u.Hostname()))
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
