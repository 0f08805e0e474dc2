package extract

// Selectors lists, per concern, CSS selectors in priority order. The markup of
// result pages changes without notice, so every list is meant to be extended
// rather than edited in place.
type Selectors struct {
	Containers   []string
	Title        []string
	Link         []string
	Snippet      []string
	Date         []string
	Source       []string
	DisplayedURL []string
	Next         []string

	Ad       []string
	Featured []string
	Video    []string
	News     []string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Containers: []string{
			"div.SoaBEf",
			"div.g",
			"div.Gx5Zad",
			"article",
		},
		Title: []string{
			"div[role='heading']",
			"h3",
			"h2",
			"h4",
			"h1",
			"a",
		},
		Link: []string{
			"a.WlydOe[href]",
			"a[jsname][href]",
			"h3 a[href]",
			"a[href]",
		},
		Snippet: []string{
			"div.GI74Re",
			"div.VwiC3b",
			"div.BNeawe.s3v9rd",
			"span.st",
			"p",
		},
		Date: []string{
			"div.OSrXXb span",
			"span.LfVVr",
			"span.r0bn4c",
			"time",
			"span.f",
		},
		Source: []string{
			"div.MgUUmf span",
			"div.NUnG9d span",
			"span.VuuXrf",
		},
		DisplayedURL: []string{
			"cite",
			"div.UPmit",
		},
		Next: []string{
			"a#pnnext",
			"a[aria-label='Next page']",
			"a[rel='next']",
			"a.nBDE1b",
		},
		Ad: []string{
			"[data-text-ad]",
			"#tads",
			".uEierd",
		},
		Featured: []string{
			".xpdopen",
			".c2xzTb",
			".kp-wholepage",
			"[data-featured]",
		},
		Video: []string{
			"g-video",
			"video",
			"[data-vid]",
			"[data-video-url]",
		},
		News: []string{
			"g-card",
			".SoaBEf",
			"[data-news-doc-id]",
			"[data-news-cluster-id]",
		},
	}
}

// Override replaces every non-empty list of o into s.
func (s Selectors) Override(o Selectors) Selectors {
	pick := func(dst, src []string) []string {
		if len(src) > 0 {
			return src
		}
		return dst
	}

	s.Containers = pick(s.Containers, o.Containers)
	s.Title = pick(s.Title, o.Title)
	s.Link = pick(s.Link, o.Link)
	s.Snippet = pick(s.Snippet, o.Snippet)
	s.Date = pick(s.Date, o.Date)
	s.Source = pick(s.Source, o.Source)
	s.DisplayedURL = pick(s.DisplayedURL, o.DisplayedURL)
	s.Next = pick(s.Next, o.Next)
	s.Ad = pick(s.Ad, o.Ad)
	s.Featured = pick(s.Featured, o.Featured)
	s.Video = pick(s.Video, o.Video)
	s.News = pick(s.News, o.News)
	return s
}
