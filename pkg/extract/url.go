package extract

import (
	"net/url"
	"strings"
)

// redirectParams maps the path of a search-engine redirect wrapper to the
// query parameters that may carry the wrapped destination.
var redirectParams = map[string][]string{
	"/url":      {"q", "url"},
	"/link":     {"url", "q"},
	"/aclk":     {"adurl"},
	"/redirect": {"url", "u"},
}

func resolve(ref string, base *url.URL) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	abs := u
	if base != nil {
		abs = base.ResolveReference(u)
	}

	scheme := strings.ToLower(abs.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}

	return abs.String()
}

// Unwrap returns the destination of a known redirect-wrapper URL, or raw
// unchanged when it is not one.
func Unwrap(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	params, ok := redirectParams[u.Path]
	if !ok {
		return raw
	}

	q := u.Query()
	for _, p := range params {
		target := q.Get(p)
		if target == "" {
			continue
		}
		t, err := url.Parse(target)
		if err != nil {
			continue
		}
		if t.Scheme == "http" || t.Scheme == "https" {
			return t.String()
		}
	}

	return raw
}

// cleanURL resolves href against base, unwraps redirects and rejects links
// that point back into the search engine itself.
func cleanURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if unwrapped := Unwrap(href); unwrapped != href {
		return unwrapped
	}

	abs := resolve(href, base)
	if abs == "" {
		return ""
	}

	unwrapped := Unwrap(abs)
	if unwrapped != abs {
		return unwrapped
	}

	if base != nil && base.Host != "" {
		u, err := url.Parse(abs)
		if err == nil && strings.EqualFold(u.Host, base.Host) {
			return ""
		}
	}

	return abs
}
