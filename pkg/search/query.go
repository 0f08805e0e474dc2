package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Builder renders search-engine result page URLs for a query restricted to a
// site and a date window.
type Builder struct {
	BaseURL  string
	News     bool
	Language string
}

func (b Builder) URL(query, site string, w Window, offset int) string {
	q := strings.TrimSpace(query)
	if site != "" {
		q += " site:" + site
	}

	v := url.Values{}
	v.Set("q", q)
	v.Set("tbs", fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s", usDate(w.Start), usDate(w.End)))
	if b.News {
		v.Set("tbm", "nws")
	}
	if b.Language != "" {
		v.Set("hl", b.Language)
	}
	if offset > 0 {
		v.Set("start", strconv.Itoa(offset))
	}

	return b.BaseURL + "?" + v.Encode()
}

func usDate(t time.Time) string {
	return t.Format("1/2/2006")
}
