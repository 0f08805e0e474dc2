package dedup

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

var trackingParams = map[string]bool{
	"gclid":    true,
	"fbclid":   true,
	"yclid":    true,
	"msclkid":  true,
	"mc_cid":   true,
	"mc_eid":   true,
	"igshid":   true,
	"mkt_tok":  true,
	"ref":      true,
	"ref_src":  true,
	"cmpid":    true,
	"ocid":     true,
	"smid":     true,
	"sref":     true,
	"taid":     true,
	"_ga":      true,
	"sa":       true,
	"ved":      true,
	"usg":      true,
	"ei":       true,
}

func isTracking(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "utm") || trackingParams[k]
}

// Normalize produces the dedup key for an article URL: lowercase scheme and
// host, no fragment, no tracking parameters, remaining query sorted.
func Normalize(raw string) (string, error) {
	flags := purell.FlagLowercaseScheme |
		purell.FlagLowercaseHost |
		purell.FlagRemoveDefaultPort |
		purell.FlagRemoveFragment |
		purell.FlagDecodeUnnecessaryEscapes |
		purell.FlagSortQuery |
		purell.FlagRemoveDuplicateSlashes |
		purell.FlagRemoveDotSegments

	normalized, err := purell.NormalizeURLString(strings.TrimSpace(raw), flags)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for key := range q {
		if isTracking(key) {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false

	return u.String(), nil
}
