package fetcher

import (
	"net/http"
	"sort"

	"github.com/IshaanNene/TrendPulse/internal/config"
)

// Identity is the client identity presented to target sites. Spoofing it
// lowers the rejection rate but does not guarantee a page is served.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	Extra          map[string]string
}

// IdentityFromConfig builds an Identity from browser settings.
func IdentityFromConfig(cfg *config.BrowserConfig) Identity {
	extra := make(map[string]string, len(cfg.ExtraHeaders))
	for k, v := range cfg.ExtraHeaders {
		extra[http.CanonicalHeaderKey(k)] = v
	}
	return Identity{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		Referer:        cfg.Referer,
		Extra:          extra,
	}
}

// Header returns every identity header except User-Agent.
func (id Identity) Header() http.Header {
	h := make(http.Header)
	if id.AcceptLanguage != "" {
		h.Set("Accept-Language", id.AcceptLanguage)
	}
	if id.Referer != "" {
		h.Set("Referer", id.Referer)
	}
	for k, v := range id.Extra {
		if k == "User-Agent" {
			continue
		}
		h.Set(k, v)
	}
	return h
}

// HeaderPairs flattens Header into the key/value list rod expects, in a
// stable order.
func (id Identity) HeaderPairs() []string {
	h := id.Header()
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, h.Get(k))
	}
	return pairs
}
