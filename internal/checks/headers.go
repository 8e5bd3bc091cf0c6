package checks

import "net/http"

// baseHeaders is what a desktop browser sends on a top-level navigation.
// User-Agent is always overwritten by the probed identity.
var baseHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip, deflate",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Upgrade-Insecure-Requests": "1",
	"User-Agent":                "Mozilla/5.0",
}

func buildHeaders(userAgent string) http.Header {
	h := make(http.Header, len(baseHeaders))
	for key, value := range baseHeaders {
		h.Set(key, value)
	}
	h.Set("User-Agent", userAgent)
	return h
}
