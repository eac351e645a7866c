package coordinator

import (
	"net/url"
	"strings"
)

// NormalizeKey canonicalizes a request URL into the in-flight pool key so
// that two URLs differing only in query parameter order collapse into one
// request. Unparseable URLs fall back to the raw string.
func NormalizeKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	// Encode sorts query parameters by key.
	parsed.RawQuery = parsed.Query().Encode()

	return parsed.String()
}
