package transport

import (
	"net/url"
	"strings"
)

// buildURL composes server + endpoint + query exactly per spec.md §6.1:
// if endpoint already ends in "?" or already carries a query
// component, the query parameters are appended with "&"; otherwise
// with "?". Query values are URL-form-encoded.
func buildURL(server, endpoint string, query url.Values) string {
	full := server + endpoint
	if len(query) == 0 {
		return full
	}

	sep := "?"
	if strings.HasSuffix(endpoint, "?") {
		sep = "&"
	} else if u, err := url.Parse(endpoint); err == nil && u.RawQuery != "" {
		sep = "&"
	}

	return full + sep + query.Encode()
}
