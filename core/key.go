package core

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestKey returns the normalized cache identity for a request:
// the method plus the full URL with the fragment stripped.
// Scheme and host are lowercased so that the same resource requested
// with different casing maps to one entry. Only GET entries are ever
// stored, but the method is kept in the key so that identities stay
// unambiguous if that restriction is relaxed.
func RequestKey(r *http.Request) string {
	return Key(r.Method, r.URL)
}

// Key builds the cache identity from a method and an already-resolved URL.
func Key(method string, u *url.URL) string {
	return method + ":" + normalizeURL(u)
}

func normalizeURL(u *url.URL) string {
	normalized := *u
	normalized.Fragment = ""
	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)
	if normalized.Path == "" {
		normalized.Path = "/"
	}
	return normalized.String()
}
