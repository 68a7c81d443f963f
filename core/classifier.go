package core

import (
	"net/http"
	"strings"
)

// Strategy is the caching policy selected for a request.
type Strategy int

const (
	// Unhandled requests bypass the cache entirely.
	Unhandled Strategy = iota
	// CacheFirst serves from cache when present, hitting the network only on a miss.
	CacheFirst
	// NetworkFirst always attempts the network, falling back to cache on failure.
	NetworkFirst
	// StaleWhileRevalidate serves any cached value immediately while
	// refreshing the cache from the network in the background.
	StaleWhileRevalidate
)

func (s Strategy) String() string {
	switch s {
	case CacheFirst:
		return "cache-first"
	case NetworkFirst:
		return "network-first"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	default:
		return "unhandled"
	}
}

// Classifier maps requests to strategies based on URL substring markers.
// Classification is total and pure: every request maps to exactly one
// strategy, and the same input always yields the same output.
type Classifier struct {
	// StaticMarkers select cache-first handling (asset paths, font/CDN hosts).
	StaticMarkers []string
	// APIMarkers select network-first handling (API paths, third-party hosts).
	APIMarkers []string
}

// Classify decides the strategy for a request. Marker sets are checked in
// fixed priority order, first match wins; anything left over is treated as a
// navigable page. Only GET requests are ever cached.
func (c Classifier) Classify(method, rawURL string) Strategy {
	if method != http.MethodGet {
		return Unhandled
	}
	if containsAny(rawURL, c.StaticMarkers) {
		return CacheFirst
	}
	if containsAny(rawURL, c.APIMarkers) {
		return NetworkFirst
	}
	return StaleWhileRevalidate
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
