package core

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/offcache/offcache/cache"

	"github.com/rs/zerolog/log"
)

// serveCacheFirst handles static assets: a cache hit is served without any
// network traffic or freshness check; a miss goes to the network, and a
// successful same-origin response is stored on the way out.
func (w *Worker) serveCacheFirst(rw http.ResponseWriter, r *http.Request, target *url.URL, key string) {
	ns, nsErr := w.storage.Open(w.StaticName())
	if nsErr == nil {
		if res, ok := w.lookup(ns, key, r); ok {
			w.metrics.CacheHit(CacheFirst.String())
			if err := writeResponse(rw, res, "HIT"); err != nil {
				log.Error().Err(err).Str("key", key).Msg("Error writing to client")
			}
			return
		}
	} else {
		log.Warn().Err(nsErr).Msg("Could not open static namespace")
	}

	w.metrics.CacheMiss(CacheFirst.String())
	res, err := w.fetch(r, target)
	if err != nil {
		// no fallback on this path, the network error is the response
		log.Error().Err(err).Str("key", key).Msg("Could not fetch response from server")
		http.Error(rw, "Error contacting origin", http.StatusBadGateway)
		return
	}
	if nsErr == nil && res.StatusCode == http.StatusOK && w.sameOrigin(target) {
		if snapshot, serr := snapshotResponse(res); serr == nil {
			w.storeAsync(ns, key, snapshot)
		} else {
			log.Warn().Err(serr).Str("key", key).Msg("Could not snapshot response")
		}
	}
	if err := writeResponse(rw, res, "MISS"); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error writing to client")
	}
}

// serveNetworkFirst handles API calls: live data is always preferred, and a
// successful response is cached with an unconditional scheduled deletion at
// now+TTL. The cache is consulted only when the network fails.
func (w *Worker) serveNetworkFirst(rw http.ResponseWriter, r *http.Request, target *url.URL, key string) {
	ns, nsErr := w.storage.Open(w.APIName())
	if nsErr != nil {
		log.Warn().Err(nsErr).Msg("Could not open api namespace")
	}

	res, err := w.fetch(r, target)
	if err == nil {
		if nsErr == nil && res.StatusCode == http.StatusOK {
			if snapshot, serr := snapshotResponse(res); serr == nil {
				w.storeAsync(ns, key, snapshot)
				// soft expiry: the entry disappears at T+TTL regardless
				// of any reads in between
				w.scheduler.AfterFunc(w.apiTTL, func() {
					if derr := ns.Delete(key); derr != nil {
						log.Warn().Err(derr).Str("key", key).Msg("Could not evict api entry")
						return
					}
					w.metrics.Eviction()
					log.Trace().Str("key", key).Msg("Evicted api entry")
				})
			} else {
				log.Warn().Err(serr).Str("key", key).Msg("Could not snapshot response")
			}
		}
		if werr := writeResponse(rw, res, "MISS"); werr != nil {
			log.Error().Err(werr).Str("key", key).Msg("Error writing to client")
		}
		return
	}

	log.Debug().Err(err).Str("key", key).Msg("Network failed, falling back to cache")
	if nsErr == nil {
		if res, ok := w.lookup(ns, key, r); ok {
			w.metrics.CacheHit(NetworkFirst.String())
			if werr := writeResponse(rw, res, "HIT"); werr != nil {
				log.Error().Err(werr).Str("key", key).Msg("Error writing to client")
			}
			return
		}
	}
	w.metrics.CacheMiss(NetworkFirst.String())
	http.Error(rw, "Offline and no cached response available", http.StatusGatewayTimeout)
}

// serveStaleWhileRevalidate handles navigable pages: the cache lookup and the
// network fetch start concurrently, any network result always refreshes the
// cache, and the cached value wins the race for the client when present.
func (w *Worker) serveStaleWhileRevalidate(rw http.ResponseWriter, r *http.Request, target *url.URL, key string) {
	ns, nsErr := w.storage.Open(w.StaticName())
	if nsErr != nil {
		log.Warn().Err(nsErr).Msg("Could not open page namespace")
	}

	type fetchResult struct {
		res *http.Response
		err error
	}
	resultCh := make(chan fetchResult, 1)
	go func() {
		res, err := w.revalidate(r, target)
		if err == nil && nsErr == nil {
			if snapshot, serr := snapshotResponse(res); serr == nil {
				if perr := ns.Put(key, snapshot); perr != nil {
					log.Warn().Err(perr).Str("key", key).Msg("Cache write failed")
				} else {
					log.Trace().Str("key", key).Msg("Revalidated")
				}
			} else {
				log.Warn().Err(serr).Str("key", key).Msg("Could not snapshot response")
			}
		}
		resultCh <- fetchResult{res, err}
	}()

	if nsErr == nil {
		if res, ok := w.lookup(ns, key, r); ok {
			// serve stale immediately, the revalidation continues behind us
			w.metrics.CacheHit(StaleWhileRevalidate.String())
			if err := writeResponse(rw, res, "HIT"); err != nil {
				log.Error().Err(err).Str("key", key).Msg("Error writing to client")
			}
			return
		}
	}

	w.metrics.CacheMiss(StaleWhileRevalidate.String())
	result := <-resultCh
	if result.err == nil {
		if err := writeResponse(rw, result.res, "MISS"); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Error writing to client")
		}
		return
	}

	log.Debug().Err(result.err).Str("key", key).Msg("Network failed with empty cache")
	if isNavigation(r) && w.serveOfflinePage(rw, r) {
		return
	}
	http.Error(rw, "Offline and no cached response available", http.StatusGatewayTimeout)
}

// revalidate fetches the target on behalf of a stale-while-revalidate
// request. It deliberately detaches from the request context: the refresh
// must complete even when the stale response has already been sent and the
// client connection is gone.
func (w *Worker) revalidate(r *http.Request, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	req.Header.Del("Connection")
	w.metrics.NetworkFetch()
	return w.httpClient.Do(req)
}

// lookup reads a snapshot from a namespace and decodes it.
// Errors and decode failures count as misses.
func (w *Worker) lookup(ns cache.Namespace, key string, r *http.Request) (*http.Response, bool) {
	entry, ok, err := ns.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	res, err := responseFromSnapshot(entry.Value, r)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Could not decode cached response")
		return nil, false
	}
	return res, true
}

// serveOfflinePage serves the configured offline fallback from the static
// namespace. Returns false if the page is not cached.
func (w *Worker) serveOfflinePage(rw http.ResponseWriter, r *http.Request) bool {
	if w.offlinePath == "" {
		return false
	}
	ns, err := w.storage.Open(w.StaticName())
	if err != nil {
		return false
	}
	target := w.originURL.ResolveReference(&url.URL{Path: w.offlinePath})
	res, ok := w.lookup(ns, Key(http.MethodGet, target), r)
	if !ok {
		return false
	}
	if err := writeResponse(rw, res, "HIT"); err != nil {
		log.Error().Err(err).Msg("Error writing offline page to client")
	}
	return true
}

// isNavigation reports whether a request is a page navigation, which is the
// only case that falls back to the offline page.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
