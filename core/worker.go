package core

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/offcache/offcache/cache"
	"github.com/offcache/offcache/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultAPITTL is the soft-expiry delay for API cache entries.
const DefaultAPITTL = 5 * time.Minute

// SyncHandler executes a named background sync task.
type SyncHandler interface {
	Dispatch(ctx context.Context, tag string) error
}

// PushHandler presents an incoming push payload as a user notification.
type PushHandler interface {
	Present(ctx context.Context, payload []byte) error
}

type Config struct {
	Storage   cache.Storage
	OriginURL url.URL
	// CachePrefix and Version together name the current namespaces,
	// e.g. "budget-hub-lv" + "v1.2" -> "budget-hub-lv-v1.2".
	CachePrefix string
	Version     string
	Classifier  Classifier
	// Manifest is the list of URLs precached on install.
	Manifest []string
	// OfflinePath is the page served for failed navigations with no cache match.
	OfflinePath string
	APITTL      time.Duration
	Scheduler   Scheduler
	// SkipWaiting activates immediately after a successful install instead
	// of parking in the waiting state.
	SkipWaiting bool
	Sync        SyncHandler
	Push        PushHandler
	// OnClaim runs after the activation sweep completes, so an embedding
	// application can hand its open clients over to the new version.
	OnClaim    func()
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Worker is the offline cache proxy. It exposes one method per platform
// event: Install, Activate, ServeHTTP (fetch), Sync, Push, and Message.
// The composition root wires these to whatever event source the platform
// provides; the policy logic itself has no platform dependencies.
type Worker struct {
	storage     cache.Storage
	originURL   url.URL
	cachePrefix string
	version     string
	classifier  Classifier
	manifest    []string
	offlinePath string
	apiTTL      time.Duration
	scheduler   Scheduler
	skipWaiting bool
	sync        SyncHandler
	push        PushHandler
	onClaim     func()
	httpClient  *http.Client
	metrics     *metrics.Metrics

	state atomicState
}

func NewWorker(config Config) *Worker {
	w := &Worker{
		storage:     config.Storage,
		originURL:   config.OriginURL,
		cachePrefix: config.CachePrefix,
		version:     config.Version,
		classifier:  config.Classifier,
		manifest:    config.Manifest,
		offlinePath: config.OfflinePath,
		apiTTL:      config.APITTL,
		scheduler:   config.Scheduler,
		skipWaiting: config.SkipWaiting,
		sync:        config.Sync,
		push:        config.Push,
		onClaim:     config.OnClaim,
		httpClient:  config.HTTPClient,
		metrics:     config.Metrics,
	}
	if w.apiTTL == 0 {
		w.apiTTL = DefaultAPITTL
	}
	if w.scheduler == nil {
		w.scheduler = TimerScheduler{}
	}
	if w.httpClient == nil {
		w.httpClient = &http.Client{
			// do not follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return w
}

// StaticName is the current static/page namespace name. It doubles as the
// version string reported over the message channel.
func (w *Worker) StaticName() string {
	return w.cachePrefix + "-" + w.version
}

// APIName is the current API namespace name.
func (w *Worker) APIName() string {
	return w.StaticName() + "-api"
}

// ServeHTTP implements the http.Handler interface.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	defer w.recover(rw, r)
	w.handle(rw, r)
}

// recover recovers from panics and sends the response to the escape hatch if needed.
func (w *Worker) recover(rw http.ResponseWriter, r *http.Request) {
	if err := recover(); err != nil {
		w.escapeHatch(rw, r)
		log.WithLevel(zerolog.PanicLevel).Interface("error", err).Msg("Panic in cache handler")
	}
}

func (w *Worker) handle(rw http.ResponseWriter, r *http.Request) {
	target := w.target(r)
	strategy := w.classifier.Classify(r.Method, target.String())
	key := Key(r.Method, target)

	log.Trace().
		Str("key", key).
		Str("strategy", strategy.String()).
		Msgf("Incoming request: %s %s", r.Method, target)

	switch strategy {
	case CacheFirst:
		w.serveCacheFirst(rw, r, target, key)
	case NetworkFirst:
		w.serveNetworkFirst(rw, r, target, key)
	case StaleWhileRevalidate:
		w.serveStaleWhileRevalidate(rw, r, target, key)
	default:
		w.escapeHatch(rw, r)
	}
}

// escapeHatch forwards the request to the network with no cache interaction.
// It serves non-GET requests and is the fallback of last resort on panic.
func (w *Worker) escapeHatch(rw http.ResponseWriter, r *http.Request) {
	res, err := w.fetch(r, w.target(r))
	if err != nil {
		log.Error().Err(err).Msg("Error connecting to origin")
		http.Error(rw, "Could not connect to origin", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()
	copyHeader(rw.Header(), res.Header)
	rw.WriteHeader(res.StatusCode)
	if _, err := io.Copy(rw, res.Body); err != nil {
		log.Error().Err(err).Msg("Error writing to client")
	}
}

// target resolves the absolute URL a request should be fetched from.
// Forward-proxy style requests carry an absolute URL already; anything else
// is resolved against the configured origin.
func (w *Worker) target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return w.originURL.ResolveReference(r.URL)
}

// sameOrigin reports whether a target URL points at the configured origin.
// Only same-origin responses are cached on the cache-first miss path.
func (w *Worker) sameOrigin(target *url.URL) bool {
	return target.Host == "" || strings.EqualFold(target.Host, w.originURL.Host)
}

// fetch forwards the request to the network.
func (w *Worker) fetch(r *http.Request, target *url.URL) (*http.Response, error) {
	// need to specifically set body to nil on the outgoing request if content is zero length
	// see https://github.com/golang/go/issues/16036
	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	// do not forward connection header, this causes trouble
	req.Header.Del("Connection")
	w.metrics.NetworkFetch()
	return w.httpClient.Do(req)
}

// storeAsync writes a snapshot into a namespace without blocking the caller.
// Cache writes are best-effort: a failure is logged and never surfaces.
func (w *Worker) storeAsync(ns cache.Namespace, key string, snapshot []byte) {
	go func() {
		if err := ns.Put(key, snapshot); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
			return
		}
		log.Trace().Str("key", key).Msg("Cache write")
	}()
}

// Sync runs the named background sync task, if a handler is wired.
func (w *Worker) Sync(ctx context.Context, tag string) error {
	if w.sync == nil {
		return nil
	}
	return w.sync.Dispatch(ctx, tag)
}

// Push presents a push payload, if a handler is wired.
func (w *Worker) Push(ctx context.Context, payload []byte) error {
	if w.push == nil {
		return nil
	}
	return w.push.Present(ctx, payload)
}
