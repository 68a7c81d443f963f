package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.WarnLevel)
}

// Two requests for the same static asset: one network fetch total, the
// second response served from cache.
func TestStaticAssetFetchedOnceEndToEnd(t *testing.T) {
	networkCalls := 0
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkCalls++
		w.Write([]byte("bundle v1"))
	}))
	defer origin.Close()

	w, storage, _ := testWorker(t, origin.URL)
	key := keyFor(t, origin.URL, "/static/js/bundle.js")

	first := httptest.NewRecorder()
	w.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/static/js/bundle.js", nil))
	require.Equal(t, "bundle v1", first.Body.String())
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	require.Eventually(t, func() bool {
		return hasKey(t, storage, w.StaticName(), key)
	}, time.Second, 5*time.Millisecond)

	second := httptest.NewRecorder()
	w.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/static/js/bundle.js", nil))
	assert.Equal(t, "bundle v1", second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	assert.Equal(t, 1, networkCalls, "exactly one network fetch for two proxy calls")
}

// An API response cached minutes ago is served when the network goes away.
func TestAPIOfflineServedFromCacheEndToEnd(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterNoResponder(httpmock.NewErrorResponder(errors.New("network down")))

	w, storage, _ := testWorker(t, "https://x.example", func(cfg *Config) {
		cfg.HTTPClient = &http.Client{Transport: transport}
	})
	key := keyFor(t, "https://x.example", "/api/foo")
	// cached three minutes ago, well inside the five-minute window
	putSnapshot(t, storage, w.APIName(), key, `{"foo": "cached"}`)

	target, err := url.Parse("https://x.example/api/foo")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/foo", nil)
	req.URL = target

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"foo": "cached"}`, rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestForwardProxyStyleAbsoluteURL(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	}))
	defer origin.Close()

	// worker origin differs; the absolute request URL wins
	w, _, _ := testWorker(t, "http://app.localhost")

	target, err := url.Parse(origin.URL + "/somewhere")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/somewhere", nil)
	req.URL = target

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, req)
	assert.Equal(t, "page", rec.Body.String())
}

func TestSyncAndPushWithoutHandlersAreNoops(t *testing.T) {
	w, _, _ := testWorker(t, "http://app.localhost")
	assert.NoError(t, w.Sync(context.Background(), "transaction-sync"))
	assert.NoError(t, w.Push(context.Background(), []byte("{}")))
}
