package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/offcache/offcache/cache"
	"github.com/offcache/offcache/core"
	"github.com/offcache/offcache/metrics"
	"github.com/offcache/offcache/notify"
	"github.com/offcache/offcache/syncq"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	originFlag         string
	providerFlag       string
	verbosityTraceFlag bool

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Cache provider: memory, sqlite or redis (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Str("version", version).Logger()

	config, err := getConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	if portFlag != 0 {
		config.Port = portFlag
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if providerFlag != "" {
		config.Cache.Provider = providerFlag
	}

	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	var storage cache.Storage
	switch config.Cache.Provider {
	case "sqlite":
		storage = cache.NewSQLiteStorage(config.Cache.File)
	case "memory":
		storage = cache.NewMemoryStorage()
	case "redis":
		storage = cache.NewRedisStorage(config.Cache.RedisAddr, config.Cache.RedisPassword, config.Cache.RedisDB)
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", config.Cache.Provider)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	sinks := []notify.Sink{notify.LogSink{}}
	if len(config.Notify.ShoutrrrURLs) > 0 {
		sink, err := notify.NewShoutrrrSink(config.Notify.ShoutrrrURLs...)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not set up notification delivery")
		}
		sinks = append(sinks, sink)
	}
	presenter := &notify.Presenter{
		Sinks:   sinks,
		Clients: notify.LoggingRegistry{},
		Origin:  originURL.Host,
		Metrics: m,
	}

	pending := syncq.NewSQLiteStore(config.Sync.StoreFile)
	dispatcher := &syncq.Dispatcher{
		BaseURL:  config.Origin,
		Store:    pending,
		Notifier: presenter,
		Metrics:  m,
	}

	worker := core.NewWorker(core.Config{
		Storage:     storage,
		OriginURL:   *originURL,
		CachePrefix: config.Cache.Prefix,
		Version:     config.Cache.Version,
		Classifier: core.Classifier{
			StaticMarkers: config.Routing.StaticMarkers,
			APIMarkers:    config.Routing.APIMarkers,
		},
		Manifest:    config.Manifest,
		OfflinePath: config.OfflinePage,
		APITTL:      config.Cache.APITTL,
		SkipWaiting: config.SkipWaiting,
		Sync:        dispatcher,
		Push:        presenter,
		Metrics:     m,
	})

	if err := worker.Install(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Install failed")
	}

	r := chi.NewRouter()
	r.Get("/control/version", func(rw http.ResponseWriter, req *http.Request) {
		reply := worker.Message(req.Context(), core.Message{Type: core.MessageGetVersion})
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(reply)
	})
	r.Post("/control/skip-waiting", func(rw http.ResponseWriter, req *http.Request) {
		worker.Message(req.Context(), core.Message{Type: core.MessageSkipWaiting})
		rw.WriteHeader(http.StatusAccepted)
	})
	r.Post("/control/sync/{tag}", func(rw http.ResponseWriter, req *http.Request) {
		if err := worker.Sync(req.Context(), chi.URLParam(req, "tag")); err != nil {
			log.Error().Err(err).Msg("Sync task failed")
			http.Error(rw, "sync failed", http.StatusInternalServerError)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	})
	r.Post("/control/push", func(rw http.ResponseWriter, req *http.Request) {
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(rw, "could not read payload", http.StatusBadRequest)
			return
		}
		if err := worker.Push(req.Context(), payload); err != nil {
			log.Error().Err(err).Msg("Push presentation failed")
			http.Error(rw, "push failed", http.StatusInternalServerError)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	})
	// offline clients queue transactions here for the next transaction-sync
	r.Post("/control/queue/transactions", func(rw http.ResponseWriter, req *http.Request) {
		var t syncq.Transaction
		if err := json.NewDecoder(req.Body).Decode(&t); err != nil {
			http.Error(rw, "invalid transaction", http.StatusBadRequest)
			return
		}
		queued, err := pending.Add(t)
		if err != nil {
			log.Error().Err(err).Msg("Could not queue transaction")
			http.Error(rw, "could not queue", http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusAccepted)
		json.NewEncoder(rw).Encode(queued)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Handle("/*", worker)

	log.Info().Msgf("Proxying port %d to %s", config.Port, config.Origin)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
