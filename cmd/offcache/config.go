package main

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        int           `yaml:"port" env:"OFFCACHE_PORT"`
	Origin      string        `yaml:"origin" env:"OFFCACHE_ORIGIN"`
	Cache       CacheConfig   `yaml:"cache" envPrefix:"OFFCACHE_CACHE_"`
	Routing     RoutingConfig `yaml:"routing"`
	Manifest    []string      `yaml:"manifest"`
	OfflinePage string        `yaml:"offlinePage" env:"OFFCACHE_OFFLINE_PAGE"`
	SkipWaiting bool          `yaml:"skipWaiting" env:"OFFCACHE_SKIP_WAITING"`
	Sync        SyncConfig    `yaml:"sync" envPrefix:"OFFCACHE_SYNC_"`
	Notify      NotifyConfig  `yaml:"notify"`
}

type CacheConfig struct {
	// Provider is one of memory, sqlite, redis.
	Provider      string        `yaml:"provider" env:"PROVIDER"`
	File          string        `yaml:"file" env:"FILE"`
	RedisAddr     string        `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redisPassword" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redisDb" env:"REDIS_DB"`
	Prefix        string        `yaml:"prefix" env:"PREFIX"`
	Version       string        `yaml:"version" env:"VERSION"`
	APITTL        time.Duration `yaml:"apiTtl" env:"API_TTL"`
}

type RoutingConfig struct {
	StaticMarkers []string `yaml:"staticMarkers"`
	APIMarkers    []string `yaml:"apiMarkers"`
}

type SyncConfig struct {
	StoreFile string `yaml:"storeFile" env:"STORE_FILE"`
}

type NotifyConfig struct {
	ShoutrrrURLs []string `yaml:"shoutrrrUrls" env:"OFFCACHE_SHOUTRRR_URLS" envSeparator:","`
}

// defaultConfig mirrors the app the proxy was built for: the precache
// manifest and routing markers cover its shell, fonts, map assets and APIs.
func defaultConfig() Config {
	return Config{
		Port: 8080,
		Cache: CacheConfig{
			Provider: "sqlite",
			File:     "cache.db",
			Prefix:   "budget-hub-lv",
			Version:  "v1.2",
			APITTL:   5 * time.Minute,
		},
		Routing: RoutingConfig{
			StaticMarkers: []string{"/static/", "fonts.googleapis.com", "cdnjs.cloudflare.com"},
			APIMarkers:    []string{"/api/", "ss.lv", "revolut.com"},
		},
		Manifest: []string{
			"/",
			"/static/js/bundle.js",
			"/static/css/main.css",
			"/manifest.json",
			"/house-search",
			"/offline.html",
			"https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600;700&display=swap",
			"https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.7.1/leaflet.css",
			"https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.7.1/leaflet.js",
			"https://a.tile.openstreetmap.org/11/1192/630.png",
			"https://b.tile.openstreetmap.org/11/1192/630.png",
			"https://c.tile.openstreetmap.org/11/1192/630.png",
		},
		OfflinePage: "/offline.html",
		SkipWaiting: true,
		Sync: SyncConfig{
			StoreFile: "pending.db",
		},
	}
}

// getConfig layers the config file (if any) and environment overrides on
// top of the defaults.
func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, err
		}
	}
	if err := env.Parse(&config); err != nil {
		return config, err
	}
	return config, nil
}
