// Package config reads service and CLI settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled bool
	Topic   string
	Brokers []string
	GroupID string
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	RedisAddr       string
	CacheEnabled    bool
	CacheOpTimeout  time.Duration
	CacheTTLDefault time.Duration

	DatasetDir       string
	DatasetCacheSize int
	CoastlinePath    string
	RenderDPI        int

	PlantsSource  string // file or wfs
	PlantsPath    string
	PlantsLayer   string
	GeoServerURL  string
	UpstreamLimit time.Duration
	Countries     []string
	H3Res         int

	MetricsEnabled bool
	RenderEvents   KafkaCfg
	Invalidation   KafkaCfg
}

var defaultCountries = []string{
	"Burundi", "Djibouti", "Eritrea", "Ethiopia", "Kenya", "Rwanda",
	"Somalia", "South Sudan", "Sudan", "Tanzania", "Uganda",
}

func FromEnv() Config {
	res := getint("H3_RES", 5)
	if res < 0 || res > 15 {
		res = 5
	}
	brokers := getlist("KAFKA_BROKERS", []string{"localhost:9092"})

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled:    getbool("CACHE_ENABLED", false),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTLDefault: getduration("CACHE_TTL_DEFAULT", 10*time.Minute),

		DatasetDir:       getenv("DATASET_DIR", "./data"),
		DatasetCacheSize: getint("DATASET_CACHE_SIZE", 16),
		CoastlinePath:    getenv("COASTLINE_PATH", ""),
		RenderDPI:        getint("RENDER_DPI", 150),

		PlantsSource:  strings.ToLower(getenv("PLANTS_SOURCE", "file")),
		PlantsPath:    getenv("PLANTS_PATH", "./data/africa_energy.geojson"),
		PlantsLayer:   getenv("PLANTS_LAYER", "repp:africa_energy"),
		GeoServerURL:  getenv("GEOSERVER_URL", "http://localhost:8080/geoserver"),
		UpstreamLimit: getduration("UPSTREAM_TIMEOUT", 30*time.Second),
		Countries:     getlist("COUNTRIES", defaultCountries),
		H3Res:         res,

		MetricsEnabled: getbool("METRICS_ENABLED", true),
		RenderEvents: KafkaCfg{
			Enabled: getbool("RENDER_EVENTS_ENABLED", false),
			Topic:   getenv("RENDER_EVENTS_TOPIC", "atlas-renders"),
			Brokers: brokers,
		},
		Invalidation: KafkaCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "dataset-updates"),
			Brokers: brokers,
			GroupID: getenv("KAFKA_GROUP_ID", "atlas-invalidator"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// comma separated, blanks dropped
func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
