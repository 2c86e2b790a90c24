package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the set of ambient knobs cmd/bot needs before it can construct
// the rest of the module. Loaded once at startup (§9 design notes: "Global
// mutable state: none at the core ... configuration is loaded once at
// startup"). Per-platform API keys are not here: each booru-family adapter
// reads its own <ENV_PREFIX>_API_KEY variable directly, since that is local
// to the adapter that owns it. The Twitter and DeviantArt adapters read no
// environment configuration.
type Config struct {
	// DatabaseURL is a libpq connection string passed straight to pgxpool.
	DatabaseURL string

	// CodecBinary is the external converter executable; defaults to "ffmpeg".
	CodecBinary string

	// ConverterScaleFilter is the codec tool's -vf filter expression. The
	// source reads this unconditionally with no default (§9 Open Question),
	// so a missing value is a configuration error here too rather than a
	// silently-applied default.
	ConverterScaleFilter string

	// TempDir holds downloaded blobs and converter output; defaults to
	// os.TempDir() when empty.
	TempDir string

	// MaxInFlight bounds the cache service's mailbox (spec.md §4.5).
	MaxInFlight int

	// BlobFanout bounds concurrent blob downloads/uploads within one post.
	BlobFanout int
}

// Load reads Config from the environment. It fails fast on missing required
// variables rather than silently defaulting them, since a misconfigured
// cache service fails every request rather than degrading gracefully.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		CodecBinary:          envOrDefault("CODEC_BINARY", "ffmpeg"),
		ConverterScaleFilter: os.Getenv("CONVERTER_SCALE_FILTER"),
		TempDir:              os.Getenv("TG_TEMP_DIR"),
		MaxInFlight:          40,
		BlobFanout:           4,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.ConverterScaleFilter == "" {
		return Config{}, fmt.Errorf("config: CONVERTER_SCALE_FILTER is required")
	}

	if v := os.Getenv("TG_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: TG_MAX_IN_FLIGHT: %w", err)
		}
		cfg.MaxInFlight = n
	}
	if v := os.Getenv("TG_BLOB_FANOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: TG_BLOB_FANOUT: %w", err)
		}
		cfg.BlobFanout = n
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
