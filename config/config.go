// Package config loads environment variables and provides a typed Config used across the service.
// Required identifiers (bot token, source channel, force-join channel) fail Load immediately;
// everything else gets a sensible default so the binary can run locally with minimal setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram
	BotToken         string
	SourceChannelID  int64
	ForceJoinChannel string // channel username without the leading @
	ProbeChatID      int64  // scratch chat for existence probes; 0 disables scanning
	WebhookURL       string // empty means long polling

	// Database
	DBDsn string

	// HTTP
	HTTPAddr string

	// Channel scan policy
	ScanUpperBound      int
	ScanMaxConsecFails  int
	ScanProbesPerSecond float64
	ScanBatchSize       int
	ScanBatchDelay      time.Duration
}

// Load reads environment variables and applies defaults. It fails when the
// identifiers the bot cannot run without are missing. DB_DSN is optional:
// leaving it empty selects the in-memory storage backend.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("missing required env BOT_TOKEN")
	}

	src := os.Getenv("SOURCE_CHANNEL_ID")
	if src == "" {
		return nil, fmt.Errorf("missing required env SOURCE_CHANNEL_ID")
	}
	id, err := strconv.ParseInt(src, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_CHANNEL_ID %q: %w", src, err)
	}
	cfg.SourceChannelID = id

	cfg.ForceJoinChannel = os.Getenv("FORCE_JOIN_CHANNEL_USERNAME")
	if cfg.ForceJoinChannel == "" {
		return nil, fmt.Errorf("missing required env FORCE_JOIN_CHANNEL_USERNAME")
	}
	// Tolerate a leading @ in the env value.
	if cfg.ForceJoinChannel[0] == '@' {
		cfg.ForceJoinChannel = cfg.ForceJoinChannel[1:]
	}

	if s := os.Getenv("PROBE_CHAT_ID"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROBE_CHAT_ID %q: %w", s, err)
		}
		cfg.ProbeChatID = n
	}

	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.ScanUpperBound = envInt("SCAN_UPPER_BOUND", 100000)
	cfg.ScanMaxConsecFails = envInt("SCAN_MAX_CONSECUTIVE_FAILURES", 50)
	cfg.ScanBatchSize = envInt("SCAN_BATCH_SIZE", 25)
	cfg.ScanProbesPerSecond = envFloat("SCAN_PROBES_PER_SECOND", 5)
	cfg.ScanBatchDelay = envDuration("SCAN_BATCH_DELAY", 3*time.Second)

	return cfg, nil
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}
