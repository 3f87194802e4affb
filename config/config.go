// Package config loads the monitor configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every knob the monitor needs. All values come from the
// environment; there is no config file and no CLI surface.
type Config struct {
	BaseURL  string
	Username string
	Password string
	DeviceID string

	WebhookURL   string
	WebhookToken string

	PollInterval        time.Duration
	AuthRefreshInterval time.Duration
	WarningOffset       int64 // seconds before session end to warn at

	WorkdayStart int // local hour, inclusive
	WorkdayEnd   int // local hour, exclusive

	// Recipients maps display names from the station API to messaging
	// handles mentioned in notifications.
	Recipients map[string]string

	Debug bool
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:             os.Getenv("STATION_BASE_URL"),
		Username:            os.Getenv("STATION_USERNAME"),
		Password:            os.Getenv("STATION_PASSWORD"),
		DeviceID:            os.Getenv("STATION_DEVICE_ID"),
		WebhookURL:          os.Getenv("WEBHOOK_URL"),
		WebhookToken:        os.Getenv("WEBHOOK_TOKEN"),
		PollInterval:        duration("POLL_INTERVAL", 3*time.Minute),
		AuthRefreshInterval: duration("AUTH_REFRESH_INTERVAL", 6*time.Hour),
		WarningOffset:       integer("WARNING_OFFSET", 300),
		WorkdayStart:        int(integer("WORKDAY_START", 8)),
		WorkdayEnd:          int(integer("WORKDAY_END", 22)),
		Recipients:          ParseRecipients(os.Getenv("RECIPIENTS")),
		Debug:               os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1",
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("STATION_BASE_URL environment variable required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("STATION_USERNAME and STATION_PASSWORD environment variables required")
	}
	if cfg.DeviceID == "" {
		return nil, errors.New("STATION_DEVICE_ID environment variable required")
	}
	if cfg.WebhookURL == "" && !cfg.Debug {
		return nil, errors.New("WEBHOOK_URL environment variable required unless DEBUG is set")
	}
	if cfg.WorkdayStart < 0 || cfg.WorkdayEnd > 24 || cfg.WorkdayStart >= cfg.WorkdayEnd {
		return nil, fmt.Errorf("invalid working hours %d-%d", cfg.WorkdayStart, cfg.WorkdayEnd)
	}

	return cfg, nil
}

// ParseRecipients parses a "Name=handle,Name=handle" delimited roster.
// Malformed pairs are skipped rather than rejected: a typo in one entry
// should not take the whole monitor down.
func ParseRecipients(raw string) map[string]string {
	recipients := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, handle, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		handle = strings.TrimSpace(handle)
		if !ok || name == "" || handle == "" {
			continue
		}
		recipients[name] = handle
	}
	return recipients
}

func duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func integer(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
