package payouts

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultCacheTTL      = time.Hour
	defaultEventsChannel = "payouts:events"
	defaultCachePrefix   = "affwp:payouts"
)

// Config holds runtime configuration for the payouts module.
type Config struct {
	CacheTTL           time.Duration
	CachePrefix        string
	EventsChannel      string
	ExclusiveReferrals bool
}

// DefaultConfig returns the configuration used when no env overrides are set.
func DefaultConfig() Config {
	return Config{
		CacheTTL:      defaultCacheTTL,
		CachePrefix:   defaultCachePrefix,
		EventsChannel: defaultEventsChannel,
	}
}

// LoadConfig reads payouts configuration from environment variables and applies defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v, err := readIntEnv("PAYOUTS_CACHE_TTL_SECONDS"); err != nil {
		return Config{}, fmt.Errorf("parse PAYOUTS_CACHE_TTL_SECONDS: %w", err)
	} else if v != nil {
		cfg.CacheTTL = time.Duration(*v) * time.Second
	}

	if v := os.Getenv("PAYOUTS_EXCLUSIVE_REFERRALS"); v != "" {
		exclusive, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse PAYOUTS_EXCLUSIVE_REFERRALS: %w", err)
		}
		cfg.ExclusiveReferrals = exclusive
	}

	if v := os.Getenv("PAYOUTS_EVENTS_CHANNEL"); strings.TrimSpace(v) != "" {
		cfg.EventsChannel = strings.TrimSpace(v)
	}

	if v := os.Getenv("PAYOUTS_CACHE_PREFIX"); strings.TrimSpace(v) != "" {
		cfg.CachePrefix = strings.TrimSpace(v)
	}

	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("PAYOUTS_CACHE_TTL_SECONDS must be positive")
	}

	return cfg, nil
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
