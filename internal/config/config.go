package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port     string
	LogLevel string

	Store       string
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	MetricsEnabled bool
	MetricsToken   string

	WriteRateLimit int
	// TrustedProxies are the peers whose X-Forwarded-For is believed when
	// keying the write rate limit.
	TrustedProxies  []netip.Prefix
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	var errs []error

	cfg := Config{
		Port:         env("PORT", "8082"),
		LogLevel:     env("LOG_LEVEL", "info"),
		Store:        strings.ToLower(env("STORE", StoreMemory)),
		DatabaseURL:  env("DATABASE_URL", ""),
		MetricsToken: env("METRICS_TOKEN", ""),
		Redis: RedisConfig{
			Addr:     env("REDIS_ADDR", ""),
			Password: env("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(env("KAFKA_BROKERS", "")),
			Topic:   env("KAFKA_TOPIC", "catalog.items"),
		},
	}

	var err error
	if cfg.Redis.DB, err = strconv.Atoi(env("REDIS_DB", "0")); err != nil {
		errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
	}
	if cfg.Redis.TTL, err = time.ParseDuration(env("CACHE_TTL", "5m")); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(env("METRICS_ENABLED", "true")); err != nil {
		errs = append(errs, fmt.Errorf("METRICS_ENABLED: %w", err))
	}
	if cfg.WriteRateLimit, err = strconv.Atoi(env("WRITE_RATE_LIMIT", "0")); err != nil {
		errs = append(errs, fmt.Errorf("WRITE_RATE_LIMIT: %w", err))
	} else if cfg.WriteRateLimit < 0 {
		errs = append(errs, errors.New("WRITE_RATE_LIMIT must not be negative"))
	}
	if cfg.TrustedProxies, err = parsePrefixes(splitList(env("TRUSTED_PROXIES", ""))); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(env("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE: unknown backend %q", cfg.Store))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePrefixes accepts CIDRs and bare addresses.
func parsePrefixes(items []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, it := range items {
		if !strings.Contains(it, "/") {
			addr, err := netip.ParseAddr(it)
			if err != nil {
				return nil, err
			}
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(it)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
