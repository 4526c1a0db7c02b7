// Package config loads gymd settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gymnexus/internal/pricing"
	"gymnexus/internal/timezone"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Gym         GymConfig       `yaml:"gym"`
	Limits      LimitsConfig    `yaml:"limits"`
	Prices      pricing.Prices  `yaml:"prices"`
	Specialties []string        `yaml:"specialties"`
	Ledger      LedgerConfig    `yaml:"ledger"`
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Schedule    ScheduleConfig  `yaml:"schedule"`
	Timezone    string          `yaml:"timezone"`
	AdminPIN    string          `yaml:"admin_pin"`
}

type GymConfig struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	OpeningCash int64  `yaml:"opening_cash"`
}

type LimitsConfig struct {
	MaxClients     int `yaml:"max_clients"`
	MaxTrainers    int `yaml:"max_trainers"`
	MaxSessions    int `yaml:"max_sessions"`
	MembershipDays int `yaml:"membership_days"`
	SessionSeats   int `yaml:"session_seats"`
	ExpiringWithin int `yaml:"expiring_within"`
}

type LedgerConfig struct {
	Backend     string `yaml:"backend"`
	CashPath    string `yaml:"cash_path"`
	EntriesPath string `yaml:"entries_path"`
	DatabaseURL string `yaml:"database_url"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// RateLimit is the sustained number of write requests per second.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig enables trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

type ScheduleConfig struct {
	NightlyReport string `yaml:"nightly_report"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Gym: GymConfig{
			Name:    "Body Force",
			Address: "Calle 123 #45-67, Barrio Centro",
			Phone:   "3001234567",
			Email:   "info@bodyforce.com",
		},
		Limits: LimitsConfig{
			MaxClients:     50,
			MaxTrainers:    10,
			MaxSessions:    20,
			MembershipDays: 30,
			SessionSeats:   25,
			ExpiringWithin: 7,
		},
		Prices: pricing.Prices{
			Membership:     50000,
			SingleEntry:    8000,
			SpecialSession: 15000,
		},
		Specialties: []string{"Boxing", "Yoga", "Aerobics", "Functional", "Spinning"},
		Ledger: LedgerConfig{
			Backend:     BackendFile,
			CashPath:    "data/cash.txt",
			EntriesPath: "data/entries.txt",
		},
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 10,
			RateBurst: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "gymd",
		},
		Schedule: ScheduleConfig{
			NightlyReport: "0 23 * * *",
		},
		Timezone: timezone.DefaultTimezone,
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing env file is ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	amount := func(key string, dst *int64) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("GYM_NAME", &c.Gym.Name)
	str("GYM_ADDRESS", &c.Gym.Address)
	str("GYM_PHONE", &c.Gym.Phone)
	str("GYM_EMAIL", &c.Gym.Email)
	amount("GYM_OPENING_CASH", &c.Gym.OpeningCash)

	num("GYM_MAX_CLIENTS", &c.Limits.MaxClients)
	num("GYM_MAX_TRAINERS", &c.Limits.MaxTrainers)
	num("GYM_MAX_SESSIONS", &c.Limits.MaxSessions)
	num("GYM_MEMBERSHIP_DAYS", &c.Limits.MembershipDays)
	num("GYM_SESSION_SEATS", &c.Limits.SessionSeats)
	num("GYM_EXPIRING_WITHIN", &c.Limits.ExpiringWithin)

	amount("GYM_PRICE_MEMBERSHIP", &c.Prices.Membership)
	amount("GYM_PRICE_SINGLE_ENTRY", &c.Prices.SingleEntry)
	amount("GYM_PRICE_SPECIAL_SESSION", &c.Prices.SpecialSession)

	if v, ok := os.LookupEnv("GYM_SPECIALTIES"); ok {
		c.Specialties = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Specialties = append(c.Specialties, s)
			}
		}
	}

	str("GYM_LEDGER_BACKEND", &c.Ledger.Backend)
	str("GYM_LEDGER_CASH_PATH", &c.Ledger.CashPath)
	str("GYM_LEDGER_ENTRIES_PATH", &c.Ledger.EntriesPath)
	str("DATABASE_URL", &c.Ledger.DatabaseURL)

	num("PORT", &c.Server.Port)
	if v, ok := os.LookupEnv("GYM_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GYM_RATE_LIMIT: %w", err))
		} else {
			c.Server.RateLimit = f
		}
	}
	num("GYM_RATE_BURST", &c.Server.RateBurst)

	str("GYM_LOG_LEVEL", &c.Log.Level)
	str("GYM_LOG_FORMAT", &c.Log.Format)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)
	str("OTEL_SERVICE_NAME", &c.Telemetry.ServiceName)
	str("GYM_NIGHTLY_REPORT", &c.Schedule.NightlyReport)
	str("GYM_TIMEZONE", &c.Timezone)
	str("GYM_ADMIN_PIN", &c.AdminPIN)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Gym.Name) == "":
		return errors.New("gym.name is required")
	case c.Gym.OpeningCash < 0:
		return fmt.Errorf("gym.opening_cash must not be negative, got %d", c.Gym.OpeningCash)
	case c.Limits.MaxClients <= 0:
		return fmt.Errorf("limits.max_clients must be positive, got %d", c.Limits.MaxClients)
	case c.Limits.MaxTrainers < 0:
		return fmt.Errorf("limits.max_trainers must not be negative, got %d", c.Limits.MaxTrainers)
	case c.Limits.MaxSessions < 0:
		return fmt.Errorf("limits.max_sessions must not be negative, got %d", c.Limits.MaxSessions)
	case c.Limits.MembershipDays <= 0:
		return fmt.Errorf("limits.membership_days must be positive, got %d", c.Limits.MembershipDays)
	case c.Limits.SessionSeats <= 0:
		return fmt.Errorf("limits.session_seats must be positive, got %d", c.Limits.SessionSeats)
	case c.Limits.ExpiringWithin < 0:
		return fmt.Errorf("limits.expiring_within must not be negative, got %d", c.Limits.ExpiringWithin)
	case c.Prices.Membership <= 0 || c.Prices.SingleEntry <= 0 || c.Prices.SpecialSession <= 0:
		return fmt.Errorf("prices must be positive, got %+v", c.Prices)
	case len(c.Specialties) == 0:
		return errors.New("at least one specialty is required")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0:
		return errors.New("server.rate_limit and server.rate_burst must be positive")
	case !timezone.IsValid(c.Timezone):
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}

	switch c.Ledger.Backend {
	case BackendFile:
		if c.Ledger.CashPath == "" || c.Ledger.EntriesPath == "" {
			return errors.New("ledger.cash_path and ledger.entries_path are required for the file backend")
		}
	case BackendPostgres:
		if c.Ledger.DatabaseURL == "" {
			return errors.New("ledger.database_url is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	return nil
}
