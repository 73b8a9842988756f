package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings.
// Load order: defaults -> YAML (optional) -> .env (optional) -> env overrides.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	// Releases feed. A value without a scheme is read from disk.
	Feed struct {
		URL        string `yaml:"url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"feed"`

	// Public address lookup used as the client identity.
	Identity struct {
		URL        string `yaml:"url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"identity"`

	Catalog struct {
		VanityTags []string `yaml:"vanity_tags"` // removed from display names
		Sort       string   `yaml:"sort"`        // recency, name
	} `yaml:"catalog"`

	Gate struct {
		CooldownSec int    `yaml:"cooldown_sec"`
		TickMs      int    `yaml:"tick_ms"`
		Store       string `yaml:"store"` // sqlite, memory
	} `yaml:"gate"`

	// Logging configuration
	Logging struct {
		Level      string `yaml:"level"`        // trace, debug, info, warn, error, fatal, panic
		Format     string `yaml:"format"`       // json, console
		Output     string `yaml:"output"`       // stdout, file, syslog, multi
		FilePath   string `yaml:"file_path"`    // path to log file (if output=file or multi)
		MaxSizeMB  int    `yaml:"max_size_mb"`  // max size before rotation
		MaxBackups int    `yaml:"max_backups"`  // max number of old log files
		MaxAgeDays int    `yaml:"max_age_days"` // max age in days
		Compress   bool   `yaml:"compress"`     // compress rotated files
		SyslogAddr string `yaml:"syslog_addr"`  // syslog server address (if output=syslog or multi)
		SyslogNet  string `yaml:"syslog_net"`   // tcp, udp, or empty for local
	} `yaml:"logging"`

	Webhooks struct {
		Secret     string `yaml:"secret"`
		TimeoutSec int    `yaml:"timeout_sec"`
		Retries    int    `yaml:"retries"`
	} `yaml:"webhooks"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Load reads YAML if path is non-empty, then a .env file if present,
// then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env never overrides variables already set in the process environment.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	var c Config
	c.ListenAddr = "127.0.0.1:8080"
	c.DBPath = "./data/firmware-catalog.db"

	c.Feed.URL = "./releases.json"
	c.Feed.TimeoutSec = 15

	c.Identity.URL = "https://api64.ipify.org?format=json"
	c.Identity.TimeoutSec = 5

	c.Catalog.Sort = "recency"

	c.Gate.CooldownSec = 60
	c.Gate.TickMs = 1000
	c.Gate.Store = "sqlite"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.FilePath = "./data/log/firmware-catalog.log"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
	c.Logging.Compress = true
	c.Logging.SyslogAddr = ""
	c.Logging.SyslogNet = "udp"

	c.Webhooks.TimeoutSec = 5
	c.Webhooks.Retries = 3

	c.CORS.AllowedOrigins = []string{"*"}
	return c
}

func applyEnv(cfg *Config) {
	setStr(&cfg.ListenAddr, "FWC_LISTEN_ADDR")
	setStr(&cfg.DBPath, "FWC_DB_PATH")

	setStr(&cfg.Feed.URL, "FWC_FEED_URL")
	setPositiveInt(&cfg.Feed.TimeoutSec, "FWC_FEED_TIMEOUT_SEC")

	setStr(&cfg.Identity.URL, "FWC_IDENTITY_URL")
	setPositiveInt(&cfg.Identity.TimeoutSec, "FWC_IDENTITY_TIMEOUT_SEC")

	setList(&cfg.Catalog.VanityTags, "FWC_CATALOG_VANITY_TAGS")
	setStr(&cfg.Catalog.Sort, "FWC_CATALOG_SORT")

	setPositiveInt(&cfg.Gate.CooldownSec, "FWC_GATE_COOLDOWN_SEC")
	setPositiveInt(&cfg.Gate.TickMs, "FWC_GATE_TICK_MS")
	setStr(&cfg.Gate.Store, "FWC_GATE_STORE")

	setStr(&cfg.Webhooks.Secret, "FWC_WEBHOOK_SECRET")
	setPositiveInt(&cfg.Webhooks.TimeoutSec, "FWC_WEBHOOK_TIMEOUT_SEC")
	if v := os.Getenv("FWC_WEBHOOK_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Webhooks.Retries = n
		}
	}

	setList(&cfg.CORS.AllowedOrigins, "FWC_CORS_ALLOWED_ORIGINS")

	// Logging configuration
	setStr(&cfg.Logging.Level, "FWC_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "FWC_LOG_FORMAT")
	setStr(&cfg.Logging.Output, "FWC_LOG_OUTPUT")
	setStr(&cfg.Logging.FilePath, "FWC_LOG_FILE_PATH")
	setStr(&cfg.Logging.SyslogAddr, "FWC_LOG_SYSLOG_ADDR")
	setStr(&cfg.Logging.SyslogNet, "FWC_LOG_SYSLOG_NET")

	setPositiveInt(&cfg.Logging.MaxSizeMB, "FWC_LOG_MAX_SIZE_MB")
	if v := os.Getenv("FWC_LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxBackups = n
		}
	}
	if v := os.Getenv("FWC_LOG_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxAgeDays = n
		}
	}
	if v := os.Getenv("FWC_LOG_COMPRESS"); v != "" {
		cfg.Logging.Compress = v == "1" || strings.ToLower(v) == "true"
	}
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// setList reads a comma-separated list.
func setList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
