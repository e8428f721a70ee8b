package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Ledger  LedgerConfig
	Catalog CatalogConfig
	Notify  NotifyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTLEDGER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CRAFTLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type LedgerConfig struct {
	// Path of the JSON ledger file owned by this process.
	DataFile string `envconfig:"CRAFTLEDGER_DATA_FILE" required:"true"`
}

type CatalogConfig struct {
	// Path of the item catalog / bot configuration file.
	File string `envconfig:"CRAFTLEDGER_CATALOG_FILE" required:"true"`
}

type NotifyConfig struct {
	// Transport selects the outbound notifier: "log" or "webhook".
	Transport  string `envconfig:"CRAFTLEDGER_NOTIFY_TRANSPORT" default:"log"`
	WebhookURL string `envconfig:"CRAFTLEDGER_NOTIFY_WEBHOOK_URL"`
}

// Validate rejects combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	if strings.EqualFold(c.Notify.Transport, "webhook") && c.Notify.WebhookURL == "" {
		return fmt.Errorf("webhook notifier requires CRAFTLEDGER_NOTIFY_WEBHOOK_URL")
	}
	switch strings.ToLower(c.Notify.Transport) {
	case "log", "webhook":
	default:
		return fmt.Errorf("unknown notify transport %q", c.Notify.Transport)
	}
	return nil
}
