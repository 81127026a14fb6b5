package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmehdipour/order-sms/internal/util"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

const EnvPrefix = "ORDERSMS"

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig       `mapstructure:"http"`
	Log       LogConfig        `mapstructure:"log"`
	Webhook   WebhookConfig    `mapstructure:"webhook"`
	SMS       SMSConfig        `mapstructure:"sms"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Redis     RedisConfig      `mapstructure:"redis"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	WebhookPath     string        `mapstructure:"webhook_path"`
	BodyLimit       string        `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type WebhookConfig struct {
	SigningKey    string        `mapstructure:"signing_key"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	Enforce       bool          `mapstructure:"enforce"`       // reject bad signature / stale instead of only logging
	Serialization string        `mapstructure:"serialization"` // preserve | sorted
}

type SMSConfig struct {
	To   string `mapstructure:"to"`
	From string `mapstructure:"from"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RateLimitConfig struct {
	RPS    int           `mapstructure:"rps"`
	Window time.Duration `mapstructure:"window"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type ProviderKind string

const (
	ProviderTwilio ProviderKind = "twilio"
	ProviderHTTP   ProviderKind = "http"
)

type ProviderConfig struct {
	Name       string        `mapstructure:"name"`
	Kind       ProviderKind  `mapstructure:"kind"`
	Enabled    bool          `mapstructure:"enabled"`
	AccountSID string        `mapstructure:"account_sid"` // twilio; empty => TWILIO_ACCOUNT_SID
	AuthToken  string        `mapstructure:"auth_token"`  // twilio; empty => TWILIO_AUTH_TOKEN
	BaseURL    string        `mapstructure:"base_url"`    // http
	Path       string        `mapstructure:"path"`        // http
	TimeoutMs  int           `mapstructure:"timeout_ms"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

// Load reads embedded defaults, merges user YAML (if present), and applies env overrides (ORDERSMS_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", path, err)
			}
		}
	}

	// env override (ORDERSMS_WEBHOOK_SIGNING_KEY, ...)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.SMS.To = util.NormalizePhone(cfg.SMS.To)
	cfg.SMS.From = util.NormalizePhone(cfg.SMS.From)
	for i := range cfg.Providers {
		cfg.Providers[i].Kind = ProviderKind(strings.ToLower(strings.TrimSpace(string(cfg.Providers[i].Kind))))
		if cfg.Providers[i].Kind == "" {
			cfg.Providers[i].Kind = ProviderTwilio
		}
	}

	return cfg, nil
}

// Validate reports configuration the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Webhook.SigningKey) == "" {
		errs = append(errs, errors.New("webhook.signing_key is empty"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Webhook.Serialization)) {
	case "", "preserve", "sorted":
	default:
		errs = append(errs, fmt.Errorf("webhook.serialization %q is not preserve|sorted", c.Webhook.Serialization))
	}
	if c.SMS.To == "" {
		errs = append(errs, errors.New("sms.to is empty"))
	}
	if c.SMS.From == "" {
		errs = append(errs, errors.New("sms.from is empty"))
	}

	enabled := 0
	for _, p := range c.Providers {
		if !p.Enabled {
			continue
		}
		enabled++
		switch p.Kind {
		case ProviderTwilio:
		case ProviderHTTP:
			if strings.TrimSpace(p.BaseURL) == "" {
				errs = append(errs, fmt.Errorf("provider %q: base_url is empty", p.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown kind %q", p.Name, p.Kind))
		}
	}
	if enabled == 0 {
		errs = append(errs, errors.New("no providers enabled in config"))
	}

	return errors.Join(errs...)
}
