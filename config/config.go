// Package config loads the settings of the fin assistant.
//
// Values come, by increasing priority, from built-in defaults, an optional
// configuration file, a .env file and the environment (prefix FIN_, nested
// keys joined with "_", e.g. FIN_RETRY_MAX_ATTEMPTS).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/etnz/fintalk"
	"github.com/etnz/fintalk/agent/openai"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Backends lists the supported model backends.
var Backends = []string{"groq", "openai", "gemini", "anthropic", "mock"}

// backendDefaults holds the default model and the environment variables
// that may carry the credential of each backend.
var backendDefaults = map[string]struct {
	model   string
	keyVars []string
}{
	"groq":      {"llama-3.3-70b-versatile", []string{"GROQ_API_KEY"}},
	"openai":    {"gpt-4o-mini", []string{"OPENAI_API_KEY"}},
	"gemini":    {"gemini-2.5-flash", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	"anthropic": {"claude-sonnet-4-5", []string{"ANTHROPIC_API_KEY"}},
	"mock":      {"mock", nil},
}

// Config is the process configuration.
type Config struct {
	Backend         string                 `mapstructure:"backend"`
	Model           string                 `mapstructure:"model"`
	APIKey          string                 `mapstructure:"api_key"`
	BaseURL         string                 `mapstructure:"base_url"`
	Currency        string                 `mapstructure:"currency"`
	NegativeAmounts fintalk.NegativePolicy `mapstructure:"negative_amounts"`
	MaxRoundTrips   int                    `mapstructure:"max_round_trips"`
	MaxTokens       int                    `mapstructure:"max_tokens"`
	Timeout         time.Duration          `mapstructure:"timeout"`
	RateLimit       float64                `mapstructure:"rate_limit"`
	Retry           Retry                  `mapstructure:"retry"`
	Kafka           Kafka                  `mapstructure:"kafka"`
}

// Retry bounds the retries of transient backend failures.
type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// Kafka configures the optional ledger event stream. It is off when no
// broker is set.
type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ConfigurationError reports an invalid or missing setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "groq")
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("currency", "INR")
	v.SetDefault("negative_amounts", "accept")
	v.SetDefault("max_round_trips", 8)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("timeout", "60s")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "250ms")
	v.SetDefault("retry.max_delay", "4s")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ledger_entries")
}

// Load reads the configuration. configFile is optional, so are the dotenv
// files (".env" when none is given): a missing one is ignored.
func Load(configFile string, dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		negativePolicyHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return nil, &ConfigurationError{Key: "decode", Reason: err.Error()}
	}
	if err := c.complete(); err != nil {
		return nil, err
	}
	return &c, nil
}

// complete fills backend dependent defaults and validates the result.
func (c *Config) complete() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	defaults, ok := backendDefaults[c.Backend]
	if !ok {
		return &ConfigurationError{Key: "backend", Reason: fmt.Sprintf("unknown backend %q, want one of %s", c.Backend, strings.Join(Backends, ", "))}
	}
	if c.Model == "" {
		c.Model = defaults.model
	}
	if c.BaseURL == "" && c.Backend == "groq" {
		c.BaseURL = openai.GroqBaseURL
	}
	for _, name := range defaults.keyVars {
		if c.APIKey != "" {
			break
		}
		c.APIKey = os.Getenv(name)
	}
	if c.Backend != "mock" && c.APIKey == "" {
		return &ConfigurationError{Key: "api_key", Reason: fmt.Sprintf("missing credential for %s, set FIN_API_KEY or %s", c.Backend, strings.Join(defaults.keyVars, " or "))}
	}

	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if !fintalk.ValidCurrency(c.Currency) {
		return &ConfigurationError{Key: "currency", Reason: fmt.Sprintf("unknown currency %q", c.Currency)}
	}
	if c.MaxRoundTrips < 1 {
		return &ConfigurationError{Key: "max_round_trips", Reason: "must be at least 1"}
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 1
	}
	if c.RateLimit < 0 {
		return &ConfigurationError{Key: "rate_limit", Reason: "must not be negative"}
	}
	c.Kafka.Brokers = slices.DeleteFunc(c.Kafka.Brokers, func(b string) bool { return strings.TrimSpace(b) == "" })
	return nil
}

var policyType = reflect.TypeOf(fintalk.AcceptNegative)

func negativePolicyHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != policyType {
		return data, nil
	}
	return fintalk.ParseNegativePolicy(data.(string))
}
