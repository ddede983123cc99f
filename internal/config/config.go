// Package config loads server settings from defaults, an optional config
// file, KEYBRIDGE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AliZeynalov/keybridge/internal/models"
	"github.com/AliZeynalov/keybridge/internal/provider"
)

const envPrefix = "KEYBRIDGE"

// Config is the full server configuration
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Dispatch  DispatchConfig            `mapstructure:"dispatch"`
	Log       LogConfig                 `mapstructure:"log"`
	Providers map[string]EndpointConfig `mapstructure:"providers" validate:"dive"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DispatchConfig struct {
	DiscoveryTimeout  time.Duration `mapstructure:"discovery_timeout" validate:"gt=0"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"gt=0"`
	ModelCacheTTL     time.Duration `mapstructure:"model_cache_ttl" validate:"gte=0"`
	Temperature       float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int           `mapstructure:"max_tokens" validate:"gt=0"`
	TopP              float64       `mapstructure:"top_p" validate:"gt=0,lte=1"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// EndpointConfig overrides where one provider is reached and what model it
// falls back to when discovery fails.
type EndpointConfig struct {
	BaseURL      string `mapstructure:"base_url" validate:"omitempty,http_url"`
	DefaultModel string `mapstructure:"default_model"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.max_body_bytes", 20*1024*1024)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("dispatch.discovery_timeout", provider.DefaultDiscoveryTimeout)
	v.SetDefault("dispatch.generation_timeout", provider.DefaultGenerationTimeout)
	v.SetDefault("dispatch.model_cache_ttl", time.Duration(0))
	v.SetDefault("dispatch.temperature", provider.DefaultGeneration.Temperature)
	v.SetDefault("dispatch.max_tokens", provider.DefaultGeneration.MaxTokens)
	v.SetDefault("dispatch.top_p", provider.DefaultGeneration.TopP)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Registering every provider key lets env vars such as
	// KEYBRIDGE_PROVIDERS_OPENAI_BASE_URL reach Unmarshal.
	for _, id := range models.AllProviders {
		v.SetDefault("providers."+string(id)+".base_url", "")
		v.SetDefault("providers."+string(id)+".default_model", "")
	}
}

// AddFlags registers the server flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, toml or json)")
	fs.Int("port", 0, "port to listen on (overrides server.port)")
	fs.String("log-level", "", "log level: trace, debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")
}

// Load builds the configuration. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms hand out the listen port unprefixed.
	if err := v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}

	var file string
	if fs != nil {
		file, _ = fs.GetString("config")
		for key, flag := range map[string]string{
			"server.port": "port",
			"log.level":   "log-level",
			"log.format":  "log-format",
		} {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("keybridge")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/keybridge")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.WithFields(log.Fields{"file": used, "event": "config_loaded"}).Debug("Loaded config file")
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for name := range c.Providers {
		if !models.ProviderID(name).Known() {
			return fmt.Errorf("invalid config: unknown provider %q", name)
		}
	}
	return nil
}

// Endpoints converts provider overrides into adapter endpoints.
func (c *Config) Endpoints() map[models.ProviderID]provider.Endpoint {
	out := make(map[models.ProviderID]provider.Endpoint, len(c.Providers))
	for name, e := range c.Providers {
		if e.BaseURL == "" && e.DefaultModel == "" {
			continue
		}
		out[models.ProviderID(name)] = provider.Endpoint{
			BaseURL:      strings.TrimRight(e.BaseURL, "/"),
			DefaultModel: e.DefaultModel,
		}
	}
	return out
}

// ProviderOptions returns the adapter options shared by every provider.
func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		Cache:             provider.NewModelCache(c.Dispatch.ModelCacheTTL),
		DiscoveryTimeout:  c.Dispatch.DiscoveryTimeout,
		GenerationTimeout: c.Dispatch.GenerationTimeout,
		Generation: provider.GenerationParams{
			Temperature: c.Dispatch.Temperature,
			MaxTokens:   c.Dispatch.MaxTokens,
			TopP:        c.Dispatch.TopP,
		},
	}
}

// SetupLogging applies the log settings to the global logrus logger.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
