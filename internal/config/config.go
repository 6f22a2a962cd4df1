// Package config loads CLI configuration from a YAML file and GATEHOUSE_*
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is everything the CLI needs to talk to a Gatehouse server.
type Config struct {
	API APISettings `mapstructure:"api"`
	TUI TUISettings `mapstructure:"tui"`
	Log LogSettings `mapstructure:"log"`

	// DataDir holds the cookie jar and the soft authenticator's
	// credential store.
	DataDir string `mapstructure:"data_dir"`
}

type APISettings struct {
	// URL is the base URL of the API server. Required.
	URL string `mapstructure:"url"`
	// Origin overrides the WebAuthn origin sent during ceremonies.
	// Defaults to the API URL.
	Origin string `mapstructure:"origin"`
}

type TUISettings struct {
	// AltScreen toggles the full-screen terminal UI buffer.
	AltScreen bool `mapstructure:"alt_screen"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	// File receives JSON logs; empty disables logging.
	File string `mapstructure:"file"`
}

// Load reads configuration from path (optional) and the environment.
// GATEHOUSE_API_URL, GATEHOUSE_DATA_DIR, and GATEHOUSE_LOG_LEVEL are the
// common overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GATEHOUSE")
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.API.Origin == "" {
		cfg.API.Origin = cfg.API.URL
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "")
	v.SetDefault("api.origin", "")
	v.SetDefault("tui.alt_screen", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("data_dir", defaultDataDir())
}

// defaultDataDir resolves to a gatehouse directory under the user config
// dir, falling back to the working directory when that cannot be resolved.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".gatehouse"
	}
	return filepath.Join(base, "gatehouse")
}

// Validate checks the loaded configuration before any client is built.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required (set GATEHOUSE_API_URL or --api-url)")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.url must be an http or https URL, got %q", c.API.URL)
	}
	return nil
}
