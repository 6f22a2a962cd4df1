package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/passkey"
	"github.com/gatehouse-dev/gatehouse/session"
)

var (
	cfgFile string
	apiURL  string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse is an authentication client",
	Long: `A terminal client for Gatehouse authentication servers: password and
passkey sign-in, TOTP two-factor enrollment, and passkey management.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the API server")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for session and credential storage")
}

// loadConfig resolves configuration with flags taking precedence over the
// environment and config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.URL = apiURL
		if cfg.API.Origin == "" {
			cfg.API.Origin = apiURL
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Log.File == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	level := slog.LevelInfo
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(io.Writer(f), &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

// newFlow builds the full client stack: persistent cookie jar, API client,
// session manager, and the software authenticator over its bbolt store.
// The returned cleanup closes both databases.
func newFlow() (*flow.Flow, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	jar, err := client.NewBoltJar(filepath.Join(cfg.DataDir, "session.db"))
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}

	api, err := client.New(cfg.API.URL, client.WithCookieJar(jar), client.WithLogger(logger))
	if err != nil {
		_ = jar.Close()
		closeLog()
		return nil, nil, nil, err
	}

	store, err := passkey.NewBoltStore(filepath.Join(cfg.DataDir, "passkeys.db"))
	if err != nil {
		_ = jar.Close()
		closeLog()
		return nil, nil, nil, err
	}

	authn := passkey.NewSoftAuthenticator(store, cfg.API.Origin)
	sess := session.NewManager(api)
	f := flow.New(api, sess, authn, flow.WithLogger(logger))

	cleanup := func() {
		f.Teardown()
		_ = store.Close()
		_ = jar.Close()
		closeLog()
	}
	return f, cfg, cleanup, nil
}
