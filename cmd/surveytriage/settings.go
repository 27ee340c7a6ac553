package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/surveytriage/internal/config"
	applog "github.com/nao1215/surveytriage/internal/log"
	"github.com/spf13/cobra"
)

// addLookupFlags registers the flags shared by commands that query the content API.
func addLookupFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", config.NewConfig().BaseURL,
		"Content API search endpoint")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each content API request")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of concurrent lookups")
	cmd.Flags().Int("retries", 0,
		fmt.Sprintf("Retries for temporary failures (0 to %d)", config.MaxRetries))
	cmd.Flags().Float64("rate-limit", 0,
		"Maximum requests per second (0 disables rate limiting)")
	cmd.Flags().String("proxy", "",
		"Outbound proxy URL (http, https, socks5 or socks5h)")
	cmd.Flags().String("cache", config.CacheSQLite,
		"Page cache backend: sqlite, redis or none")
	cmd.Flags().String("redis-addr", "",
		"Redis address for the redis cache backend (host:port)")
}

// addScrubFlags registers the flags that shape the scrubber.
func addScrubFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile", config.DefaultProfile,
		"Scrub profile: typed or masked")
	cmd.Flags().StringSlice("kinds", nil,
		"Built-in patterns in precedence order (default passport,date,phone,ni,vrp,email)")
	cmd.Flags().String("digit-mask", "",
		"Replacement for residual digits in the masked profile")
}

// loadConfig builds the configuration for cmd: defaults, then the config
// file, then flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath := getStringFlag(cmd, "config")

	cfg := config.NewConfig()
	if path := config.FindConfigFile(configPath); path != "" {
		loaded, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg = loaded
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg. Flags a command
// does not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	overrides := []error{
		override(cmd, "base-url", flags.GetString, &cfg.BaseURL),
		override(cmd, "timeout", flags.GetDuration, &cfg.Timeout),
		override(cmd, "concurrency", flags.GetInt, &cfg.Concurrency),
		override(cmd, "retries", flags.GetInt, &cfg.Retries),
		override(cmd, "rate-limit", flags.GetFloat64, &cfg.RateLimit),
		override(cmd, "proxy", flags.GetString, &cfg.Proxy),
		override(cmd, "no-lookup", flags.GetBool, &cfg.NoLookup),
		override(cmd, "cache", flags.GetString, &cfg.CacheBackend),
		override(cmd, "redis-addr", flags.GetString, &cfg.Redis.Address),
		override(cmd, "profile", flags.GetString, &cfg.Profile),
		override(cmd, "kinds", flags.GetStringSlice, &cfg.Kinds),
		override(cmd, "digit-mask", flags.GetString, &cfg.DigitMask),
		override(cmd, "url-column", flags.GetString, &cfg.URLColumn),
		override(cmd, "comment-marker", flags.GetString, &cfg.CommentMarker),
		override(cmd, "columns", flags.GetStringSlice, &cfg.ScrubColumns),
		override(cmd, "audit", flags.GetBool, &cfg.Audit),
		override(cmd, "batch", flags.GetInt, &cfg.BatchSize),
		override(cmd, "output-dir", flags.GetString, &cfg.OutputDir),
		override(cmd, "listen", flags.GetString, &cfg.ListenAddress),
		override(cmd, "db-dir", flags.GetString, &cfg.DBDir),
	}
	for _, err := range overrides {
		if err != nil {
			return err
		}
	}

	var noDB bool
	if err := override(cmd, "no-db", flags.GetBool, &noDB); err != nil {
		return err
	}
	if noDB {
		cfg.SaveToDB = false
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return nil
}

// override stores the value of flag name in dst when the user set it.
func override[T any](cmd *cobra.Command, name string, get func(string) (T, error), dst *T) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag retrieves a string flag from the command or its parent.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger creates the secure structured logger and makes it the default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := applog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// elapsedString formats a duration for terminal output.
func elapsedString(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
