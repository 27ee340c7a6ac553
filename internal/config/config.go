package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/surveytriage/internal/cache"
	"github.com/nao1215/surveytriage/internal/contentapi"
	"github.com/nao1215/surveytriage/internal/dataset"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/pipeline"
	"github.com/nao1215/surveytriage/internal/scrub"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "surveytriage"

	// DefaultTimeout bounds one content API request.
	DefaultTimeout = contentapi.DefaultTimeout

	// DefaultConcurrency is the number of lookups in flight per batch.
	DefaultConcurrency = lookup.DefaultConcurrency

	// DefaultBatchSize is the number of input files cleaned at once.
	DefaultBatchSize = pipeline.DefaultBatchConcurrency

	// DefaultRetryBackoff is the wait before the first retry.
	DefaultRetryBackoff = contentapi.DefaultRetryBackoff

	// MaxRetries caps Retries.
	MaxRetries = 5

	// DefaultCacheTTL is how long a looked-up page stays cached.
	DefaultCacheTTL = 7 * 24 * time.Hour

	// DefaultListenAddress is where `serve` listens.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultProfile is the scrub profile used when none is configured.
	DefaultProfile = string(scrub.ProfileTyped)
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// PatternConfig declares an extra scrub pattern in the config file.
type PatternConfig struct {
	// Kind names the PII category, e.g. "postcode".
	Kind string `yaml:"kind"`

	// Expr is a Go regular expression.
	Expr string `yaml:"expr"`

	// Label is the placeholder label. Defaults to Kind.
	Label string `yaml:"label,omitempty"`
}

// Config holds all configuration options. It is built by NewConfig,
// overlaid with the config file and then with explicitly set flags.
type Config struct {
	// BaseURL is the content API search endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each content API request.
	Timeout time.Duration `yaml:"timeout"`

	// Concurrency is the lookup worker pool size.
	Concurrency int `yaml:"concurrency"`

	// Retries is the number of retries for temporary failures. Zero disables retries.
	Retries int `yaml:"retries"`

	// RetryBackoff is the wait before the first retry. It doubles per attempt.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// RateLimit is the maximum number of requests per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int `yaml:"rate_burst"`

	// Proxy is an optional http, https, socks5 or socks5h proxy URL.
	Proxy string `yaml:"proxy,omitempty"`

	// NoLookup classifies paths without calling the content API.
	NoLookup bool `yaml:"no_lookup"`

	// Profile is the scrub profile, "typed" or "masked".
	Profile string `yaml:"profile"`

	// Kinds lists the built-in patterns in precedence order.
	// Empty means scrub.DefaultKinds.
	Kinds []string `yaml:"kinds,omitempty"`

	// Patterns are extra patterns applied after the built-in ones.
	Patterns []PatternConfig `yaml:"patterns,omitempty"`

	// DigitMask replaces residual digits in the masked profile.
	DigitMask string `yaml:"digit_mask,omitempty"`

	// Audit stores a SHA3-256 digest of every scrubbed cell.
	Audit bool `yaml:"audit"`

	// URLColumn holds the page path of each response.
	URLColumn string `yaml:"url_column"`

	// CommentMarker selects comment columns by substring.
	CommentMarker string `yaml:"comment_marker"`

	// ScrubColumns, when set, replaces marker-based column selection.
	ScrubColumns []string `yaml:"scrub_columns,omitempty"`

	// CacheBackend is one of "sqlite", "redis" or "none".
	CacheBackend string `yaml:"cache_backend"`

	// CacheTTL is how long a looked-up page is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Redis configures the redis cache backend.
	Redis cache.Config `yaml:"redis,omitempty"`

	// DBDir is the directory of the SQLite database.
	DBDir string `yaml:"db_dir"`

	// SaveToDB persists URL records, runs and audit entries.
	SaveToDB bool `yaml:"save_to_db"`

	// BatchSize is the number of input files processed concurrently.
	BatchSize int `yaml:"batch_size"`

	// OutputDir receives cleaned files. Empty means next to the input.
	OutputDir string `yaml:"output_dir,omitempty"`

	// ListenAddress is the address of the HTTP API.
	ListenAddress string `yaml:"listen_address"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the config was loaded from, if any.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:       contentapi.DefaultBaseURL,
		Timeout:       DefaultTimeout,
		Concurrency:   DefaultConcurrency,
		RetryBackoff:  DefaultRetryBackoff,
		RateBurst:     1,
		Profile:       DefaultProfile,
		URLColumn:     dataset.DefaultURLColumn,
		CommentMarker: dataset.DefaultCommentMarker,
		CacheBackend:  CacheSQLite,
		CacheTTL:      DefaultCacheTTL,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		BatchSize:     DefaultBatchSize,
		ListenAddress: DefaultListenAddress,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/surveytriage.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/surveytriage.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Retries < 0 || c.Retries > MaxRetries {
		return ErrInvalidRetries
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateBurst <= 0) {
		return ErrInvalidRateLimit
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if c.URLColumn == "" {
		return ErrEmptyURLColumn
	}
	if !c.NoLookup {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidBaseURL
		}
	}

	switch c.CacheBackend {
	case CacheNone, CacheSQLite:
	case CacheRedis:
		if c.Redis.Address == "" {
			return ErrMissingRedisAddress
		}
	default:
		return ErrUnknownCacheBackend
	}
	if c.CacheBackend == CacheSQLite && c.DBDir == "" {
		return ErrEmptyDBDir
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrEmptyDBDir
	}

	if _, err := scrub.ParseProfile(c.Profile); err != nil {
		return err
	}
	if _, err := scrub.PatternsFor(c.ScrubKinds()); err != nil {
		return err
	}
	for _, p := range c.Patterns {
		if p.Kind == "" {
			return ErrInvalidPattern
		}
		if _, err := scrub.NewPattern(scrub.Kind(p.Kind), p.Expr, p.Label); err != nil {
			return err
		}
	}
	return nil
}

// ScrubKinds returns the configured built-in kinds, or scrub.DefaultKinds.
func (c *Config) ScrubKinds() []scrub.Kind {
	if len(c.Kinds) == 0 {
		return scrub.DefaultKinds()
	}
	kinds := make([]scrub.Kind, len(c.Kinds))
	for i, k := range c.Kinds {
		kinds[i] = scrub.Kind(k)
	}
	return kinds
}

// NewScrubber builds the scrubber described by the configuration.
func (c *Config) NewScrubber() (*scrub.Scrubber, error) {
	profile, err := scrub.ParseProfile(c.Profile)
	if err != nil {
		return nil, err
	}
	patterns, err := scrub.PatternsFor(c.ScrubKinds())
	if err != nil {
		return nil, err
	}
	for _, pc := range c.Patterns {
		p, err := scrub.NewPattern(scrub.Kind(pc.Kind), pc.Expr, pc.Label)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	opts := []scrub.Option{scrub.WithProfile(profile)}
	if profile == scrub.ProfileMasked && c.DigitMask != "" {
		opts = append(opts, scrub.WithDigitMask(c.DigitMask))
	}
	return scrub.New(patterns, opts...), nil
}
