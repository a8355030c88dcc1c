package recapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// Config represents client configuration for building a recapi.Client.
//
// Durations are read from file and environment as milliseconds (the *_ms
// keys); in code they are plain time.Duration values.
type Config struct {
	// BaseAddress is the root URL of the backend, e.g. "https://records.example.com".
	BaseAddress string

	// Timeout bounds a single transport attempt.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int
	// RetryBaseDelay is the base of the backoff schedule.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the exponential and jittered schedules.
	RetryMaxDelay time.Duration
	// RetryStrategy selects the backoff schedule; empty means linear.
	RetryStrategy BackoffStrategy

	// CachingEnabled turns the response cache on.
	CachingEnabled bool
	// CacheTTL is the lifetime of cached reads without their own TTL.
	CacheTTL time.Duration
	// CacheSweepInterval is the period of the background expiry sweep.
	CacheSweepInterval time.Duration
	// CacheMaxSize bounds the number of cached responses.
	CacheMaxSize int

	// SearchDebounce is the quiet window of search-as-you-type.
	SearchDebounce time.Duration

	// LoggingEnabled turns on request/response tracing.
	LoggingEnabled bool
	// Logger receives client logs. recclient.New builds a zap logger when
	// LoggingEnabled is set and Logger is nil.
	Logger Logger

	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Headers are set on every outgoing request.
	Headers map[string]string

	// Credentials supplies the bearer token. Defaults to an empty in-memory store.
	Credentials CredentialStore

	// Metrics records Prometheus metrics when set.
	Metrics *MetricsCollector

	// Events receives call lifecycle events when set.
	Events EventSink
	// EventsNATSURL and EventsSubject make recclient.New publish events to NATS
	// when Events is nil.
	EventsNATSURL string
	EventsSubject string

	// HTTPClient replaces the underlying *http.Client.
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Timeout:            constants.DefaultHTTPTimeout,
		RetryAttempts:      constants.DefaultRetryAttempts,
		RetryBaseDelay:     constants.DefaultRetryBaseDelay,
		RetryMaxDelay:      constants.DefaultRetryMaxDelay,
		RetryStrategy:      StrategyLinear,
		CachingEnabled:     true,
		CacheTTL:           constants.DefaultCacheTTL,
		CacheSweepInterval: constants.DefaultCacheSweepInterval,
		CacheMaxSize:       constants.DefaultCacheSize,
		SearchDebounce:     constants.DefaultSearchDebounce,
		UserAgent:          constants.DefaultUserAgent,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.BaseAddress == "" {
		return ErrBaseAddressRequired
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetryAttempts, c.RetryAttempts)
	}

	if !c.RetryStrategy.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRetryStrategy, c.RetryStrategy)
	}

	if c.CachingEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCacheTTL, c.CacheTTL)
	}

	return nil
}

// DefaultRetryPolicy is the retry policy applied to calls that do not opt out.
func (c *Config) DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.RetryAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
		Strategy:    c.RetryStrategy,
	}
}

// fileConfig is the on-disk and environment shape of Config.
type fileConfig struct {
	BaseAddress          string            `mapstructure:"base_address"`
	TimeoutMS            int64             `mapstructure:"timeout_ms"`
	RetryAttempts        int               `mapstructure:"retry_attempts"`
	RetryBaseDelayMS     int64             `mapstructure:"retry_base_delay_ms"`
	RetryMaxDelayMS      int64             `mapstructure:"retry_max_delay_ms"`
	RetryStrategy        string            `mapstructure:"retry_strategy"`
	CachingEnabled       bool              `mapstructure:"caching_enabled"`
	CacheTTLMS           int64             `mapstructure:"cache_ttl_ms"`
	CacheSweepIntervalMS int64             `mapstructure:"cache_sweep_interval_ms"`
	CacheMaxSize         int               `mapstructure:"cache_max_size"`
	SearchDebounceMS     int64             `mapstructure:"search_debounce_ms"`
	LoggingEnabled       bool              `mapstructure:"logging_enabled"`
	UserAgent            string            `mapstructure:"user_agent"`
	Headers              map[string]string `mapstructure:"headers"`
	Events               struct {
		NATSURL string `mapstructure:"nats_url"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"events"`
}

// SetConfigDefaults registers the configuration defaults on v.
func SetConfigDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("base_address", "")
	v.SetDefault("timeout_ms", defaults.Timeout.Milliseconds())
	v.SetDefault("retry_attempts", defaults.RetryAttempts)
	v.SetDefault("retry_base_delay_ms", defaults.RetryBaseDelay.Milliseconds())
	v.SetDefault("retry_max_delay_ms", defaults.RetryMaxDelay.Milliseconds())
	v.SetDefault("retry_strategy", string(defaults.RetryStrategy))
	v.SetDefault("caching_enabled", defaults.CachingEnabled)
	v.SetDefault("cache_ttl_ms", defaults.CacheTTL.Milliseconds())
	v.SetDefault("cache_sweep_interval_ms", defaults.CacheSweepInterval.Milliseconds())
	v.SetDefault("cache_max_size", defaults.CacheMaxSize)
	v.SetDefault("search_debounce_ms", defaults.SearchDebounce.Milliseconds())
	v.SetDefault("logging_enabled", false)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "recapi.calls")
}

// LoadConfig builds a Config from v. Defaults are registered on v first, so
// only keys present in the file or environment override them.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, ErrConfigRequired
	}

	SetConfigDefaults(v)

	var fc fileConfig

	err := v.Unmarshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &Config{
		BaseAddress:        fc.BaseAddress,
		Timeout:            millis(fc.TimeoutMS),
		RetryAttempts:      fc.RetryAttempts,
		RetryBaseDelay:     millis(fc.RetryBaseDelayMS),
		RetryMaxDelay:      millis(fc.RetryMaxDelayMS),
		RetryStrategy:      BackoffStrategy(fc.RetryStrategy),
		CachingEnabled:     fc.CachingEnabled,
		CacheTTL:           millis(fc.CacheTTLMS),
		CacheSweepInterval: millis(fc.CacheSweepIntervalMS),
		CacheMaxSize:       fc.CacheMaxSize,
		SearchDebounce:     millis(fc.SearchDebounceMS),
		LoggingEnabled:     fc.LoggingEnabled,
		UserAgent:          fc.UserAgent,
		Headers:            fc.Headers,
		EventsNATSURL:      fc.Events.NATSURL,
		EventsSubject:      fc.Events.Subject,
	}, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
