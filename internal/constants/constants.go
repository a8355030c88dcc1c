package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and credential files.
	ConfigFilePerm = 0600
)

// Configuration locations.
const (
	// ConfigDirName is the directory under the user's home holding CLI state.
	ConfigDirName = ".recapi"

	// ConfigFileName is the base name of the CLI config file (without extension).
	ConfigFileName = "config"

	// CredentialsFileName is the file holding the stored bearer token.
	CredentialsFileName = "credentials.yml"

	// EnvPrefix is the environment variable prefix read by the config layer.
	EnvPrefix = "RECAPI"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout bounds a single transport attempt.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as health probes.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultPollInterval is the period between job status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultJobPollTimeout bounds PollUntilComplete when ctx has no deadline.
	DefaultJobPollTimeout = 5 * time.Minute
)

// Retry limits.
const (
	// DefaultRetryAttempts is the number of retries after the first attempt.
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the base delay of the backoff schedule.
	DefaultRetryBaseDelay = time.Second

	// DefaultRetryMaxDelay caps the exponential and jittered schedules.
	DefaultRetryMaxDelay = 30 * time.Second
)

// Cache defaults.
const (
	// DefaultCacheSize bounds the number of cached responses.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is applied to cacheable reads without an explicit TTL.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheSweepInterval is the interval of the background expiry sweep.
	DefaultCacheSweepInterval = time.Minute

	// MetricsCacheTTL is the lifetime of cached system metrics.
	MetricsCacheTTL = 30 * time.Second
)

// Coalescing defaults.
const (
	// DefaultSearchDebounce is the quiet window for search-as-you-type.
	DefaultSearchDebounce = 300 * time.Millisecond
)

// Concurrency and paging limits.
const (
	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 5

	// DefaultPageSize is the page size requested when none is given.
	DefaultPageSize = 20

	// DefaultMaxPages bounds FetchAllPages when the caller gives no limit.
	DefaultMaxPages = 100

	// DefaultBatchTimeout bounds a single batch operation.
	DefaultBatchTimeout = 5 * time.Minute
)

// HTTP header names.
const (
	HeaderAuthorization  = "Authorization"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderUserAgent      = "User-Agent"
	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"

	ContentTypeJSON = "application/json"
)

// User agent.
const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "recapi-client/1.0"
)

// API paths.
const (
	APIPathJobs          = "/api/jobs"
	APIPathRecords       = "/api/records"
	APIPathRecordsSearch = "/api/records/search"
	APIPathImports       = "/api/imports"
	APIPathHealth        = "/api/health"
	APIPathMetrics       = "/api/metrics"
)

// Cache tags attached to cached reads and invalidated by mutations.
const (
	TagJobs    = "jobs"
	TagRecords = "records"
	TagImports = "imports"
	TagMetrics = "metrics"

	// TagJobPrefix and TagRecordPrefix build the per-item tags "job:{id}" and "record:{id}".
	TagJobPrefix    = "job:"
	TagRecordPrefix = "record:"
)

// Coalescing and cancellation keys.
const (
	// SearchCoalesceKey groups search-as-you-type calls into one slot.
	SearchCoalesceKey = "records:search"

	// ImportCancelKeyPrefix prefixes the cancellation key of an upload.
	ImportCancelKeyPrefix = "imports:upload:"

	// ImportFormField is the multipart field carrying the uploaded file.
	ImportFormField = "file"
)

// Format constants.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Display constants.
const (
	// JSONIndentSize is the indent used by the JSON and YAML renderers.
	JSONIndentSize = 2

	// StringTruncationLength bounds long values in table output.
	StringTruncationLength = 80

	// MaxErrorBodyLength bounds the response body quoted in error messages.
	MaxErrorBodyLength = 512

	// NotAvailable is shown for missing values.
	NotAvailable = "N/A"
)
