package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoWork is returned when no work slug is given on the command line
	// or in the configuration file.
	ErrNoWork = errors.New("no work specified: provide a slug or list works in the configuration file")

	// ErrInvalidSourceRoot is returned when the source root is not an absolute http(s) URL.
	ErrInvalidSourceRoot = errors.New("invalid source root: must be an absolute http or https URL")

	// ErrInvalidDelayRange is returned when the delay bounds are negative or inverted.
	ErrInvalidDelayRange = errors.New("invalid delay range: need 0 <= delay-min <= delay-max")

	// ErrInvalidRetries is returned when the retry count or waits are negative.
	ErrInvalidRetries = errors.New("invalid retry policy: retries and waits must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")
)
