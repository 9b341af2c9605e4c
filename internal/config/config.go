package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "storycrawl"

	// DefaultSourceRoot is the site every work slug is resolved against.
	DefaultSourceRoot = "https://truyenfull.io"

	// DefaultOutputDir is where one text file per work is written.
	DefaultOutputDir = "./stories"

	// DefaultDelayMin and DefaultDelayMax bound the random pause taken after
	// each saved chapter.
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second

	// DefaultRetries is the number of extra attempts per fetch.
	// Zero keeps the single-attempt behavior.
	DefaultRetries = 0

	// DefaultRetryWait is the initial wait between fetch attempts.
	DefaultRetryWait = 2 * time.Second

	// DefaultRetryMaxWait caps the backoff between fetch attempts.
	DefaultRetryMaxWait = 30 * time.Second

	// DefaultUserAgent is the browser identification sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTitleSelector locates the chapter title.
	DefaultTitleSelector = "h1"

	// DefaultContentSelector locates the chapter body container.
	DefaultContentSelector = "div.chapter-c"

	// DefaultConcurrency is the number of works crawled at the same time.
	DefaultConcurrency = 1

	// LogFormatText and LogFormatJSON are the accepted log formats.
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for a crawl.
// It is built from defaults, the optional configuration file and CLI flags,
// in that order, and passed down explicitly rather than read from globals.
type Config struct {
	// SourceRoot is the site address slugs are appended to.
	SourceRoot string

	// OutputDir is the directory holding one {slug}.txt file per work.
	OutputDir string

	// Targets is the list of work slugs to crawl.
	Targets []string

	// DelayMin and DelayMax bound the random pause after each saved chapter.
	// When both are whole seconds the pause is a whole number of seconds.
	DelayMin time.Duration
	DelayMax time.Duration

	// Retries is the number of extra attempts for a failed fetch.
	// Only transport errors, 429 and 5xx responses are retried.
	Retries int

	// RetryWait and RetryMaxWait shape the backoff between attempts.
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	// RateLimit caps requests per second across all attempts. Zero disables it.
	RateLimit float64

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// WriteTitle writes each chapter title before its body.
	WriteTitle bool

	// PreserveLineBreaks turns <br> elements into newlines in chapter bodies.
	PreserveLineBreaks bool

	// TitleSelector and ContentSelector are CSS selectors for the chapter
	// title and body container.
	TitleSelector   string
	ContentSelector string

	// Resume keeps the output file and continues after the persisted cursor.
	Resume bool

	// Concurrency is the number of works crawled at the same time.
	// Chapters of one work are always fetched one after another.
	Concurrency int

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat selects "text" or "json" log output.
	LogFormat string

	// Progress shows a progress bar on stderr while crawling.
	Progress bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the file is searched for in the usual locations.
	ConfigFilePath string

	// File holds the loaded configuration file, including per-work overrides.
	File *File

	// pinned names the per-work options set on the command line.
	pinned map[string]bool

	// DBDir is the directory holding the progress database.
	DBDir string

	// SaveToDB records runs, chapters and the resume cursor in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SourceRoot:      DefaultSourceRoot,
		OutputDir:       DefaultOutputDir,
		DelayMin:        DefaultDelayMin,
		DelayMax:        DefaultDelayMax,
		Retries:         DefaultRetries,
		RetryWait:       DefaultRetryWait,
		RetryMaxWait:    DefaultRetryMaxWait,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		TitleSelector:   DefaultTitleSelector,
		ContentSelector: DefaultContentSelector,
		Concurrency:     DefaultConcurrency,
		LogFormat:       LogFormatText,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
		File:            NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for storycrawl.
// On Linux: ~/.local/share/storycrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for storycrawl.
// On Linux: ~/.config/storycrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoWork
	}

	u, err := url.Parse(c.SourceRoot)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSourceRoot
	}

	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return ErrInvalidDelayRange
	}

	if c.Retries < 0 || c.RetryWait < 0 || c.RetryMaxWait < 0 {
		return ErrInvalidRetries
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	return nil
}
