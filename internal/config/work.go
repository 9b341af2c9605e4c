package config

import (
	"fmt"
	"maps"
	"time"

	"dario.cat/mergo"
	"github.com/nao1215/storycrawl/internal/model"
)

// Settings holds crawl-wide options that may be set in the configuration file.
// Nil pointers and zero values mean "not set" and leave the current value alone.
type Settings struct {
	SourceRoot         string         `yaml:"source_root,omitempty" toml:"source_root"`
	OutputDir          string         `yaml:"output_dir,omitempty" toml:"output_dir"`
	DelayMin           *time.Duration `yaml:"delay_min,omitempty" toml:"delay_min"`
	DelayMax           *time.Duration `yaml:"delay_max,omitempty" toml:"delay_max"`
	Retries            *int           `yaml:"retries,omitempty" toml:"retries"`
	RetryWait          *time.Duration `yaml:"retry_wait,omitempty" toml:"retry_wait"`
	RetryMaxWait       *time.Duration `yaml:"retry_max_wait,omitempty" toml:"retry_max_wait"`
	RateLimit          *float64       `yaml:"rate_limit,omitempty" toml:"rate_limit"`
	Timeout            *time.Duration `yaml:"timeout,omitempty" toml:"timeout"`
	UserAgent          string         `yaml:"user_agent,omitempty" toml:"user_agent"`
	MaxBodySize        int64          `yaml:"max_body_size,omitempty" toml:"max_body_size"`
	Resume             *bool          `yaml:"resume,omitempty" toml:"resume"`
	Concurrency        int            `yaml:"concurrency,omitempty" toml:"concurrency"`
	DBDir              string         `yaml:"db_dir,omitempty" toml:"db_dir"`
	SaveToDB           *bool          `yaml:"save_to_db,omitempty" toml:"save_to_db"`
	WriteTitle         *bool          `yaml:"write_title,omitempty" toml:"write_title"`
	PreserveLineBreaks *bool          `yaml:"preserve_line_breaks,omitempty" toml:"preserve_line_breaks"`
	TitleSelector      string         `yaml:"title_selector,omitempty" toml:"title_selector"`
	ContentSelector    string         `yaml:"content_selector,omitempty" toml:"content_selector"`
}

// WorkConfig holds per-work settings from the configuration file.
// Empty fields fall back to File.Defaults, then to the crawl-wide Config.
type WorkConfig struct {
	// Slug identifies the work and names its output file.
	Slug string `yaml:"slug" toml:"slug"`

	// BaseURL overrides the landing page address derived from the source root.
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url"`

	// Cookie is sent with every request for this work.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty" toml:"cookie"`

	// Headers are extra HTTP headers sent with every request for this work.
	Headers map[string]string `yaml:"headers,omitempty" toml:"headers"`

	// TitleSelector overrides the CSS selector for the chapter title.
	TitleSelector string `yaml:"title_selector,omitempty" toml:"title_selector"`

	// ContentSelector overrides the CSS selector for the chapter body.
	ContentSelector string `yaml:"content_selector,omitempty" toml:"content_selector"`

	// WriteTitle overrides whether titles are written before bodies.
	WriteTitle *bool `yaml:"write_title,omitempty" toml:"write_title"`

	// PreserveLineBreaks overrides <br> handling for this work.
	PreserveLineBreaks *bool `yaml:"preserve_line_breaks,omitempty" toml:"preserve_line_breaks"`
}

// File represents the structure of the .storycrawl configuration file.
type File struct {
	// Crawl holds crawl-wide settings.
	Crawl Settings `yaml:"crawl,omitempty" toml:"crawl"`

	// Defaults is applied to every work unless the work overrides it.
	Defaults WorkConfig `yaml:"defaults,omitempty" toml:"defaults"`

	// Works lists the works to crawl when no slug is given on the command line.
	Works []WorkConfig `yaml:"works,omitempty" toml:"works"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Works: make([]WorkConfig, 0)}
}

// validate checks the slugs listed in the file.
func (cf *File) validate() error {
	seen := make(map[string]bool, len(cf.Works))
	for _, w := range cf.Works {
		if err := model.ValidateSlug(w.Slug); err != nil {
			return fmt.Errorf("work %q: %w", w.Slug, err)
		}
		if seen[w.Slug] {
			return fmt.Errorf("work %q is listed more than once", w.Slug)
		}
		seen[w.Slug] = true
	}
	return nil
}

// Slugs returns the slugs of the works listed in the file, in file order.
func (cf *File) Slugs() []string {
	slugs := make([]string, 0, len(cf.Works))
	for _, w := range cf.Works {
		slugs = append(slugs, w.Slug)
	}
	return slugs
}

// GetWorkConfig returns the configuration for a work merged over the defaults.
// Values set on the work win; header maps are merged key by key.
func (cf *File) GetWorkConfig(slug string) (WorkConfig, error) {
	result := WorkConfig{Slug: slug}
	for _, w := range cf.Works {
		if w.Slug == slug {
			result = w
			break
		}
	}
	result.Headers = maps.Clone(result.Headers)

	defaults := cf.Defaults
	defaults.Slug = ""
	defaults.BaseURL = ""
	defaults.Headers = maps.Clone(defaults.Headers)

	if err := mergo.Merge(&result, defaults); err != nil {
		return WorkConfig{}, fmt.Errorf("failed to merge defaults for %q: %w", slug, err)
	}
	return result, nil
}

// ApplyFile copies the settings present in cf onto c.
// Command-line flags are applied after this and take precedence; flags that
// per-work entries could override must also be pinned with Pin.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	c.File = cf
	s := cf.Crawl

	if s.SourceRoot != "" {
		c.SourceRoot = s.SourceRoot
	}
	if s.OutputDir != "" {
		c.OutputDir = s.OutputDir
	}
	if s.DelayMin != nil {
		c.DelayMin = *s.DelayMin
	}
	if s.DelayMax != nil {
		c.DelayMax = *s.DelayMax
	}
	if s.Retries != nil {
		c.Retries = *s.Retries
	}
	if s.RetryWait != nil {
		c.RetryWait = *s.RetryWait
	}
	if s.RetryMaxWait != nil {
		c.RetryMaxWait = *s.RetryMaxWait
	}
	if s.RateLimit != nil {
		c.RateLimit = *s.RateLimit
	}
	if s.Timeout != nil {
		c.Timeout = *s.Timeout
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.MaxBodySize != 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.Resume != nil {
		c.Resume = *s.Resume
	}
	if s.Concurrency != 0 {
		c.Concurrency = s.Concurrency
	}
	if s.DBDir != "" {
		c.DBDir = s.DBDir
	}
	if s.SaveToDB != nil {
		c.SaveToDB = *s.SaveToDB
	}
	if s.WriteTitle != nil {
		c.WriteTitle = *s.WriteTitle
	}
	if s.PreserveLineBreaks != nil {
		c.PreserveLineBreaks = *s.PreserveLineBreaks
	}
	if s.TitleSelector != "" {
		c.TitleSelector = s.TitleSelector
	}
	if s.ContentSelector != "" {
		c.ContentSelector = s.ContentSelector
	}
}

// Per-work option names accepted by Pin.
const (
	OptionWriteTitle         = "write_title"
	OptionPreserveLineBreaks = "preserve_line_breaks"
	OptionTitleSelector      = "title_selector"
	OptionContentSelector    = "content_selector"
)

// Pin marks option as set on the command line. ResolveWork then keeps the
// crawl-wide value instead of a per-work override from the file.
func (c *Config) Pin(option string) {
	if c.pinned == nil {
		c.pinned = make(map[string]bool)
	}
	c.pinned[option] = true
}

// overridable reports whether a per-work value may replace option.
func (c *Config) overridable(option string) bool {
	return !c.pinned[option]
}

// WorkSettings is the effective configuration for crawling one work.
type WorkSettings struct {
	Work               model.Work
	OutputPath         string
	Cookie             string
	Headers            map[string]string
	TitleSelector      string
	ContentSelector    string
	WriteTitle         bool
	PreserveLineBreaks bool
}

// ResolveWork combines crawl-wide settings with the file's per-work
// configuration into the settings used to crawl slug. Per-work values win
// over crawl-wide ones except for options pinned by command-line flags.
func (c *Config) ResolveWork(slug string) (WorkSettings, error) {
	work, err := model.NewWork(c.SourceRoot, slug)
	if err != nil {
		return WorkSettings{}, fmt.Errorf("work %q: %w", slug, err)
	}

	file := c.File
	if file == nil {
		file = NewFile()
	}
	wc, err := file.GetWorkConfig(slug)
	if err != nil {
		return WorkSettings{}, err
	}

	ws := WorkSettings{
		Work:               work,
		Cookie:             wc.Cookie,
		Headers:            wc.Headers,
		TitleSelector:      c.TitleSelector,
		ContentSelector:    c.ContentSelector,
		WriteTitle:         c.WriteTitle,
		PreserveLineBreaks: c.PreserveLineBreaks,
	}
	if wc.BaseURL != "" {
		ws.Work.BaseURL = wc.BaseURL
	}
	if wc.TitleSelector != "" && c.overridable(OptionTitleSelector) {
		ws.TitleSelector = wc.TitleSelector
	}
	if wc.ContentSelector != "" && c.overridable(OptionContentSelector) {
		ws.ContentSelector = wc.ContentSelector
	}
	if wc.WriteTitle != nil && c.overridable(OptionWriteTitle) {
		ws.WriteTitle = *wc.WriteTitle
	}
	if wc.PreserveLineBreaks != nil && c.overridable(OptionPreserveLineBreaks) {
		ws.PreserveLineBreaks = *wc.PreserveLineBreaks
	}
	ws.OutputPath = ws.Work.OutputPath(c.OutputDir)

	return ws, nil
}
