// Package config provides configuration structures and utilities for storycrawl.
// It defines the crawl settings (source root, output directory, throttle
// bounds, retry policy), the optional configuration file with per-work
// overrides, and the XDG directories used for the progress database.
package config
