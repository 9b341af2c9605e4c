// Package log builds the slog loggers used by storycrawl.
//
// Every logger returned here wraps its handler in a RedactingHandler, which
// masks request credentials before they are written. Per-work cookies and
// extra headers come from the configuration file and would otherwise appear
// in debug output of the fetcher.
//
//	logger := log.NewLogger(os.Stdout, verbose, "text")
//	logger.Debug("request", "cookie", "session=abc") // cookie=***REDACTED***
package log
