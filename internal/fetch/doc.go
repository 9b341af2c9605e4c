// Package fetch retrieves pages from the source site.
//
// A Client performs plain HTTP GET requests carrying a fixed browser
// User-Agent. A 200 response yields the body text unchanged. Any other
// status is reported as a *StatusError, which callers treat as "page
// absent" rather than as a failure of the whole run. Transport failures are
// wrapped in ErrTransport so that the crawl can stop.
//
// The client is built on go-resty. Optional bounded retries (transport
// errors, 429 and 5xx only) and a requests-per-second limit applied to every
// attempt can be enabled through options.
package fetch
