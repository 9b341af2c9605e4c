package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/storycrawl/internal/log"
)

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("200 returns the body unchanged", func(t *testing.T) {
		t.Parallel()

		body := "  <html><h1>Chương 1</h1></html>\n\n"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, body)
		}))
		defer srv.Close()

		got, err := New().Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != body {
			t.Errorf("expected %q, got %q", body, got)
		}
	})

	t.Run("sends the browser user agent", func(t *testing.T) {
		t.Parallel()

		var ua atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua.Store(r.Header.Get("User-Agent"))
		}))
		defer srv.Close()

		if _, err := New().Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ua.Load(); got != DefaultUserAgent {
			t.Errorf("expected User-Agent %q, got %q", DefaultUserAgent, got)
		}
	})

	t.Run("sends cookie and extra headers", func(t *testing.T) {
		t.Parallel()

		var cookie, lang atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie.Store(r.Header.Get("Cookie"))
			lang.Store(r.Header.Get("Accept-Language"))
		}))
		defer srv.Close()

		c := New(WithCookie("sid=abc"), WithHeaders(map[string]string{"Accept-Language": "vi"}))
		if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cookie.Load() != "sid=abc" {
			t.Errorf("expected cookie, got %v", cookie.Load())
		}
		if lang.Load() != "vi" {
			t.Errorf("expected Accept-Language, got %v", lang.Load())
		}
	})

	t.Run("non-200 returns StatusError and logs a warning", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		c := New(WithLogger(log.NewLogger(&buf, false, log.FormatText)))
		_, err := c.Fetch(context.Background(), srv.URL+"/chuong-9")

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", se.StatusCode)
		}
		if !errors.Is(err, ErrUnexpectedStatus) || !IsAbsent(err) {
			t.Error("expected error to match ErrUnexpectedStatus")
		}
		if errors.Is(err, ErrTransport) {
			t.Error("status errors must not match ErrTransport")
		}
		if !strings.Contains(buf.String(), "chuong-9") || !strings.Contains(buf.String(), "404") {
			t.Errorf("expected diagnostic naming URL and status, got %s", buf.String())
		}
	})

	t.Run("transport failure wraps ErrTransport", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := New().Fetch(context.Background(), addr)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("invalid URL returns ErrInvalidURL", func(t *testing.T) {
		t.Parallel()

		_, err := New().Fetch(context.Background(), "truyenfull.io/abc")
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("oversized body is a transport error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, strings.Repeat("a", 1024))
		}))
		defer srv.Close()

		_, err := New(WithMaxBodySize(100)).Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("cancelled context returns context error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New().Fetch(ctx, srv.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestClient_Retry(t *testing.T) {
	t.Parallel()

	t.Run("no retry by default", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := New().Fetch(context.Background(), srv.URL)
		if !IsAbsent(err) {
			t.Errorf("expected absence, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", hits.Load())
		}
	})

	t.Run("5xx is retried until success", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		c := New(WithRetry(3, time.Millisecond, 5*time.Millisecond))
		got, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Errorf("expected ok, got %q", got)
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", hits.Load())
		}
	})

	t.Run("404 is not retried", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := New(WithRetry(3, time.Millisecond, 5*time.Millisecond))
		if _, err := c.Fetch(context.Background(), srv.URL); !IsAbsent(err) {
			t.Errorf("expected absence, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", hits.Load())
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := New(WithRetry(2, time.Millisecond, 5*time.Millisecond))
		_, err := c.Fetch(context.Background(), srv.URL)

		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected 429 StatusError, got %v", err)
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", hits.Load())
		}
	})
}

func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	c := New(WithRateLimit(20))
	start := time.Now()
	for range 3 {
		if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Burst of one: the second and third request each wait about 50ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected rate limiting, finished in %v", elapsed)
	}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection error", err: errors.New("connection refused"), want: true},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "oversized body", err: &http.MaxBytesError{Limit: 1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldRetry(nil, tt.err); got != tt.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// countingTransport counts round trips before delegating to the default transport.
type countingTransport struct {
	n atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_Transport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	rt := &countingTransport{}
	c := New(WithTransport(rt))
	for range 2 {
		if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := rt.n.Load(); got != 2 {
		t.Errorf("expected 2 round trips, got %d", got)
	}
}

func TestClient_DebugHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := New(
		WithLogger(log.NewLogger(&buf, true, "text")),
		WithCookie("sid=abc"),
		WithHeaders(map[string]string{"Accept-Language": "vi"}),
	)
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"headers.Cookie=" + log.MaskValue, "headers.Accept-Language=vi", "headers.User-Agent="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "sid=abc") {
		t.Errorf("expected cookie to be masked\n%s", out)
	}
}
