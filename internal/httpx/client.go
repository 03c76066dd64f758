// Package httpx builds the HTTP clients used by the widget-sync side: a
// pooled transport shared by refresh calls and preview transfers, with a thin
// retry layer for transient network faults.
package httpx

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
)

const (
	idleConnTimeout     = 90 * time.Second
	maxIdleConns        = 32
	maxIdleConnsPerHost = 8
)

// NewClient returns an HTTP client with a pooled, HTTP/2-capable transport.
// The loader talks to a single local host, so the pool is kept small; preview
// transfers reuse connections instead of re-dialing per image.
func NewClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	_ = http2.ConfigureTransport(tr)

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

// retryLogger adapts our logger to the retryablehttp.LeveledLogger interface.
// Info and Debug are intentionally silent; only retry-worthy trouble surfaces.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// NewRetryClient wraps NewClient with retries for transient transport faults.
// Retries stay at the transport level: a refresh that fails after these
// attempts is reported once and never re-triggered automatically. The user
// re-runs it manually.
func NewRetryClient(timeout time.Duration, log *logging.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = NewClient(timeout)
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 1 * time.Second
	rc.Logger = &retryLogger{log: log}
	return rc.StandardClient()
}
