package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/observability"
)

// traceHooks logs HTTP and cache events at debug level.
type traceHooks struct {
	logger *log.Logger
}

// installTraceHooks registers traceHooks for HTTP and cache events.
func installTraceHooks(logger *log.Logger) {
	h := &traceHooks{logger: logger}
	observability.SetHTTPHooks(h)
	observability.SetCacheHooks(h)
}

func (h *traceHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *traceHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *traceHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

func (h *traceHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}

func (h *traceHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", key)
}

func (h *traceHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cache set", "key", key, "bytes", size)
}
