package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	apperrors "remoteassist/pkg/errors"
	httputil "remoteassist/pkg/http"
)

type writerState int

const (
	writerOpen writerState = iota
	writerCommitted
	writerExpired
)

// deadlineWriter buffers headers privately and forwards the response only
// while the request deadline has not fired.
type deadlineWriter struct {
	dst     http.ResponseWriter
	headers http.Header

	mu    sync.Mutex
	state writerState
}

func newDeadlineWriter(w http.ResponseWriter) *deadlineWriter {
	return &deadlineWriter{dst: w, headers: make(http.Header)}
}

func (dw *deadlineWriter) Header() http.Header {
	return dw.headers
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.commitLocked(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.state == writerExpired {
		return 0, http.ErrHandlerTimeout
	}
	dw.commitLocked(http.StatusOK)
	return dw.dst.Write(b)
}

// commitLocked sends the status line once. Callers hold mu.
func (dw *deadlineWriter) commitLocked(code int) {
	if dw.state != writerOpen {
		return
	}
	dw.state = writerCommitted
	maps.Copy(dw.dst.Header(), dw.headers)
	dw.dst.WriteHeader(code)
}

// expire marks the writer dead and reports whether nothing was sent yet.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	untouched := dw.state == writerOpen
	dw.state = writerExpired
	return untouched
}

// RequestTimeout bounds each request's context. When the deadline passes
// before the handler has written anything, the client gets a 503.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := newDeadlineWriter(w)
			finished := make(chan any, 1)

			go func() {
				var recovered any
				defer func() {
					if p := recover(); p != nil {
						recovered = p
					}
					finished <- recovered
				}()
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case p := <-finished:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if dw.expire() {
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
				}
			}
		})
	}
}
