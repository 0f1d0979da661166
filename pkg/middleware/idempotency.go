package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "remoteassist/pkg/errors"
	httputil "remoteassist/pkg/http"
	"remoteassist/pkg/logger"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

// Reservation is the outcome of claiming an idempotency key.
type Reservation int

const (
	// Reserved means the caller owns the key and must Complete or Release it.
	Reserved Reservation = iota
	// Replay means a finished response is stored for the key.
	Replay
	// InProgress means another request holds the key.
	InProgress
)

// IdempotencyStore claims keys before a request runs so that concurrent
// duplicates are rejected instead of executed twice. Store failures are
// treated as Reserved.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (Reservation, *StoredResponse)
	Complete(ctx context.Context, key string, response *StoredResponse)
	Release(ctx context.Context, key string)
	Stop()
}

// StoredResponse is a finished 2xx answer kept for replay.
type StoredResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// writeTo replays the response. The request id of the original call is not
// copied; the replaying request has its own.
func (sr *StoredResponse) writeTo(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range sr.Headers {
		if name != RequestIDHeader {
			h[name] = append(h[name], values...)
		}
	}
	w.WriteHeader(sr.StatusCode)
	_, _ = w.Write(sr.Body)
}

// memoryEntry is pending while response is nil.
type memoryEntry struct {
	response *StoredResponse
	deadline time.Time
}

// MemoryIdempotencyStore keeps keys in process memory. It only guards a
// single replica.
type MemoryIdempotencyStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry

	done     chan struct{}
	stopOnce sync.Once
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string) (Reservation, *StoredResponse) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && now.Before(e.deadline) {
		if e.response == nil {
			return InProgress, nil
		}
		return Replay, e.response
	}
	s.entries[key] = memoryEntry{deadline: now.Add(s.ttl)}
	return Reserved, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, response *StoredResponse) {
	response.StoredAt = time.Now()

	s.mu.Lock()
	s.entries[key] = memoryEntry{response: response, deadline: response.StoredAt.Add(s.ttl)}
	s.mu.Unlock()
}

// Release drops a pending key. Completed keys are kept.
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.response == nil {
		delete(s.entries, key)
	}
}

func (s *MemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *MemoryIdempotencyStore) sweepLoop() {
	ticker := time.NewTicker(sweepInterval(s.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *MemoryIdempotencyStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if !now.Before(e.deadline) {
			delete(s.entries, key)
		}
	}
}

// recordingWriter tees the response body so it can be stored.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (rw *recordingWriter) succeeded() bool {
	return rw.status >= 200 && rw.status < 300
}

// Idempotency replays the first successful response for a repeated key on
// the same method and path. A duplicate that arrives while the first request
// is still running gets 409. Failed responses release the key so the client
// can retry.
func Idempotency(store IdempotencyStore, headerName string, log *logger.Logger) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(headerName)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Method + " " + r.URL.Path + ":" + clientKey
			reqLog := log.With("request_id", GetRequestID(r.Context()), "path", r.URL.Path)

			state, stored := store.Reserve(r.Context(), key)
			switch state {
			case Replay:
				stored.writeTo(w)
				reqLog.Info("Replayed idempotent response")
				return
			case InProgress:
				reqLog.Warn("Rejected concurrent idempotent request")
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this Idempotency-Key is still being processed"))
				return
			}

			// the outcome is recorded even when the client has gone away
			storeCtx := context.WithoutCancel(r.Context())
			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				// also reached when the handler panics
				if stored == nil {
					store.Release(storeCtx, key)
				}
			}()

			next.ServeHTTP(rec, r)

			if rec.succeeded() {
				stored = &StoredResponse{
					StatusCode: rec.status,
					Headers:    w.Header().Clone(),
					Body:       rec.body.Bytes(),
				}
				store.Complete(storeCtx, key, stored)
			}
		})
	}
}
