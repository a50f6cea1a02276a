package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/idempotency"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// RequestID assigns every request a correlation id, echoed back on
// X-Request-Id and folded into the error body so every response can be
// traced back to its request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// responseRecorder buffers a handler's response so it can be replayed
// verbatim for a repeated idempotency key, and so a successful response
// can be cached after the fact without the handler knowing about replay.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rr *responseRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.body.Write(b)
	return rr.ResponseWriter.Write(b)
}

type idempotentReplay struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Idempotency replays the cached response for a repeated Idempotency-Key
// header on a mutating route, and caches a fresh 2xx response under that
// key otherwise. Non-2xx responses are not cached, so a failed attempt
// can be retried with the same key.
func Idempotency(store idempotency.Store, ttl time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete) {
				next.ServeHTTP(w, r)
				return
			}

			var bodyBytes []byte
			if r.Body != nil {
				bodyBytes, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			}
			hash := bodyHash(r.Method, r.URL.Path, bodyBytes)

			if cached, exists, err := store.Check(r.Context(), key, hash); err != nil {
				writeError(w, r, logger, err)
				return
			} else if exists {
				var replay idempotentReplay
				if err := json.Unmarshal(cached, &replay); err != nil {
					writeError(w, r, logger, err)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(replay.Status)
				w.Write(replay.Body)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				replay := idempotentReplay{Status: rec.status, Body: rec.body.Bytes()}
				if err := store.Store(r.Context(), key, hash, replay, ttl); err != nil {
					logger.Warn().Err(err).Str("key", key).Msg("failed to cache idempotent response")
				}
			}
		})
	}
}

func bodyHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
