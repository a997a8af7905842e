package gateway

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler, returning a new Handler with added
// behaviour.
type Middleware func(next http.Handler) http.Handler

// Chain composes multiple middleware into a single Middleware.
// The first middleware in the list is the outermost (runs first).
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that turns a panic into a 500 JSON response.
func Recovery(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.ErrorContext(r.Context(), "handler panicked",
						"request_id", RequestIDFrom(r.Context()),
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// --- RequestID middleware ---

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns a Middleware that tags every request with an ID, reusing
// a well-formed incoming X-Request-Id and minting a UUID otherwise.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFrom returns the request ID stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// --- Logger middleware ---

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer for
// flushing.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Logger returns a Middleware that logs method, path, status and duration of
// every request.
func Logger(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}

			log.Log(r.Context(), level, "request",
				"request_id", RequestIDFrom(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", sw.bytes,
				"duration", time.Since(start),
				"remote", clientIP(r),
			)
		})
	}
}

// --- CORS middleware ---

// AllowedHeaders is the Access-Control-Allow-Headers value sent to browsers.
const AllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS returns a Middleware that allows any origin and answers preflight
// requests directly.
func CORS() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Headers", AllowedHeaders)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Auth middleware ---

// Auth returns a Middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check. Preflight requests and health checks
// are always allowed.
func Auth(token string) Middleware {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || r.URL.Path == HealthPath {
				next.ServeHTTP(w, r)
				return
			}

			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- RateLimit middleware ---

// visitorTTL is how long an idle client's bucket is kept.
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per client address.
type limiterSet struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > visitorTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// RateLimit returns a Middleware that limits each client address to rps
// requests per second with the given burst. Rejected requests get a 429 with
// msg as the error. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int, msg string) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		set := newLimiterSet(rps, burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == HealthPath {
				next.ServeHTTP(w, r)
				return
			}
			if !set.allow(clientIP(r)) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", max(1, int(1/rps))))
				writeError(w, http.StatusTooManyRequests, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of the connection's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
