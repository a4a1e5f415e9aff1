package server

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// rateLimitContextKey is the context key for rate limit info
type rateLimitContextKey struct{}

// RateLimitInfo carries the admission outcome from the handler to the header
// middleware so the X-RateLimit headers appear on every response.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
	// RetryAfter, when positive, adds a Retry-After header (denials).
	RetryAfter time.Duration
}

// SetRateLimits stores rate limit info in context for the middleware to write as headers.
func SetRateLimits(ctx context.Context, rl *RateLimitInfo) context.Context {
	return context.WithValue(ctx, rateLimitContextKey{}, rl)
}

// GetRateLimits retrieves rate limit info from context.
// Returns nil if no rate limits are set.
func GetRateLimits(ctx context.Context) *RateLimitInfo {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		return rl
	}
	return nil
}

// RateLimitHeaderMiddleware writes X-RateLimit-* (and Retry-After) headers on
// responses whose handler recorded an admission outcome in the context. The
// headers are written lazily, just before the first byte of the response.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The handler mutates the info after this middleware runs, so
		// seed the context with an empty record it can fill in.
		info := &RateLimitInfo{}
		ctx := SetRateLimits(r.Context(), info)

		wrapped := &rateLimitResponseWriter{ResponseWriter: w, info: info}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// rateLimitResponseWriter wraps ResponseWriter to write rate limit headers.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	info         *RateLimitInfo
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	info := rw.info
	if info == nil || info.Limit == 0 {
		return
	}

	h := rw.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if !info.Reset.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
	}
	if info.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())))
	}
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *rateLimitResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
