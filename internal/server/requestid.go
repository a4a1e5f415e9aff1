package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDKey identifies the request ID in the context.
type requestIDKey struct{}

// RequestIDMiddleware assigns every request a fresh UUID, exposed both in the
// context and as the X-Request-ID response header so log lines and client
// reports can be correlated.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request's ID, or "" outside the middleware.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}
