// Package storage defines the persistence interfaces the gateway writes to.
package storage

import (
	"context"
	"time"
)

// RequestLog is one structured record per handled request. Message content is
// deliberately not part of the record.
type RequestLog struct {
	ID       string
	Method   string
	Endpoint string
	Status   int
	Duration time.Duration
	ClientID string
	Model    string
	Filtered bool

	CreatedAt time.Time
}

// RequestLogStore receives one record per request. Implementations must be
// safe for concurrent use; the gateway writes asynchronously and never blocks
// a request on the sink.
type RequestLogStore interface {
	LogRequest(ctx context.Context, rec *RequestLog) error
	Close() error
}
