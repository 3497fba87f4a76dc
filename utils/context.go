package utils

import (
	"context"
	"time"
)

// Timeout tiers for outbound calls. Mongo reads/writes use the default;
// chunk-heavy deletes use the long tier; cache lookups use the short one.
const (
	DefaultTimeout = 10 * time.Second
	LongTimeout    = 30 * time.Second
	ShortTimeout   = 2 * time.Second
)

// WithTimeout creates a context with the default database timeout.
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context for operations that touch many rows.
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context for quick lookups.
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithCustomTimeout creates a context with an explicit timeout duration.
func WithCustomTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}
