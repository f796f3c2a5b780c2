package providers

import "time"

const (
	// shutdownTimeout bounds the final snapshot flush when the core shuts
	// down. The platform gives backgrounded apps only a few seconds.
	shutdownTimeout = 10 * time.Second
)
