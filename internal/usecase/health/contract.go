package health

import "context"

// Pinger checks cache store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional upstream dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
