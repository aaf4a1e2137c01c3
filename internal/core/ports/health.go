package ports

import "context"

// HealthChecker checks one backing dependency (database, redis ledger).
// Check returns nil when the dependency can serve traffic.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
