// Package health reports whether the storefront's dependencies are usable and
// exposes that over HTTP handlers and the standard gRPC health service.
package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report is the overall health status.
type Report struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the health of a single dependency.
type DependencyStatus struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// Checker probes the database and, when configured, Redis. The database is
// required; Redis only backs throttling, which fails open, so losing it
// degrades the service instead of taking it out of rotation.
type Checker struct {
	db    Pinger
	redis *redis.Client
	now   func() time.Time
}

// NewChecker creates a checker. rdb may be nil.
func NewChecker(db Pinger, rdb *redis.Client) *Checker {
	return &Checker{db: db, redis: rdb, now: time.Now}
}

// Check runs every probe and aggregates the result.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Status:       StatusHealthy,
		Timestamp:    c.now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	db := c.probe(ctx, c.db.PingContext)
	report.Dependencies["database"] = db
	if db.Status == StatusUnhealthy {
		report.Status = StatusUnhealthy
	}

	if c.redis != nil {
		rs := c.probe(ctx, func(ctx context.Context) error { return c.redis.Ping(ctx).Err() })
		report.Dependencies["redis"] = rs
		if rs.Status == StatusUnhealthy && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	return report
}

// Ready reports whether the service can take traffic.
func (c *Checker) Ready(ctx context.Context) bool {
	return c.Check(ctx).Status != StatusUnhealthy
}

func (c *Checker) probe(ctx context.Context, ping func(context.Context) error) DependencyStatus {
	start := c.now()
	err := ping(ctx)
	st := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMS: float64(c.now().Sub(start)) / float64(time.Millisecond),
	}
	if err != nil {
		st.Status = StatusUnhealthy
		st.Message = err.Error()
	}
	return st
}
