// Package relay propagates the post-write state of catalog and ledger
// entities into a secondary PostgreSQL analytics store.
//
// The relay is a best-effort, write-path side effect: it fires synchronously
// after every successful primary-store write, with a bounded per-call
// timeout, and its outcome never affects the primary operation's result.
// Failures are reported only through logs and Prometheus metrics; the
// secondary store may silently diverge until an explicit full sync
// (SyncAll) repairs it.
//
// The relay is an explicit dependency: construct one implementation in main
// and inject it into the services that mutate entities. There is no ambient
// singleton.
package relay

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// Relay mirrors single entities into the analytics store. Implementations
// must be safe for concurrent use. Every method performs one idempotent
// upsert keyed by the entity's primary-store integer ID; foreign-key
// prerequisites are opportunistically inserted first with DO NOTHING
// semantics to reduce ordering failures.
type Relay interface {
	SyncUser(ctx context.Context, u *domain.User) error
	SyncCategory(ctx context.Context, c *domain.Category) error
	SyncBook(ctx context.Context, b *domain.Book) error
	SyncBorrowRecord(ctx context.Context, r *domain.BorrowRecord) error
	SyncReview(ctx context.Context, r *domain.Review) error
}

// Noop is the Relay used when replication is disabled by configuration.
// Every call returns immediately without attempting any connection.
type Noop struct{}

// NewNoop returns the disabled relay.
func NewNoop() Noop { return Noop{} }

func (Noop) SyncUser(context.Context, *domain.User) error                 { return nil }
func (Noop) SyncCategory(context.Context, *domain.Category) error         { return nil }
func (Noop) SyncBook(context.Context, *domain.Book) error                 { return nil }
func (Noop) SyncBorrowRecord(context.Context, *domain.BorrowRecord) error { return nil }
func (Noop) SyncReview(context.Context, *domain.Review) error             { return nil }

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_sync_total",
		Help: "Replication relay upserts by entity and outcome.",
	}, []string{"entity", "outcome"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_sync_duration_seconds",
		Help:    "Latency of replication relay upserts by entity.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})
)

// observe records one relay attempt in the Prometheus counters.
func observe(entity string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	syncTotal.WithLabelValues(entity, outcome).Inc()
	syncDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
}
