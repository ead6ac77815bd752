package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"challan-service/internal/domain/challan"
)

// StatsAggregator derives summary statistics from the record set. It
// recomputes from a full scan on every observed store change rather
// than maintaining increments, which keeps the aggregate drift-free at
// the cost of O(n) per change.
type StatsAggregator struct {
	store ChallanStore
	log   zerolog.Logger

	mu      sync.RWMutex
	current challan.Statistics
}

func NewStatsAggregator(store ChallanStore, log zerolog.Logger) *StatsAggregator {
	return &StatsAggregator{
		store:   store,
		log:     log,
		current: emptyStatistics(),
	}
}

// Run computes the initial aggregate and then recomputes on every
// change signal until ctx is cancelled. It blocks; run it in its own
// goroutine.
func (a *StatsAggregator) Run(ctx context.Context) {
	ch := a.store.Subscribe()
	defer a.store.Unsubscribe(ch)

	a.Recompute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			a.Recompute(ctx)
		}
	}
}

// Recompute rescans the full record set and replaces the aggregate.
func (a *StatsAggregator) Recompute(ctx context.Context) {
	challans, err := a.store.AllChallans(ctx)
	if err != nil {
		// Keep the previous aggregate on a failed scan; the next
		// change signal retries.
		a.log.Error().Err(err).Msg("failed to rescan challans for statistics")
		return
	}

	stats := emptyStatistics()
	for _, c := range challans {
		stats.TotalChallans++
		switch c.Status {
		case challan.StatusPaid:
			stats.PaidChallans++
			stats.TotalRevenue += c.Amount
		default:
			stats.PendingChallans++
		}
		stats.ViolationStats[c.ViolationType]++
		stats.VehicleTypeStats[c.VehicleType]++
	}

	a.mu.Lock()
	a.current = stats
	a.mu.Unlock()

	a.log.Debug().
		Int("total", stats.TotalChallans).
		Int("pending", stats.PendingChallans).
		Int("paid", stats.PaidChallans).
		Float64("revenue", stats.TotalRevenue).
		Msg("statistics recomputed")
}

// Current returns a copy of the latest aggregate.
func (a *StatsAggregator) Current() challan.Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.current
	stats.ViolationStats = make(map[challan.ViolationType]int, len(a.current.ViolationStats))
	for k, v := range a.current.ViolationStats {
		stats.ViolationStats[k] = v
	}
	stats.VehicleTypeStats = make(map[challan.VehicleType]int, len(a.current.VehicleTypeStats))
	for k, v := range a.current.VehicleTypeStats {
		stats.VehicleTypeStats[k] = v
	}
	return stats
}

func emptyStatistics() challan.Statistics {
	return challan.Statistics{
		ViolationStats:   make(map[challan.ViolationType]int),
		VehicleTypeStats: make(map[challan.VehicleType]int),
	}
}
