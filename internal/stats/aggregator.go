// Package stats computes dashboard aggregates from the archived alert
// history. All aggregation is on demand; nothing is cached between calls.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// DefaultTimeSeriesBucket is the bucket width of the attack-frequency
// chart.
const DefaultTimeSeriesBucket = 5 * time.Minute

// topPoolCount caps the most-impacted-pools list in the stats summary.
const topPoolCount = 3

// Aggregator computes dashboard views over the alert history.
type Aggregator struct {
	alerts storage.AlertHistoryStore

	now func() time.Time
}

// NewAggregator creates an aggregator over the given alert history.
func NewAggregator(alerts storage.AlertHistoryStore) *Aggregator {
	return &Aggregator{alerts: alerts, now: time.Now}
}

// MempoolStats summarizes today's alert activity.
func (a *Aggregator) MempoolStats(ctx context.Context) (*domain.MempoolStats, error) {
	alerts, err := a.alerts.GetSince(ctx, a.todayStart())
	if err != nil {
		return nil, fmt.Errorf("load today's alerts: %w", err)
	}

	attackers := make(map[string]struct{})
	pools := make(map[string]int)
	impactUsd := 0.0
	for _, alert := range alerts {
		if alert.Attacker != "" {
			attackers[alert.Attacker] = struct{}{}
		}
		if alert.Pool != "" && alert.Pool != "unknown" {
			pools[alert.Pool]++
		}
		impactUsd += alert.ImpactUsd
	}

	return &domain.MempoolStats{
		TotalAlertsToday:  len(alerts),
		ActiveAttackers:   len(attackers),
		MostImpactedPools: topPools(pools, topPoolCount),
		RecentImpactUsd:   impactUsd,
	}, nil
}

// TokenMetrics groups today's alerts by pool. Pools are ordered by attack
// count, busiest first.
func (a *Aggregator) TokenMetrics(ctx context.Context) ([]*domain.TokenMetrics, error) {
	alerts, err := a.alerts.GetSince(ctx, a.todayStart())
	if err != nil {
		return nil, fmt.Errorf("load today's alerts: %w", err)
	}

	type bucket struct {
		count     int
		attackers map[string]struct{}
		impactUsd float64
		impactPct float64
	}
	buckets := make(map[string]*bucket)
	for _, alert := range alerts {
		pool := alert.Pool
		if pool == "" {
			pool = "unknown"
		}
		b := buckets[pool]
		if b == nil {
			b = &bucket{attackers: make(map[string]struct{})}
			buckets[pool] = b
		}
		b.count++
		b.impactUsd += alert.ImpactUsd
		b.impactPct += alert.ImpactPct
		if alert.Attacker != "" {
			b.attackers[alert.Attacker] = struct{}{}
		}
	}

	metrics := make([]*domain.TokenMetrics, 0, len(buckets))
	for pool, b := range buckets {
		attackers := make([]string, 0, len(b.attackers))
		for addr := range b.attackers {
			attackers = append(attackers, addr)
		}
		sort.Strings(attackers)

		metrics = append(metrics, &domain.TokenMetrics{
			Symbol:                  pool,
			AttackCount:             b.count,
			Attackers:               attackers,
			TotalImpactUsd:          b.impactUsd,
			AverageImpactPercentage: b.impactPct / float64(b.count),
		})
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].AttackCount != metrics[j].AttackCount {
			return metrics[i].AttackCount > metrics[j].AttackCount
		}
		return metrics[i].Symbol < metrics[j].Symbol
	})
	return metrics, nil
}

// TimeSeries buckets alert counts since the given time. Empty buckets are
// materialized so the chart has a continuous x axis.
func (a *Aggregator) TimeSeries(ctx context.Context, since time.Time, bucket time.Duration) ([]*domain.TimeSeriesPoint, error) {
	if bucket <= 0 {
		bucket = DefaultTimeSeriesBucket
	}

	alerts, err := a.alerts.GetSince(ctx, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("load alerts since %v: %w", since, err)
	}

	bucketMs := bucket.Milliseconds()
	start := since.UnixMilli() / bucketMs * bucketMs
	end := a.now().UnixMilli()

	counts := make(map[int64]int)
	for _, alert := range alerts {
		counts[alert.DetectedAt/bucketMs*bucketMs]++
	}

	var points []*domain.TimeSeriesPoint
	for ts := start; ts <= end; ts += bucketMs {
		points = append(points, &domain.TimeSeriesPoint{
			Timestamp: ts,
			Value:     counts[ts],
		})
	}
	return points, nil
}

// todayStart returns the UTC midnight preceding now, in Unix ms.
func (a *Aggregator) todayStart() int64 {
	t := a.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

// topPools picks the n busiest pools, count descending with name as the
// tiebreak.
func topPools(pools map[string]int, n int) []domain.PoolAlertCount {
	counts := make([]domain.PoolAlertCount, 0, len(pools))
	for name, count := range pools {
		counts = append(counts, domain.PoolAlertCount{Name: name, AlertCount: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].AlertCount != counts[j].AlertCount {
			return counts[i].AlertCount > counts[j].AlertCount
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
