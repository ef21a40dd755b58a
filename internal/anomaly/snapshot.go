package anomaly

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const snapshotTimeout = 10 * time.Second

// gatherSnapshot fetches the business state a scan evaluates, in parallel
// with shared context cancellation. Any source failing fails the scan before
// a single rule runs; a scan over a partial snapshot would raise phantom
// findings.
func (s *Service) gatherSnapshot(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	snap := Snapshot{
		Now:        time.Now().UTC(),
		Thresholds: s.thresholds,
	}

	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveSnapshotLatency("measures", time.Since(start)) }()
		values, err := s.measures.ListAll(ctx)
		if err != nil {
			return err
		}
		snap.Measures = values
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveSnapshotLatency("provenance", time.Since(start)) }()
		records, err := s.provenance.ListAll(ctx)
		if err != nil {
			return err
		}
		snap.Provenance = records
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveSnapshotLatency("benchmarks", time.Since(start)) }()
		benchmarks, err := s.benchmarks.List(ctx)
		if err != nil {
			return err
		}
		snap.Benchmarks = benchmarks
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveSnapshotLatency("engagements", time.Since(start)) }()
		engagements, err := s.engagements.List(ctx)
		if err != nil {
			return err
		}
		snap.Engagements = engagements
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveSnapshotLatency("recommendations", time.Since(start)) }()
		contents, err := s.recommendations.List(ctx)
		if err != nil {
			return err
		}
		snap.Recommendations = contents
		return nil
	})
	g.Go(func() error {
		last, err := s.store.LastScan(ctx)
		if err != nil {
			return err
		}
		if last != nil {
			snap.LastScanAt = last.CompletedAt
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
