package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"golang.org/x/sync/errgroup"
)

const dashboardCacheKey = "dashboard"

// ============================================================
// Dashboard: GET /api/admin/dashboard
// ============================================================

// DashboardStats returns the admin overview. The four counts are read
// concurrently, each in its own unit of work, and the result is cached.
func (s *DirectoryService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.DashboardStats")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard_stats", time.Since(start))
	}()

	if cached, ok := s.statsCache.Get(dashboardCacheKey); ok {
		s.metrics.IncrCacheHit("dashboard")
		stats := *cached
		return &stats, nil
	}
	s.metrics.IncrCacheMiss("dashboard")

	var stats domain.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, name string, fn func(context.Context, port.Tx) (int, error)) {
		g.Go(func() error {
			return s.store.WithinTx(gctx, func(tx port.Tx) error {
				n, err := fn(gctx, tx)
				if err != nil {
					return fmt.Errorf("count %s: %w", name, err)
				}
				*dst = n
				return nil
			})
		})
	}
	count(&stats.TotalCustomers, "customers", func(ctx context.Context, tx port.Tx) (int, error) {
		return tx.CountCustomers(ctx)
	})
	count(&stats.ActiveCustomers, "active customers", func(ctx context.Context, tx port.Tx) (int, error) {
		return tx.CountActiveCustomers(ctx)
	})
	count(&stats.TotalBranches, "branches", func(ctx context.Context, tx port.Tx) (int, error) {
		return tx.CountBranches(ctx)
	})
	count(&stats.TotalEmployees, "employees", func(ctx context.Context, tx port.Tx) (int, error) {
		return tx.CountEmployees(ctx)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cached := stats
	s.statsCache.Set(dashboardCacheKey, &cached)
	return &stats, nil
}

func (s *DirectoryService) invalidateStats() {
	s.statsCache.Delete(dashboardCacheKey)
}
