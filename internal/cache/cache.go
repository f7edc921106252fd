package cache

import (
	"context"
	"time"

	"sarisari/backend/internal/domain"
)

// ReportCache caches derived daily summaries. Reports are idempotent, so
// entries expire by TTL only and are never invalidated explicitly.
type ReportCache interface {
	GetDailySummary(ctx context.Context, key string) (*domain.DailySummary, bool, error)
	SetDailySummary(ctx context.Context, key string, value *domain.DailySummary, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) GetDailySummary(_ context.Context, _ string) (*domain.DailySummary, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetDailySummary(_ context.Context, _ string, _ *domain.DailySummary, _ time.Duration) error {
	return nil
}
