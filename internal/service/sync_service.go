package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/models"
)

const syncPageSize = 200

// PageSource is the read side of an order store the sync job can pull
// from. The legacy API client satisfies it.
type PageSource interface {
	FetchPage(ctx context.Context, q grid.Query) (*grid.PageResult, error)
}

// OrderSink is the write side of the sync. The order repository
// satisfies it.
type OrderSink interface {
	Upsert(ctx context.Context, order *models.Order) error
}

// SyncStats summarizes one sync run.
type SyncStats struct {
	Pages    int
	Upserted int
	Skipped  int
	Duration time.Duration
}

// SyncService copies order rows from the legacy spreadsheet API into
// Postgres, page by page.
type SyncService struct {
	source PageSource
	sink   OrderSink
	logger *zap.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(source PageSource, sink OrderSink, logger *zap.Logger) *SyncService {
	return &SyncService{
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Run pulls every page from the source and upserts each row. Rows
// without an order code are counted and skipped.
func (s *SyncService) Run(ctx context.Context) (SyncStats, error) {
	start := time.Now()
	stats := SyncStats{}

	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := s.source.FetchPage(ctx, grid.Query{Page: page, PageSize: syncPageSize})
		if err != nil {
			return stats, fmt.Errorf("fetch page %d: %w", page, err)
		}
		stats.Pages++

		for _, row := range result.Rows {
			order := models.OrderFromRow(row)
			if order.OrderCode == "" {
				stats.Skipped++
				continue
			}
			if err := s.sink.Upsert(ctx, order); err != nil {
				return stats, fmt.Errorf("upsert %s: %w", order.OrderCode, err)
			}
			stats.Upserted++
		}

		if page >= result.TotalPages || len(result.Rows) == 0 {
			break
		}
		page++
	}

	stats.Duration = time.Since(start)
	s.logger.Info("sync finished",
		zap.Int("pages", stats.Pages),
		zap.Int("upserted", stats.Upserted),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
