package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/repository"
)

// GroupBy selects the grouping key for report summaries.
type GroupBy string

const (
	GroupByTeam  GroupBy = "team"
	GroupByStaff GroupBy = "staff"
)

// ReportService aggregates daily report rows into dashboard metrics.
type ReportService struct {
	reportRepo *repository.ReportRepository
	logger     *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(reportRepo *repository.ReportRepository, logger *zap.Logger) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// List returns report rows matching the filter.
func (s *ReportService) List(ctx context.Context, f repository.ReportFilter) ([]models.Report, error) {
	return s.reportRepo.List(ctx, f)
}

// Save creates the report when its ID is zero and updates it otherwise.
func (s *ReportService) Save(ctx context.Context, report *models.Report) error {
	if report.ID == 0 {
		return s.reportRepo.Create(ctx, report)
	}
	return s.reportRepo.Update(ctx, report)
}

// Delete removes a report row.
func (s *ReportService) Delete(ctx context.Context, id uint64) error {
	return s.reportRepo.Delete(ctx, id)
}

// Summarize loads the rows matching the filter and reduces them into
// per-group metric summaries.
func (s *ReportService) Summarize(ctx context.Context, f repository.ReportFilter, groupBy GroupBy) ([]models.ReportSummary, error) {
	if groupBy != GroupByTeam && groupBy != GroupByStaff {
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}
	rows, err := s.reportRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return Summarize(rows, groupBy), nil
}

// Summarize reduces report rows into per-group summaries. Ratios with a
// zero denominator come back as zero rather than Inf or NaN.
func Summarize(rows []models.Report, groupBy GroupBy) []models.ReportSummary {
	type bucket struct {
		leads   int
		closed  int
		spend   float64
		revenue float64
		target  float64
	}

	buckets := make(map[string]*bucket)
	for _, row := range rows {
		key := row.Team
		if groupBy == GroupByStaff {
			key = row.Staff
		}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.leads += row.Leads
		b.closed += row.ClosedOrders
		b.spend += row.AdSpend
		b.revenue += row.Revenue
		b.target += row.KPITarget
	}

	summaries := make([]models.ReportSummary, 0, len(buckets))
	for key, b := range buckets {
		summary := models.ReportSummary{
			Group:        key,
			Leads:        b.leads,
			ClosedOrders: b.closed,
			AdSpend:      b.spend,
			Revenue:      b.revenue,
		}
		if b.leads > 0 {
			summary.ClosingRate = float64(b.closed) / float64(b.leads)
		}
		if b.revenue > 0 {
			summary.CostPercent = b.spend / b.revenue
		}
		if b.target > 0 {
			summary.KPIRatio = b.revenue / b.target
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Group < summaries[j].Group
	})
	return summaries
}
