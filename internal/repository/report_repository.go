package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/folkops/opsboard/internal/models"
)

// ErrReportNotFound is returned when a report row does not exist.
var ErrReportNotFound = errors.New("report not found")

// ReportFilter narrows report queries.
type ReportFilter struct {
	Team     string
	Staff    []string
	DateFrom string
	DateTo   string
}

// ReportRepository handles database operations for team report rows.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) filtered(ctx context.Context, f ReportFilter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Report{})
	if f.Team != "" {
		tx = tx.Where("team = ?", f.Team)
	}
	if len(f.Staff) > 0 {
		tx = tx.Where("staff IN ?", f.Staff)
	}
	if f.DateFrom != "" {
		tx = tx.Where("report_date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		tx = tx.Where("report_date <= ?", f.DateTo)
	}
	return tx
}

// Create inserts a new report row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// Update saves an edited report row.
func (r *ReportRepository) Update(ctx context.Context, report *models.Report) error {
	res := r.db.WithContext(ctx).Save(report)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrReportNotFound, report.ID)
	}
	return nil
}

// Delete removes a report row.
func (r *ReportRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id).Error
}

// List returns all report rows matching the filter, newest date first.
func (r *ReportRepository) List(ctx context.Context, f ReportFilter) ([]models.Report, error) {
	var reports []models.Report
	err := r.filtered(ctx, f).Order("report_date DESC, staff").Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
