package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/registry"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrColumnUnknown   = errors.New("unknown column")
	ErrColumnReadOnly  = errors.New("column is read-only")
	ErrValueNotAllowed = errors.New("value not allowed for column")
	ErrEmptyBatch      = errors.New("batch contains no rows")
	ErrMissingActor    = errors.New("acting username is required")
)

// OrderRepository handles database operations for order rows. Writes are
// validated against the column registry so only editable, known columns
// ever reach SQL.
type OrderRepository struct {
	db  *gorm.DB
	reg *registry.Registry
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB, reg *registry.Registry) *OrderRepository {
	return &OrderRepository{db: db, reg: reg}
}

func (r *OrderRepository) filtered(ctx context.Context, q grid.Query) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Order{})
	if q.Team != "" {
		tx = tx.Where("team = ?", q.Team)
	}
	if q.Status != "" {
		tx = tx.Where("delivery_status = ?", q.Status)
	}
	if len(q.Markets) > 0 {
		tx = tx.Where("market IN ?", q.Markets)
	}
	if len(q.Products) > 0 {
		tx = tx.Where("product IN ?", q.Products)
	}
	if q.DateFrom != "" {
		tx = tx.Where("order_date >= ?", q.DateFrom)
	}
	if q.DateTo != "" {
		tx = tx.Where("order_date <= ?", q.DateTo)
	}
	if len(q.AllowedStaff) > 0 {
		tx = tx.Where("sales_staff IN ?", q.AllowedStaff)
	}
	return tx
}

// FetchPage retrieves one filtered page of orders. Pages are 1-based.
func (r *OrderRepository) FetchPage(ctx context.Context, q grid.Query) (*grid.PageResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 50
	}

	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	var orders []models.Order
	err := r.filtered(ctx, q).
		Order("order_date DESC, order_code").
		Offset((page - 1) * size).
		Limit(size).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	rows := make([]grid.Row, len(orders))
	for i := range orders {
		rows[i] = orders[i].ToRow()
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &grid.PageResult{
		Rows:       rows,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// GetByCode retrieves a single order by its code.
func (r *OrderRepository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "order_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// resolveWritable maps a column name or label to its data key, rejecting
// unknown and read-only columns and invalid enum values.
func (r *OrderRepository) resolveWritable(column, value string) (string, error) {
	col, ok := r.reg.Resolve(column)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrColumnUnknown, column)
	}
	if !col.Editable {
		return "", fmt.Errorf("%w: %q", ErrColumnReadOnly, col.Label)
	}
	if !r.reg.ValidValue(col.Key, value) {
		return "", fmt.Errorf("%w: %q = %q", ErrValueNotAllowed, col.Label, value)
	}
	return col.Key, nil
}

// UpdateCell writes a single column of a single order.
func (r *OrderRepository) UpdateCell(ctx context.Context, code, column, value, actor string) error {
	if actor == "" {
		return ErrMissingActor
	}
	key, err := r.resolveWritable(column, value)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_code = ?", code).
		Updates(map[string]any{key: value, "updated_by": actor})
	if res.Error != nil {
		return fmt.Errorf("update %s of %s: %w", key, code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, code)
	}
	return nil
}

// UpdateBatch writes several rows in one transaction. The batch succeeds
// or fails as a unit: any bad row rolls everything back.
func (r *OrderRepository) UpdateBatch(ctx context.Context, patches []grid.RowPatch, actor string) (grid.BatchResult, error) {
	if actor == "" {
		return grid.BatchResult{}, ErrMissingActor
	}
	if len(patches) == 0 {
		return grid.BatchResult{}, ErrEmptyBatch
	}

	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, patch := range patches {
			values := make(map[string]any, len(patch.Values)+1)
			for column, value := range patch.Values {
				key, err := r.resolveWritable(column, value)
				if err != nil {
					return fmt.Errorf("row %s: %w", patch.Key, err)
				}
				values[key] = value
			}
			if len(values) == 0 {
				continue
			}
			values["updated_by"] = actor

			res := tx.Model(&models.Order{}).
				Where("order_code = ?", patch.Key).
				Updates(values)
			if res.Error != nil {
				return fmt.Errorf("row %s: %w", patch.Key, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, patch.Key)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return grid.BatchResult{}, err
	}
	return grid.BatchResult{Updated: updated}, nil
}

// Upsert inserts or replaces one order row, used by the legacy sync job.
func (r *OrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}
