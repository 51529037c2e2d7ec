package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/repository"
)

// OrderService exposes the orders sheet to the grid engine and the HTTP
// handlers. It satisfies grid.RemoteStore, stamping every write with the
// acting username.
type OrderService struct {
	orderRepo *repository.OrderRepository
	actor     string
	logger    *zap.Logger
}

// NewOrderService creates a new order service acting as the given user.
func NewOrderService(orderRepo *repository.OrderRepository, actor string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		actor:     actor,
		logger:    logger,
	}
}

// For returns a copy of the service acting as a different user. Handlers
// use this to stamp writes with the authenticated request user.
func (s *OrderService) For(actor string) *OrderService {
	clone := *s
	clone.actor = actor
	return &clone
}

// FetchPage loads one page of orders.
func (s *OrderService) FetchPage(ctx context.Context, q grid.Query) (*grid.PageResult, error) {
	page, err := s.orderRepo.FetchPage(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch orders page: %w", err)
	}
	return page, nil
}

// UpdateCell writes a single cell.
func (s *OrderService) UpdateCell(ctx context.Context, rowKey, colKey, value string) error {
	if err := s.orderRepo.UpdateCell(ctx, rowKey, colKey, value, s.actor); err != nil {
		return err
	}
	s.logger.Debug("cell updated",
		zap.String("order", rowKey),
		zap.String("column", colKey),
		zap.String("actor", s.actor),
	)
	return nil
}

// UpdateBatch writes several rows in one transaction.
func (s *OrderService) UpdateBatch(ctx context.Context, patches []grid.RowPatch) (grid.BatchResult, error) {
	result, err := s.orderRepo.UpdateBatch(ctx, patches, s.actor)
	if err != nil {
		return result, err
	}
	s.logger.Info("batch updated",
		zap.Int("rows", len(patches)),
		zap.Int("updated", result.Updated),
		zap.String("actor", s.actor),
	)
	return result, nil
}

// GetByCode loads a single order, nil when absent.
func (s *OrderService) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	return s.orderRepo.GetByCode(ctx, code)
}

var _ grid.RemoteStore = (*OrderService)(nil)
