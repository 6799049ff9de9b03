package service

import (
	"context"
	"fmt"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/repository"
)

// OrderService exposes read access to the order ledger.
type OrderService struct {
	orders repository.OrderRepository
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

func (s *OrderService) List(ctx context.Context) ([]models.OrderRecord, error) {
	if s.orders == nil {
		return nil, fmt.Errorf("order ledger: %w", errs.ErrNotConfigured)
	}
	return s.orders.List(ctx)
}
