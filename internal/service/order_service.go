package service

import (
	"context"
	"fmt"

	"github.com/HaVuDong/ecome-customer-app/internal/api"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
)

type OrderService struct {
	client *api.Client
}

func NewOrderService(client *api.Client) *OrderService {
	return &OrderService{client: client}
}

func (s *OrderService) GetMyOrders(ctx context.Context, page, size int) (*domain.Page[domain.Order], error) {
	out, err := api.Get[domain.Page[domain.Order]](ctx, s.client,
		fmt.Sprintf("/orders/my?page=%d&size=%d", page, size))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := api.Get[domain.Order](ctx, s.client, fmt.Sprintf("/orders/%d", orderID))
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder is accepted by the backend only while the order's shipping
// status is still PENDING.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := api.Put[struct{}](ctx, s.client, fmt.Sprintf("/orders/%d/cancel", orderID), nil)
	return err
}
