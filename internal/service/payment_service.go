package service

import (
	"context"
	"fmt"

	"github.com/HaVuDong/ecome-customer-app/internal/api"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
)

type PaymentService struct {
	client *api.Client
}

func NewPaymentService(client *api.Client) *PaymentService {
	return &PaymentService{client: client}
}

// GenerateQrPayment creates the time-boxed payment intent for an order.
func (s *PaymentService) GenerateQrPayment(ctx context.Context, orderID int64) (*domain.PaymentIntent, error) {
	intent, err := api.Post[domain.PaymentIntent](ctx, s.client,
		fmt.Sprintf("/payments/qr/%d", orderID), nil)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// CheckPaymentStatus is the poll target; the session calls it on a fixed
// interval until a terminal condition is observed.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, orderID int64) (*domain.PaymentState, error) {
	state, err := api.Get[domain.PaymentState](ctx, s.client,
		fmt.Sprintf("/payments/qr/%d/status", orderID))
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// CancelQrPayment releases the server-side intent. Best-effort: the caller
// proceeds with its local transition even when this fails.
func (s *PaymentService) CancelQrPayment(ctx context.Context, orderID int64) error {
	_, err := api.Post[struct{}](ctx, s.client,
		fmt.Sprintf("/payments/qr/%d/cancel", orderID), nil)
	return err
}

// ConfirmPayment marks the order paid. Test/demo backends only.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID int64) error {
	_, err := api.Post[struct{}](ctx, s.client,
		fmt.Sprintf("/payments/qr/%d/confirm", orderID), nil)
	return err
}

func (s *PaymentService) GetBankInfo(ctx context.Context) (*domain.BankInfo, error) {
	info, err := api.Get[domain.BankInfo](ctx, s.client, "/payments/bank-info")
	if err != nil {
		return nil, err
	}
	return &info, nil
}
