// Package checkout converts the selected cart lines into seller-scoped
// orders and, for bank-transfer payment, hands off to a QR payment session.
package checkout

import (
	"context"
	"regexp"
	"strings"

	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/HaVuDong/ecome-customer-app/internal/service"
	"github.com/google/uuid"
)

const (
	// Free shipping kicks in at 500k VND, otherwise a flat 30k fee applies.
	FreeShippingThreshold = 500_000
	FlatShippingFee       = 30_000
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// ShippingFee is 0 once the selected subtotal reaches the free-shipping
// threshold.
func ShippingFee(selectedTotal int64) int64 {
	if selectedTotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// Submitter is the checkout slice of the cart backend.
type Submitter interface {
	Checkout(ctx context.Context, req service.CheckoutRequest, idempotencyKey string) ([]domain.Order, error)
}

type Orchestrator struct {
	api Submitter
}

func NewOrchestrator(api Submitter) *Orchestrator {
	return &Orchestrator{api: api}
}

// Validate runs entirely client-side. The first violated field is reported.
func (o *Orchestrator) Validate(shipping domain.ShippingInfo, selected []domain.CartItem) error {
	if strings.TrimSpace(shipping.Name) == "" {
		return &ValidationError{Field: "shippingName", Message: "recipient name is required"}
	}
	phone := strings.TrimSpace(shipping.Phone)
	if phone == "" {
		return &ValidationError{Field: "shippingPhone", Message: "phone number is required"}
	}
	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: "shippingPhone", Message: "phone number must be 10-11 digits"}
	}
	if strings.TrimSpace(shipping.Address) == "" {
		return &ValidationError{Field: "shippingAddress", Message: "shipping address is required"}
	}
	if len(selected) == 0 {
		return &ValidationError{Field: "items", Message: "no items selected for checkout"}
	}
	return nil
}

// Submit validates, then sends the selected item ids with the shipping block.
// The server partitions the selection by seller and answers with one order
// per seller; nothing is assumed created unless the call succeeds.
func (o *Orchestrator) Submit(ctx context.Context, shipping domain.ShippingInfo, method domain.PaymentMethod, selected []domain.CartItem, voucherCode string) ([]domain.Order, error) {
	if err := o.Validate(shipping, selected); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(selected))
	for _, item := range selected {
		ids = append(ids, item.ID)
	}

	req := service.CheckoutRequest{
		CartItemIDs:     ids,
		ShippingName:    strings.TrimSpace(shipping.Name),
		ShippingPhone:   strings.TrimSpace(shipping.Phone),
		ShippingAddress: strings.TrimSpace(shipping.Address),
		PaymentMethod:   string(method),
		Note:            strings.TrimSpace(shipping.Note),
		VoucherCode:     voucherCode,
	}

	orders, err := o.api.Checkout(ctx, req, uuid.NewString())
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoOrdersReturned
	}
	return orders, nil
}
