// Package service wraps the storefront REST endpoints consumed by the app:
// cart, checkout, QR payment and order history.
package service

import (
	"context"
	"fmt"

	"github.com/HaVuDong/ecome-customer-app/internal/api"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
)

type CartService struct {
	client *api.Client
}

func NewCartService(client *api.Client) *CartService {
	return &CartService{client: client}
}

func (s *CartService) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	return api.Get[[]domain.CartItem](ctx, s.client, "/cart")
}

func (s *CartService) GetCartGroupedBySeller(ctx context.Context) ([]domain.SellerGroup, error) {
	return api.Get[[]domain.SellerGroup](ctx, s.client, "/cart/grouped")
}

func (s *CartService) GetSelectedItems(ctx context.Context) ([]domain.CartItem, error) {
	return api.Get[[]domain.CartItem](ctx, s.client, "/cart/selected")
}

func (s *CartService) GetCartTotal(ctx context.Context) (int64, error) {
	out, err := api.Get[struct {
		Total int64 `json:"total"`
	}](ctx, s.client, "/cart/total")
	return out.Total, err
}

func (s *CartService) AddToCart(ctx context.Context, productID int64, quantity int) (*domain.CartItem, error) {
	item, err := api.Post[domain.CartItem](ctx, s.client,
		fmt.Sprintf("/cart/add?productId=%d&quantity=%d", productID, quantity), nil)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*domain.CartItem, error) {
	item, err := api.Put[domain.CartItem](ctx, s.client,
		fmt.Sprintf("/cart/%d?quantity=%d", itemID, quantity), nil)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) ToggleSelected(ctx context.Context, itemID int64) (*domain.CartItem, error) {
	item, err := api.Put[domain.CartItem](ctx, s.client,
		fmt.Sprintf("/cart/%d/toggle", itemID), nil)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) SelectAllBySeller(ctx context.Context, sellerID int64, selected bool) error {
	_, err := api.Put[struct{}](ctx, s.client,
		fmt.Sprintf("/cart/seller/%d/select?selected=%t", sellerID, selected), nil)
	return err
}

func (s *CartService) RemoveCartItem(ctx context.Context, itemID int64) error {
	return api.Delete(ctx, s.client, fmt.Sprintf("/cart/%d", itemID))
}

func (s *CartService) ClearCart(ctx context.Context) error {
	return api.Delete(ctx, s.client, "/cart/clear")
}

// CheckoutRequest is the wire shape the backend expects. The server splits
// the referenced cart items by seller and answers with one order per seller.
type CheckoutRequest struct {
	CartItemIDs     []int64 `json:"cartItemIds"`
	ShippingName    string  `json:"shippingName"`
	ShippingPhone   string  `json:"shippingPhone"`
	ShippingAddress string  `json:"shippingAddress"`
	PaymentMethod   string  `json:"paymentMethod"`
	Note            string  `json:"note,omitempty"`
	VoucherCode     string  `json:"voucherCode,omitempty"`
}

func (s *CartService) Checkout(ctx context.Context, req CheckoutRequest, idempotencyKey string) ([]domain.Order, error) {
	return api.Post[[]domain.Order](ctx, s.client, "/cart/checkout", req,
		api.WithIdempotencyKey(idempotencyKey))
}
