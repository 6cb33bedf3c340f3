package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD PaymentMethod = "COD"
	PaymentMethodQR  PaymentMethod = "QR_TRANSFER"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

func (s PaymentStatus) String() string {
	return string(s)
}

type ShippingStatus string

const (
	ShippingStatusPending    ShippingStatus = "PENDING"
	ShippingStatusProcessing ShippingStatus = "PROCESSING"
	ShippingStatusShipped    ShippingStatus = "SHIPPED"
	ShippingStatusInTransit  ShippingStatus = "IN_TRANSIT"
	ShippingStatusDelivered  ShippingStatus = "DELIVERED"
	ShippingStatusCancelled  ShippingStatus = "CANCELLED"
	ShippingStatusReturned   ShippingStatus = "RETURNED"
)

func (s ShippingStatus) String() string {
	return string(s)
}

// ShippingInfo is the recipient block the user fills in at checkout.
type ShippingInfo struct {
	Name    string `json:"shippingName"`
	Phone   string `json:"shippingPhone"`
	Address string `json:"shippingAddress"`
	Note    string `json:"note,omitempty"`
}

type OrderItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"productId"`
	Quantity  int      `json:"quantity"`
	Price     int64    `json:"price"`
	Product   *Product `json:"product,omitempty"`
}

// Order is a confirmed seller-scoped purchase, created server-side by
// checkout. The client never mutates it except through CancelOrder, which the
// server only accepts while shipping status is still PENDING.
type Order struct {
	ID              int64          `json:"id"`
	OrderCode       string         `json:"orderCode,omitempty"`
	UserID          int64          `json:"userId"`
	SellerID        int64          `json:"sellerId"`
	SellerName      string         `json:"sellerName,omitempty"`
	Items           []OrderItem    `json:"orderItems,omitempty"`
	TotalAmount     int64          `json:"totalAmount"`
	ShippingFee     int64          `json:"shippingFee"`
	DiscountAmount  int64          `json:"discountAmount"`
	FinalAmount     int64          `json:"finalAmount"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod"`
	PaymentStatus   PaymentStatus  `json:"paymentStatus"`
	ShippingStatus  ShippingStatus `json:"shippingStatus"`
	ShippingName    string         `json:"shippingName"`
	ShippingPhone   string         `json:"shippingPhone"`
	ShippingAddress string         `json:"shippingAddress"`
	Note            string         `json:"note,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (o *Order) CanCancel() bool {
	return o.ShippingStatus == ShippingStatusPending
}

// Page is the server's paged list envelope for order history.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Size          int `json:"size"`
	Number        int `json:"number"`
}
