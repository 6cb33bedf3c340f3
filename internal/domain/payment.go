package domain

import "time"

// PaymentIntent is a time-boxed bank-transfer request tied to one order.
// At most one intent is active per order; the server tears it down on
// payment, expiry or explicit cancel.
type PaymentIntent struct {
	OrderID       int64     `json:"orderId"`
	QrCodeURL     string    `json:"qrCodeUrl"`
	TransactionID string    `json:"transactionId"`
	ExpiredAt     time.Time `json:"expiredAt"`
	ExpiryMinutes int       `json:"expiryMinutes"`
	Amount        int64     `json:"amount"`
	BankID        string    `json:"bankId"`
	BankAccount   string    `json:"bankAccount"`
	AccountName   string    `json:"accountName"`
}

// RemainingSeconds is the locally enforced countdown window, measured against
// the intent's absolute expiry. Never negative.
func (p *PaymentIntent) RemainingSeconds(now time.Time) int {
	d := p.ExpiredAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// PaymentState is the polled server view of an order's payment.
type PaymentState struct {
	OrderID       int64         `json:"orderId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	IsQrExpired   bool          `json:"isQrExpired,omitempty"`
	QrExpiredAt   *time.Time    `json:"qrExpiredAt,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	Amount        int64         `json:"amount"`
}

type BankInfo struct {
	BankID        string `json:"bankId"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Note          string `json:"note,omitempty"`
}
