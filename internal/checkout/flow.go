package checkout

import (
	"context"
	"fmt"
	"log"

	"github.com/HaVuDong/ecome-customer-app/internal/cart"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/HaVuDong/ecome-customer-app/internal/payment"
	"github.com/HaVuDong/ecome-customer-app/internal/tracking"
)

// Outcome is the flow-level result surfaced to the UI layer. Cancelled,
// Expired and Failed all re-offer payment-method selection to the user.
type Outcome string

const (
	OutcomePlaced    Outcome = "PLACED" // COD orders confirmed
	OutcomePaid      Outcome = "PAID"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeFailed    Outcome = "FAILED"
)

// Result of a submitted checkout. Session is non-nil only for QR_TRANSFER;
// the caller runs it and feeds it to AwaitPayment.
type Result struct {
	Orders  []domain.Order
	Outcome Outcome
	Session *payment.Session
}

// Flow glues the cart store, the orchestrator and the payment session
// together: submit, fan out to seller orders, supervise QR payment, reload
// the cart on terminal success.
type Flow struct {
	store        *cart.Store
	orchestrator *Orchestrator
	payments     payment.Service
	sink         tracking.Sink
	sessionOpts  []payment.Option
}

func NewFlow(store *cart.Store, orchestrator *Orchestrator, payments payment.Service, sink tracking.Sink, sessionOpts ...payment.Option) *Flow {
	if sink == nil {
		sink = tracking.NopSink{}
	}
	return &Flow{
		store:        store,
		orchestrator: orchestrator,
		payments:     payments,
		sink:         sink,
		sessionOpts:  sessionOpts,
	}
}

// PlaceOrder submits the current selection. COD is terminal here: orders are
// confirmed and the cart reloaded. QR_TRANSFER returns an unstarted payment
// session bound to the first returned order; the other seller orders stay
// payment-pending on the server. The caller starts the session's Run loop
// and resolves it through AwaitPayment.
func (f *Flow) PlaceOrder(ctx context.Context, shipping domain.ShippingInfo, method domain.PaymentMethod, voucherCode string) (*Result, error) {
	selected := f.store.SelectedItems()
	orders, err := f.orchestrator.Submit(ctx, shipping, method, selected, voucherCode)
	if err != nil {
		return nil, err
	}

	f.sink.Track(ctx, tracking.Event{
		Name:  "checkout_submitted",
		Props: map[string]string{"method": string(method), "orders": fmt.Sprint(len(orders))},
	})

	if method == domain.PaymentMethodCOD {
		f.reloadCart(ctx)
		return &Result{Orders: orders, Outcome: OutcomePlaced}, nil
	}

	session := payment.NewSession(orders[0].ID, f.payments, f.sessionOpts...)
	return &Result{Orders: orders, Session: session}, nil
}

// AwaitPayment blocks until the running session reaches a terminal phase and
// maps it to a flow outcome. On success the cart is reloaded (checkout
// consumed the selected lines server-side). After Expired or Failed the
// session is still retryable; the caller may call Retry on it and await
// again, or fall back to another payment method.
func (f *Flow) AwaitPayment(ctx context.Context, session *payment.Session) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev := <-session.Events():
			switch ev.Phase {
			case payment.PhaseSucceeded:
				f.sink.Track(ctx, tracking.Event{
					Name:  "payment_succeeded",
					Props: map[string]string{"order_id": fmt.Sprint(session.OrderID())},
				})
				f.reloadCart(ctx)
				return OutcomePaid, nil
			case payment.PhaseCancelled:
				return OutcomeCancelled, nil
			case payment.PhaseExpired:
				return OutcomeExpired, nil
			case payment.PhaseError:
				return OutcomeFailed, ev.Err
			}
			// Initializing / AwaitingPayment: keep waiting.
		}
	}
}

func (f *Flow) reloadCart(ctx context.Context) {
	if err := f.store.Reload(ctx); err != nil {
		log.Printf("checkout: cart reload after checkout failed: %v", err)
	}
}
