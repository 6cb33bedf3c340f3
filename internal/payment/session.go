// Package payment supervises one QR bank-transfer intent to a terminal
// outcome. Two scheduled tasks run while a payment is awaited: a one-second
// countdown mirroring the server-side expiry, and a status poll on a fixed
// interval. Whichever reaches a terminal condition first wins; every tick
// re-checks the current phase before applying its effect, so late timer
// fires and in-flight poll responses after a transition are discarded.
package payment

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultCountdownTick  = time.Second
	defaultPollInterval   = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// Service is the payment backend slice the session drives.
type Service interface {
	GenerateQrPayment(ctx context.Context, orderID int64) (*domain.PaymentIntent, error)
	CheckPaymentStatus(ctx context.Context, orderID int64) (*domain.PaymentState, error)
	CancelQrPayment(ctx context.Context, orderID int64) error
}

// Event is emitted on every phase transition.
type Event struct {
	Phase  Phase
	Intent *domain.PaymentIntent
	Err    error
}

type command int

const (
	cmdCancel command = iota
	cmdRetry
)

type Option func(*Session)

// WithIntervals overrides the countdown tick and poll interval.
func WithIntervals(countdownTick, pollInterval time.Duration) Option {
	return func(s *Session) {
		s.countdownTick = countdownTick
		s.pollInterval = pollInterval
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) { s.requestTimeout = d }
}

// Session is the per-order QR payment state machine. Exactly one session is
// active per order; all state transitions happen on the Run loop goroutine.
type Session struct {
	orderID        int64
	svc            Service
	breaker        *gobreaker.CircuitBreaker[*domain.PaymentState]
	countdownTick  time.Duration
	pollInterval   time.Duration
	requestTimeout time.Duration

	mu        sync.RWMutex
	phase     Phase
	remaining int
	intent    *domain.PaymentIntent
	lastErr   error

	commands chan command
	events   chan Event
	done     chan struct{}
}

func NewSession(orderID int64, svc Service, opts ...Option) *Session {
	s := &Session{
		orderID:        orderID,
		svc:            svc,
		countdownTick:  defaultCountdownTick,
		pollInterval:   defaultPollInterval,
		requestTimeout: defaultRequestTimeout,
		phase:          PhaseInitializing,
		commands:       make(chan command, 4),
		events:         make(chan Event, 32),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = gobreaker.NewCircuitBreaker[*domain.PaymentState](gobreaker.Settings{
		Name: "payment-status-poll",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return s
}

func (s *Session) OrderID() int64 { return s.orderID }

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Remaining is the countdown in seconds, only meaningful while awaiting.
func (s *Session) Remaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining
}

func (s *Session) Intent() *domain.PaymentIntent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intent
}

func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Events delivers one event per phase transition. The channel is buffered;
// a slow consumer loses old events rather than stalling the session.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the Run loop has exited and both timers are released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel requests the user-initiated cancellation. Only honored while the
// session is awaiting payment; in any other phase it is discarded.
func (s *Session) Cancel() {
	select {
	case s.commands <- cmdCancel:
	default:
	}
}

// Retry re-enters Initializing with a freshly requested intent and a reset
// countdown. Only honored from the Error and Expired phases.
func (s *Session) Retry() {
	select {
	case s.commands <- cmdRetry:
	default:
	}
}

// Run drives the session until a final terminal outcome or ctx cancellation.
// Both timers are owned by this loop and released on every exit path.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	for {
		if !s.initialize(ctx) {
			if ctx.Err() != nil {
				return
			}
			// Error phase: hold for an explicit retry.
			if !s.awaitRetry(ctx) {
				return
			}
			continue
		}

		switch s.awaitOutcome(ctx) {
		case PhaseSucceeded, PhaseCancelled:
			return
		case PhaseExpired, PhaseError:
			if !s.awaitRetry(ctx) {
				return
			}
		default:
			// ctx cancelled mid-wait
			return
		}
	}
}

// initialize requests a fresh intent. True means the session entered
// AwaitingPayment.
func (s *Session) initialize(ctx context.Context) bool {
	s.setPhase(PhaseInitializing, nil)

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	intent, err := s.svc.GenerateQrPayment(reqCtx, s.orderID)
	if err != nil {
		log.Printf("payment: generate intent failed for order %d: %v", s.orderID, err)
		s.setPhase(PhaseError, err)
		return false
	}

	remaining := intent.RemainingSeconds(time.Now())
	if intent.ExpiredAt.IsZero() {
		remaining = intent.ExpiryMinutes * 60
	}

	s.mu.Lock()
	s.intent = intent
	s.remaining = remaining
	s.mu.Unlock()
	s.setPhase(PhaseAwaitingPayment, nil)
	return true
}

type pollResult struct {
	state *domain.PaymentState
	err   error
}

// awaitOutcome runs the countdown and the status poll until the first
// terminal-reaching signal. Returns the terminal phase, or PhaseAwaitingPayment
// when ctx was cancelled before any transition.
func (s *Session) awaitOutcome(ctx context.Context) Phase {
	countdown := time.NewTicker(s.countdownTick)
	poll := time.NewTicker(s.pollInterval)
	defer countdown.Stop()
	defer poll.Stop()

	results := make(chan pollResult, 1)
	inFlight := false

	for {
		select {
		case <-ctx.Done():
			return PhaseAwaitingPayment

		case <-countdown.C:
			if s.Phase() != PhaseAwaitingPayment {
				continue
			}
			s.mu.Lock()
			s.remaining--
			expired := s.remaining <= 0
			if expired {
				s.remaining = 0
			}
			s.mu.Unlock()
			if expired {
				// Local deadline wins even if the server never confirmed.
				s.setPhase(PhaseExpired, nil)
				return PhaseExpired
			}

		case <-poll.C:
			if inFlight || s.Phase() != PhaseAwaitingPayment {
				continue
			}
			inFlight = true
			go func() {
				reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
				defer cancel()
				state, err := s.breaker.Execute(func() (*domain.PaymentState, error) {
					return s.svc.CheckPaymentStatus(reqCtx, s.orderID)
				})
				results <- pollResult{state: state, err: err}
			}()

		case res := <-results:
			inFlight = false
			if s.Phase() != PhaseAwaitingPayment {
				// Response arrived after a transition; discard it.
				continue
			}
			if res.err != nil {
				if errors.Is(res.err, gobreaker.ErrOpenState) {
					s.setPhase(PhaseError, res.err)
					return PhaseError
				}
				log.Printf("payment: status poll failed for order %d: %v", s.orderID, res.err)
				continue
			}
			switch {
			case res.state.PaymentStatus == domain.PaymentStatusPaid:
				s.setPhase(PhaseSucceeded, nil)
				return PhaseSucceeded
			case res.state.PaymentStatus == domain.PaymentStatusFailed || res.state.IsQrExpired:
				s.setPhase(PhaseExpired, nil)
				return PhaseExpired
			}
			// Still pending, keep polling.

		case cmd := <-s.commands:
			if cmd != cmdCancel || s.Phase() != PhaseAwaitingPayment {
				continue
			}
			s.setPhase(PhaseCancelled, nil)
			s.releaseIntent(ctx)
			return PhaseCancelled
		}
	}
}

// releaseIntent best-effort cancels the server-side intent. A failure does
// not block the local transition.
func (s *Session) releaseIntent(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
	defer cancel()
	if err := s.svc.CancelQrPayment(reqCtx, s.orderID); err != nil {
		log.Printf("payment: cancel intent failed for order %d: %v", s.orderID, err)
	}
}

// awaitRetry holds in a terminal-but-retryable phase until Retry or ctx end.
func (s *Session) awaitRetry(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case cmd := <-s.commands:
			if cmd == cmdRetry {
				return true
			}
		}
	}
}

func (s *Session) setPhase(phase Phase, err error) {
	s.mu.Lock()
	s.phase = phase
	s.lastErr = err
	intent := s.intent
	s.mu.Unlock()

	ev := Event{Phase: phase, Intent: intent, Err: err}
	select {
	case s.events <- ev:
	default:
		log.Printf("payment: dropping event %s for order %d, consumer too slow", phase, s.orderID)
	}
}
