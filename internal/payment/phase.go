package payment

// Phase is the QR session's lifecycle state. Once the session leaves
// AWAITING_PAYMENT no further timer effect applies; EXPIRED and ERROR can be
// re-entered into INITIALIZING through an explicit retry.
type Phase string

const (
	PhaseInitializing    Phase = "INITIALIZING"
	PhaseAwaitingPayment Phase = "AWAITING_PAYMENT"
	PhaseSucceeded       Phase = "SUCCEEDED"
	PhaseExpired         Phase = "EXPIRED"
	PhaseCancelled       Phase = "CANCELLED"
	PhaseError           Phase = "ERROR"
)

func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseExpired || p == PhaseCancelled || p == PhaseError
}

// String representation (for logging)
func (p Phase) String() string {
	return string(p)
}
