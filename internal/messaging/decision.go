package messaging

// Decision is the handler's verdict on a delivery. The consumer combines it
// with the broker's redelivered flag to settle the message exactly once.
type Decision int

const (
	// Accept removes the message: the effect was applied (or had already
	// been applied and was skipped).
	Accept Decision = iota
	// Retry requeues the message once. A Retry verdict on a delivery that
	// was already redelivered is discarded instead, which bounds a poison
	// message at two attempts.
	Retry
	// Discard removes the message without retrying. Used for payloads that
	// can never become valid and for referential failures.
	Discard
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Retry:
		return "retry"
	case Discard:
		return "discard"
	default:
		return "unknown"
	}
}
