package core

// ClosePropagation defines how a merged input treats a member's terminal
// failure: forward it downstream as the aggregate's own failure, or merely
// deregister the member.
type ClosePropagation string

const (
	// PropagateNone never forwards a member's failure; the member is
	// removed from the set and the aggregate continues.
	PropagateNone ClosePropagation = "none"

	// PropagateErrors forwards domain failures but treats graceful closes
	// (ErrClosed) as removal only.
	PropagateErrors ClosePropagation = "errors"

	// PropagateAll forwards every member failure, graceful closes included.
	PropagateAll ClosePropagation = "all"
)

// ShouldPropagate reports whether a member failure err is forwarded
// downstream under this policy.
func (p ClosePropagation) ShouldPropagate(err error) bool {
	switch p {
	case PropagateAll:
		return true
	case PropagateErrors:
		return !Closed(err)
	default:
		return false
	}
}
