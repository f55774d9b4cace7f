package reliability

type FailureStrategy string

const (
	FailOpen   FailureStrategy = "fail_open"
	FailClosed FailureStrategy = "fail_closed"
)

// ShouldAllow determines if a request may proceed given a backend error and
// a strategy. The rate limiter fails open: losing redis degrades throttling,
// not the negotiation protocol.
func ShouldAllow(strategy FailureStrategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}
