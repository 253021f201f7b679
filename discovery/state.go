package discovery

// Phase is the progress of one discovery run. A run only moves forward; a
// fatal error leaves it in the phase where it stopped.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseReachabilityChecked
	PhaseWalking
	PhaseReconcilingTuples
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseReachabilityChecked:
		return "reachability_checked"
	case PhaseWalking:
		return "walking"
	case PhaseReconcilingTuples:
		return "reconciling_tuples"
	case PhaseCommitted:
		return "committed"
	default:
		return "unknown"
	}
}
