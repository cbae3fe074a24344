package pivot

// State is a phase of one export run.
type State int

const (
	// StateIdle is the state before Export is called.
	StateIdle State = iota

	// StateColumnsDiscovered means the column list is fixed for the run.
	StateColumnsDiscovered

	// StateWorkersLaunched means the header is written and chunks are
	// being handed to workers.
	StateWorkersLaunched

	// StateDraining means batches are being forwarded to the sink. The
	// number of outstanding chunks is reported alongside.
	StateDraining

	// StateComplete means every chunk was drained. Failed chunks do not
	// prevent completion.
	StateComplete

	// StateFailed means the run stopped early: an upstream step failed or
	// the context was cancelled.
	StateFailed
)

// String returns the state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateColumnsDiscovered:
		return "columns_discovered"
	case StateWorkersLaunched:
		return "workers_launched"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateChangeFunc is called on every state transition. pending is the
// number of chunks not yet drained; it is only meaningful in StateDraining.
type StateChangeFunc func(state State, pending int)
