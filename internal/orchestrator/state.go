package orchestrator

// State is a phase of the run state machine. Failed and Cancelled are
// reachable from every non-terminal state; Done follows consolidation, or
// analysis directly when there is nothing to review.
type State string

const (
	StateIdle          State = "idle"
	StateAnalyzing     State = "analyzing"
	StatePlanning      State = "planning"
	StateSinglePass    State = "single-pass"
	StatePerPass       State = "per-pass"
	StateConsolidating State = "consolidating"
	StateDone          State = "done"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// terminal reports whether no further transition may leave the state.
func (s State) terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}
