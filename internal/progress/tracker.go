// Package progress emits observational run progress events. The tracker
// never influences scheduling; dropping every event changes nothing.
package progress

import (
	"time"

	"github.com/reviewpass/pkg/models"
)

// Tracker reports the lifecycle of one run through a caller-supplied
// callback. A nil callback disables emission. Not safe for concurrent use;
// passes execute sequentially so the orchestrator never needs it to be.
type Tracker struct {
	onEvent     func(models.ProgressEvent)
	clock       func() time.Time
	start       time.Time
	totalPasses int
	tokensSoFar int
	completed   int
	passStarted time.Time
	meanPass    time.Duration
}

// NewTracker returns a tracker that forwards events to onEvent.
func NewTracker(onEvent func(models.ProgressEvent)) *Tracker {
	return &Tracker{
		onEvent: onEvent,
		clock:   time.Now,
		start:   time.Now(),
	}
}

func (t *Tracker) emit(ev models.ProgressEvent) {
	if t.onEvent == nil {
		return
	}
	ev.Elapsed = t.clock().Sub(t.start)
	t.onEvent(ev)
}

// Planned announces the pass plan.
func (t *Tracker) Planned(totalPasses int) {
	t.totalPasses = totalPasses
	t.emit(models.ProgressEvent{Type: models.ProgressPlanned, TotalPasses: totalPasses})
}

// PassStart announces that a pass is about to call the provider.
func (t *Tracker) PassStart(index int) {
	t.passStarted = t.clock()
	t.emit(models.ProgressEvent{
		Type:        models.ProgressPassStart,
		PassIndex:   index,
		TotalPasses: t.totalPasses,
		TokensSoFar: t.tokensSoFar,
		ETA:         t.eta(),
	})
}

// PassComplete records a finished pass and its token consumption, updating
// the mean pass duration the ETA extrapolates from.
func (t *Tracker) PassComplete(index, tokens int) {
	elapsed := t.clock().Sub(t.passStarted)
	t.meanPass = (t.meanPass*time.Duration(t.completed) + elapsed) / time.Duration(t.completed+1)
	t.completed++
	t.tokensSoFar += tokens

	t.emit(models.ProgressEvent{
		Type:        models.ProgressPassComplete,
		PassIndex:   index,
		TotalPasses: t.totalPasses,
		TokensSoFar: t.tokensSoFar,
		ETA:         t.eta(),
	})
}

// Done announces successful completion.
func (t *Tracker) Done() {
	t.emit(models.ProgressEvent{
		Type:        models.ProgressDone,
		TotalPasses: t.totalPasses,
		TokensSoFar: t.tokensSoFar,
	})
}

// Failed announces a fatal run error.
func (t *Tracker) Failed(err error) {
	t.emit(models.ProgressEvent{
		Type:        models.ProgressFailed,
		TotalPasses: t.totalPasses,
		TokensSoFar: t.tokensSoFar,
		Err:         err,
	})
}

// Cancelled announces a graceful cancellation.
func (t *Tracker) Cancelled() {
	t.emit(models.ProgressEvent{
		Type:        models.ProgressCancelled,
		TotalPasses: t.totalPasses,
		TokensSoFar: t.tokensSoFar,
	})
}

// eta extrapolates remaining time from the mean completed-pass duration.
// Zero until at least one pass has finished.
func (t *Tracker) eta() time.Duration {
	if t.completed == 0 || t.totalPasses == 0 {
		return 0
	}
	remaining := t.totalPasses - t.completed
	if remaining <= 0 {
		return 0
	}
	return t.meanPass * time.Duration(remaining)
}
