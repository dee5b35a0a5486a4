package watchdog

import (
	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

// ActionKind names the notification actions the state machine can emit.
type ActionKind int

const (
	// ActionInitialAlert fires when a new incident opens. Channel filtering
	// happens in the dispatcher, not here.
	ActionInitialAlert ActionKind = iota
	// ActionEscalation fires on every subsequent failure of an open incident;
	// the dispatcher gates each channel on its threshold.
	ActionEscalation
	// ActionRecovery fires when a success closes an open incident. Incident
	// carries the pre-resolution snapshot.
	ActionRecovery
)

// Action is one notification decision emitted by Transition. Dispatching it
// is best-effort and never feeds back into incident state.
type Action struct {
	Kind     ActionKind
	Check    storage.Check
	Incident storage.Incident // snapshot at decision time; zero for initial alerts
	// FailureCount is the consecutive-failure count the action reports: the
	// new count for escalations, the count at resolution for recoveries.
	FailureCount int
}

// Decision is the incident-state change Transition asks the store to make.
// At most one of Open, Continue and Resolve is set.
type Decision struct {
	// Open creates a new incident with a failure count of 1 and marks every
	// channel in MarkChannels as alerted on it.
	Open bool
	// Continue increments the open incident's failure count and advances its
	// last contributing check.
	Continue bool
	// Resolve closes the open incident. Resolution is terminal.
	Resolve bool
	// MarkChannels lists the channels to flag as alerted on a new incident.
	// All of the target's configured channels are marked at creation time,
	// regardless of escalation thresholds: the flag records intent, not
	// delivery.
	MarkChannels []storage.AlertChannel
}

// None reports a no-op decision (success with no open incident).
func (d Decision) None() bool {
	return !d.Open && !d.Continue && !d.Resolve
}

// Transition reduces one classified check against the target's current open
// incident (nil when healthy) to an incident-state decision plus the
// notification actions to take. It is pure; the caller persists the decision
// before dispatching the actions.
//
// A single failure opens, a single success resolves. There is no debounce or
// flapping state, and resolved incidents are never reopened: the next failure
// run gets a brand-new incident.
func Transition(target *storage.Target, open *storage.Incident, check storage.Check) (Decision, []Action) {
	if check.Success() {
		if open == nil {
			return Decision{}, nil
		}
		return Decision{Resolve: true}, []Action{{
			Kind:         ActionRecovery,
			Check:        check,
			Incident:     *open,
			FailureCount: open.FailureCount,
		}}
	}

	if open == nil {
		return Decision{Open: true, MarkChannels: target.Channels()}, []Action{{
			Kind:         ActionInitialAlert,
			Check:        check,
			FailureCount: 1,
		}}
	}

	newCount := open.FailureCount + 1
	return Decision{Continue: true}, []Action{{
		Kind:         ActionEscalation,
		Check:        check,
		Incident:     *open,
		FailureCount: newCount,
	}}
}
