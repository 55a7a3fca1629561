// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

// State is the lifecycle state of a playback session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StateError   State = "error"
)

// Event drives a state change.
type Event string

const (
	EvSelect       Event = "select"
	EvRejected     Event = "rejected"
	EvLoaded       Event = "loaded"
	EvRetry        Event = "retry"
	EvExhausted    Event = "exhausted"
	EvRuntimeError Event = "runtime_error"
	EvClose        Event = "close"
)

// Transition is a single allowed edge in the session state machine.
type Transition struct {
	From  State
	To    State
	Event Event
}

var transitionsTable = []Transition{
	// Selection restarts from any state.
	{From: StateIdle, To: StateLoading, Event: EvSelect},
	{From: StateLoading, To: StateLoading, Event: EvSelect},
	{From: StatePlaying, To: StateLoading, Event: EvSelect},
	{From: StateError, To: StateLoading, Event: EvSelect},

	// Channel without playable sources.
	{From: StateIdle, To: StateError, Event: EvRejected},
	{From: StateLoading, To: StateError, Event: EvRejected},
	{From: StatePlaying, To: StateError, Event: EvRejected},
	{From: StateError, To: StateError, Event: EvRejected},

	// Attempt outcomes
	{From: StateLoading, To: StatePlaying, Event: EvLoaded},
	{From: StateLoading, To: StateLoading, Event: EvRetry},
	{From: StateLoading, To: StateError, Event: EvExhausted},

	// Playback failing after it started re-enters loading.
	{From: StatePlaying, To: StateLoading, Event: EvRuntimeError},

	{From: StateIdle, To: StateIdle, Event: EvClose},
	{From: StateLoading, To: StateIdle, Event: EvClose},
	{From: StatePlaying, To: StateIdle, Event: EvClose},
	{From: StateError, To: StateIdle, Event: EvClose},
}

// TransitionFor returns the allowed transition for a given state and event.
func TransitionFor(from State, ev Event) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
