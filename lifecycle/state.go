// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package lifecycle

// A State is the lifecycle state of an in-flight request.
type State uint32

const (
	// Running means a network task is sending the request or waiting
	// for the response to begin.
	Running State = iota
	// Processing means the outcome of the current network task is being
	// handled: the response is arriving or being read, or a failure is
	// being examined for retry.
	Processing
	// Canceled is the terminal state of a request canceled before it
	// completed.
	Canceled
	// Completed is the terminal state of a request whose final outcome,
	// success or failure, has been produced.
	Completed

	stateSentinel
)

var stateNames = []string{
	"Running",
	"Processing",
	"Canceled",
	"Completed",
}

// String returns the name of the state.
func (s State) String() string {
	if s >= stateSentinel {
		return "State(invalid)"
	}
	return stateNames[s]
}

// Terminal reports whether s is Canceled or Completed.
func (s State) Terminal() bool {
	return s == Canceled || s == Completed
}

// Valid reports whether s is one of the four defined states.
func (s State) Valid() bool {
	return s < stateSentinel
}

// allowed[from][to] reports whether the edge from -> to exists. Equal
// states are handled separately as a no-op success.
var allowed = [stateSentinel][stateSentinel]bool{
	Running: {
		Processing: true,
		Canceled:   true,
	},
	Processing: {
		Running:   true,
		Canceled:  true,
		Completed: true,
	},
}

// CanTransition reports whether a Box in state from may move to state
// to. A state may always "transition" to itself.
func CanTransition(from, to State) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return from == to || allowed[from][to]
}
