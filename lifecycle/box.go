// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package lifecycle

import (
	"sync/atomic"
)

// A NetworkTask is an opaque handle to the transport operation carrying
// one attempt of a request. Cancel aborts the operation and must be
// safe to call more than once and from any goroutine.
type NetworkTask interface {
	Cancel()
}

// A Box holds the lifecycle state of one logical request, the handle to
// the network task currently carrying it, and its activity tracking
// flag.
//
// A Box must not be copied after first use. Share it by pointer. All
// methods are safe for concurrent use and never block.
type Box struct {
	state    atomic.Uint32
	tracking atomic.Bool
	task     atomic.Pointer[taskRef]
}

// taskRef boxes the interface value so it can be swapped atomically.
type taskRef struct {
	task NetworkTask
}

// NewBox returns a Box in the given initial state, holding the network
// task of the first attempt.
func NewBox(initial State, task NetworkTask) *Box {
	if !initial.Valid() {
		panic("httptask/lifecycle: invalid initial state")
	}
	if task == nil {
		panic("httptask/lifecycle: nil network task")
	}

	b := &Box{}
	b.state.Store(uint32(initial))
	b.task.Store(&taskRef{task})
	return b
}

// State returns a snapshot of the current state.
func (b *Box) State() State {
	return State(b.state.Load())
}

// Transition attempts to move the box to state to.
//
// If the box is already in state to, Transition succeeds without
// changing anything. Otherwise it succeeds only if the edge from the
// current state to to is allowed; Canceled and Completed have no
// outgoing edges. A failed transition has no side effects.
//
// The returned prev is the state observed at the linearization point:
// the state the box left on success, or the state that blocked the
// transition on failure. A canceller that loses to the completion path
// therefore receives (false, Completed).
func (b *Box) Transition(to State) (ok bool, prev State) {
	if !to.Valid() {
		return false, b.State()
	}

	for {
		cur := b.state.Load()
		from := State(cur)
		if from == to {
			return true, from
		}
		if !allowed[from][to] {
			return false, from
		}
		if b.state.CompareAndSwap(cur, uint32(to)) {
			return true, from
		}
	}
}

// SetTracking sets the tracking flag and returns its previous value.
//
// A caller that receives false is the one responsible for counting the
// request as active.
func (b *Box) SetTracking() bool {
	return b.tracking.Swap(true)
}

// ClearTracking clears the tracking flag and returns its previous value.
//
// A caller that receives true is the one responsible for uncounting the
// request.
func (b *Box) ClearTracking() bool {
	return b.tracking.Swap(false)
}

// Tracking returns a snapshot of the tracking flag.
func (b *Box) Tracking() bool {
	return b.tracking.Load()
}

// NetworkTask returns the network task of the current attempt.
func (b *Box) NetworkTask() NetworkTask {
	return b.task.Load().task
}

// ReplaceNetworkTask installs task as the current network task and
// returns the one it replaced, so the caller can dispose of the
// superseded attempt. It is used on the retry edge, before moving the
// box back to Running, so that a concurrent canceller which wins the
// race always finds the new task.
func (b *Box) ReplaceNetworkTask(task NetworkTask) NetworkTask {
	if task == nil {
		panic("httptask/lifecycle: nil network task")
	}

	return b.task.Swap(&taskRef{task}).task
}
