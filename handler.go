// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"github.com/gogama/httptask/request"
)

// A HandlerGroup holds one chain of handlers per Event. Install it in
// Client.Handlers.
//
// One group may serve many clients and tasks, but must not be modified
// while an execution is using it. An execution runs its handlers in
// chain order on its own goroutine, so a handler needs to be safe for
// concurrent use only when several executions share it.
type HandlerGroup struct {
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. It panics if h is nil or
// evt is not one of Events().
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	switch {
	case h == nil:
		panic("httptask: nil handler")
	case evt < 0 || evt >= eventSentinel:
		panic("httptask: invalid event")
	}
	g.chains[evt] = append(g.chains[evt], h)
}

// Len returns the length of the chain for evt.
func (g *HandlerGroup) Len(evt Event) int {
	if evt < 0 || evt >= eventSentinel {
		return 0
	}
	return len(g.chains[evt])
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	for _, h := range g.chains[evt] {
		h.Handle(evt, e)
	}
}

// A Handler is called when the event it is installed for fires.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
