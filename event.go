// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import "strconv"

// An Event is a point in a plan execution where Client runs the
// handlers installed for it. Events() lists them in firing order.
type Event int

const (
	// BeforeExecutionStart fires once, before the first attempt. Only
	// the execution's Plan and Start are set. The lifecycle box is
	// Running.
	BeforeExecutionStart Event = iota

	// BeforeAttempt fires before each attempt, with Request set to the
	// request about to be sent. Handlers may change the request, but
	// should clone its URL and Header first since they are shared with
	// the plan.
	BeforeAttempt

	// BeforeReadBody fires when an attempt gets a response, whatever
	// its status code, before the body is read. It does not fire when
	// the attempt fails without a response. Handlers may replace
	// Response.
	BeforeReadBody

	// AfterAttemptTimeout fires when an attempt ends by exceeding the
	// attempt timeout. Err holds the timeout and AttemptTimeouts has
	// already been incremented.
	AfterAttemptTimeout

	// AfterAttempt fires after every attempt, before the retry policy
	// is asked whether to retry. At least one of Response and Err is
	// set. Both are set when the response body could not be read.
	//
	// If the task was canceled during the attempt, Err wraps
	// ErrCanceled and the execution is already Canceled.
	AfterAttempt

	// AfterPlanTimeout fires when the deadline of the plan's context
	// passes, either during an attempt or during a retry wait. It
	// follows AfterAttempt. Response and Body are nil.
	AfterPlanTimeout

	// AfterExecutionEnd fires once, after the last attempt. The
	// execution is as it was after the last AfterAttempt, except that
	// End is set and the lifecycle box is Completed or Canceled.
	AfterExecutionEnd

	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = [numEvents]string{
	BeforeExecutionStart: "BeforeExecutionStart",
	BeforeAttempt:        "BeforeAttempt",
	BeforeReadBody:       "BeforeReadBody",
	AfterAttemptTimeout:  "AfterAttemptTimeout",
	AfterAttempt:         "AfterAttempt",
	AfterPlanTimeout:     "AfterPlanTimeout",
	AfterExecutionEnd:    "AfterExecutionEnd",
}

// Events returns every event, in the order a plan execution fires
// them.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}
	return evts
}

// Name returns the event's identifier, such as "AfterAttempt".
func (evt Event) Name() string {
	if evt < 0 || evt >= eventSentinel {
		return "Event(" + strconv.Itoa(int(evt)) + ")"
	}
	return eventNames[evt]
}

func (evt Event) String() string {
	return evt.Name()
}
