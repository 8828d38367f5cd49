// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/transient"
)

// An Execution is the running record of one plan execution. The client
// updates it as attempts are made and retries are decided, passes it to
// every policy and event handler, and returns it when the execution
// ends.
//
// Policies and handlers must treat the exported fields as read-only.
// The exceptions are changes to Request before it is sent, such as
// signing it, and transformations of Body after it is read, such as
// decompressing it. Private state belongs in SetValue.
type Execution struct {
	// Plan is the plan being executed. It is never nil.
	Plan *Plan

	// Start is when the execution started. It does not change once
	// set.
	Start time.Time

	// End is when the execution ended, or the zero time while it is
	// still running.
	End time.Time

	// Attempt is the zero-based attempt number: 0 for the first try, 1
	// for the first retry, and so on. After the execution ends it is
	// the number of the last attempt.
	Attempt int

	// AttemptTimeouts counts the attempts that ended by exceeding the
	// attempt timeout. A plan timeout is not counted unless it landed
	// on the same attempt as an attempt timeout.
	AttemptTimeouts int

	// Request is the http.Request of the current or last attempt.
	Request *http.Request

	// Response is the response to the last attempt. It is nil while an
	// attempt is in flight, and when the last attempt failed without a
	// response.
	Response *http.Response

	// Err is the error from the last attempt, always a *url.Error when
	// not nil. It may change from attempt to attempt; once the
	// execution has ended it is the error the client returned.
	Err error

	// Body is the response body read in the last attempt. Body and Err
	// may both be set if the read failed partway, in which case Body
	// holds what was read before the failure.
	Body []byte

	// Lifecycle is the state box shared by the executing goroutine and
	// anyone canceling the task. One box serves every attempt: a retry
	// moves it back to Running rather than replacing it.
	//
	// Handlers and policies may read it but must not transition it.
	Lifecycle *lifecycle.Box

	data context.Context
}

// StatusCode returns the status code of Response, or 0 if there is no
// response.
func (e *Execution) StatusCode() int {
	if e.Response != nil {
		return e.Response.StatusCode
	}
	return 0
}

// Header returns the header of Response, or nil if there is no
// response. The nil header is safe to read from.
func (e *Execution) Header() http.Header {
	if e.Response != nil {
		return e.Response.Header
	}
	return nil
}

// Duration returns how long the execution has been running, or how
// long it ran once it has ended. It is zero before the start.
func (e *Execution) Duration() time.Duration {
	switch {
	case !e.Started():
		return 0
	case e.Ended():
		return e.End.Sub(e.Start)
	default:
		return time.Since(e.Start)
	}
}

// Started reports whether Start is set.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended reports whether End is set. An ended execution no longer
// changes.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// State returns the state of Lifecycle, or Running if the execution
// has no box yet.
func (e *Execution) State() lifecycle.State {
	if e.Lifecycle != nil {
		return e.Lifecycle.State()
	}
	return lifecycle.Running
}

// Canceled reports whether the execution was canceled through its task
// or its plan context.
func (e *Execution) Canceled() bool {
	return e.State() == lifecycle.Canceled
}

// Timeout reports whether Err is a timeout, of the attempt or of the
// plan. It reflects the last attempt only, so it can be false when
// AttemptTimeouts is positive and true when it is zero.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores value under key for later retrieval with Value. Keys
// follow the rules of context.WithValue: not nil, comparable, and of a
// type private to the package setting them.
func (e *Execution) SetValue(key, value interface{}) {
	parent := e.data
	if parent == nil {
		parent = context.Background()
	}
	e.data = context.WithValue(parent, key, value)
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	if e.data == nil {
		return nil
	}
	return e.data.Value(key)
}
