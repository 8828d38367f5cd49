// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
	"github.com/gogama/httptask/timeout"
)

// A Task is a handle to one execution of a request plan started with
// Client.Start or Client.Do.
//
// The Task remains the same logical operation across all the request
// attempts the retry policy makes, and may be canceled at any time from
// any goroutine. Its methods are safe for concurrent use.
type Task struct {
	id     string
	box    *lifecycle.Box
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	exec   *request.Execution

	panicVal interface{}
	panicked bool

	doer          HTTPDoer
	retryPolicy   retry.Policy
	timeoutPolicy timeout.Policy
	handlers      *HandlerGroup
	activity      lifecycle.ActivityCounter
	logger        *slog.Logger
}

// ID returns the unique identifier of the task.
func (t *Task) ID() string {
	return t.id
}

// State returns a snapshot of the task's lifecycle state.
func (t *Task) State() lifecycle.State {
	return t.box.State()
}

// Cancel cancels the task.
//
// If the task is Running or Processing, it is moved to the Canceled
// state, the active network task is canceled so that any in-progress
// request attempt aborts, and any pending retry wait is abandoned.
// Cancel then returns true. If the task was already canceled, Cancel
// returns true and does nothing. If the task already completed, Cancel
// returns false.
//
// Cancel does not wait for the execution to wind down. Use Wait or Done
// for that.
func (t *Task) Cancel() bool {
	ok, prev := t.box.Transition(lifecycle.Canceled)
	if !ok {
		t.logger.Debug("httptask: cancel lost to completion", "state", prev)
		return false
	}

	if prev != lifecycle.Canceled {
		t.logger.Debug("httptask: task canceled", "state", prev)
		t.abort()
	}

	return true
}

// Done returns a channel that is closed when the execution has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the execution ends and returns its result, with the
// same meaning as the return values of Client.Do.
//
// If the execution panicked, Wait panics with the same value.
func (t *Task) Wait() (*request.Execution, error) {
	<-t.done
	if t.panicked {
		panic(t.panicVal)
	}

	return t.exec, t.exec.Err
}

func (t *Task) abort() {
	t.box.NetworkTask().Cancel()
	t.cancel()
	lifecycle.Untrack(t.box, t.activity)
}

func (t *Task) runAsync() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.panicVal = r
			t.panicked = true
		}
	}()

	t.run()
}

func (t *Task) run() {
	e := t.exec
	finished := false
	defer func() {
		if !finished {
			t.box.Transition(lifecycle.Canceled)
			t.abort()
		}
	}()

	t.handlers.run(BeforeExecutionStart, e)
	p := e.Plan
	if p == nil {
		panic("httptask: plan deleted from execution")
	}
	e.Start = time.Now()

	for {
		t.sendAndReceive(p, e)
		if e.Timeout() {
			e.AttemptTimeouts++
			t.handlers.run(AfterAttemptTimeout, e)
		}
		t.handlers.run(AfterAttempt, e)
		if t.box.State() == lifecycle.Canceled {
			t.setCanceled(p, e)
			break
		}
		planCtxErr := p.Context().Err()
		if planCtxErr == context.DeadlineExceeded {
			t.handlers.run(AfterPlanTimeout, e)
			break
		} else if planCtxErr != nil {
			e.Err = urlErrorWrap(p, planCtxErr)
			t.box.Transition(lifecycle.Canceled)
			break
		} else if !t.retryPolicy.Decide(e) {
			break
		} else if !t.wait(p, e) || !t.retry(p, e) {
			break
		}
	}

	t.complete(p, e)
	finished = true
}

func (t *Task) sendAndReceive(p *request.Plan, e *request.Execution) {
	a := t.box.NetworkTask().(*attempt)
	ctx, cancel := context.WithTimeout(p.Context(), t.timeoutPolicy.Timeout(e))
	defer cancel()
	stop := context.AfterFunc(a.ctx, cancel)
	defer stop()

	e.Request = p.ToRequest(ctx)
	t.handlers.run(BeforeAttempt, e)
	if e.Request.Body != nil {
		defer func() {
			_ = e.Request.Body.Close()
		}()
	}

	if a.ctx.Err() != nil {
		e.Err = urlErrorWrap(p, ErrCanceled)
		return
	}

	lifecycle.Track(t.box, t.activity)
	defer lifecycle.Untrack(t.box, t.activity)

	resp, err := t.doer.Do(e.Request)
	if ok, _ := t.box.Transition(lifecycle.Processing); !ok {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		e.Err = urlErrorWrap(p, ErrCanceled)
		return
	}

	e.Response = resp
	if err != nil {
		e.Err = urlErrorWrap(p, err)
		return
	}

	t.readBody(p, e)
}

func (t *Task) readBody(p *request.Plan, e *request.Execution) {
	defer func() {
		if e.Response != nil && e.Response.Body != nil {
			_ = e.Response.Body.Close()
		}
	}()
	t.handlers.run(BeforeReadBody, e)
	if e.Response == nil {
		panic("httptask: attempt response was nilled")
	}
	if e.Response.Body == nil {
		panic("httptask: attempt response body was nilled")
	}
	var err error
	e.Body, err = io.ReadAll(e.Response.Body)
	if err != nil {
		e.Err = urlErrorWrap(p, err)
	}
}

func (t *Task) wait(p *request.Plan, e *request.Execution) bool {
	timer := time.NewTimer(t.retryPolicy.Wait(e))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.Context().Done():
		err := p.Context().Err()
		e.Err = urlErrorWrap(p, err)
		if err == context.DeadlineExceeded {
			t.handlers.run(AfterPlanTimeout, e)
		} else {
			t.box.Transition(lifecycle.Canceled)
		}
		return false
	case <-t.ctx.Done():
		t.setCanceled(p, e)
		return false
	}
}

func (t *Task) retry(p *request.Plan, e *request.Execution) bool {
	next := newAttempt(t.ctx)
	t.box.ReplaceNetworkTask(next).Cancel()
	if ok, prev := t.box.Transition(lifecycle.Running); !ok {
		next.Cancel()
		t.logger.Debug("httptask: retry abandoned", "attempt", e.Attempt, "state", prev)
		t.setCanceled(p, e)
		return false
	}

	e.Response = nil
	e.Err = nil
	e.Body = nil
	e.Attempt++
	t.logger.Debug("httptask: retrying", "attempt", e.Attempt, "url", p.URL.String())
	return true
}

func (t *Task) complete(p *request.Plan, e *request.Execution) {
	if ok, prev := t.box.Transition(lifecycle.Completed); !ok && prev == lifecycle.Canceled {
		if !isCancellation(e.Err) {
			t.setCanceled(p, e)
		}
	}
	t.abort()

	e.End = time.Now()
	t.handlers.run(AfterExecutionEnd, e)
}

// setCanceled replaces the attempt outcome with the cancellation error.
// The response body has always been closed by the time it runs.
func (t *Task) setCanceled(p *request.Plan, e *request.Execution) {
	e.Response = nil
	e.Body = nil
	if !errors.Is(e.Err, ErrCanceled) {
		e.Err = urlErrorWrap(p, ErrCanceled)
	}
}

// An attempt is the network task handle of a single request attempt.
// Canceling it cancels the context of the attempt's request.
type attempt struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newAttempt(parent context.Context) *attempt {
	ctx, cancel := context.WithCancel(parent)
	return &attempt{ctx: ctx, cancel: cancel}
}

func (a *attempt) Cancel() {
	a.cancel()
}
