// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics records request attempt latency and network activity
// for an httptask.Client.
//
// A Recorder is installed into a client's handler group to observe
// attempts, and doubles as the client's activity counter:
//
//	r := metrics.NewRecorder()
//	handlers := &httptask.HandlerGroup{}
//	r.Install(handlers)
//	client := &httptask.Client{
//		Handlers: handlers,
//		Activity: r,
//	}
//	...
//	s := r.Snapshot()
//	fmt.Println(s.Attempts, s.P99)
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/gogama/httptask"
	"github.com/gogama/httptask/request"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

type startKey struct{}

// A Recorder aggregates metrics about the request attempts made by
// one or more clients. Its methods are safe for concurrent use.
//
// Latency is recorded in microseconds from 1µs to 60s, with three
// significant digits; values outside that range are clamped.
type Recorder struct {
	mu      sync.Mutex
	latency *hdrhistogram.Histogram

	executions atomic.Int64
	attempts   atomic.Int64
	retries    atomic.Int64
	errors     atomic.Int64
	timeouts   atomic.Int64
	canceled   atomic.Int64
	inFlight   atomic.Int64
}

// A Snapshot is a point-in-time copy of the metrics of a Recorder.
type Snapshot struct {
	Executions int64
	Attempts   int64
	Retries    int64
	Errors     int64
	Timeouts   int64
	Canceled   int64
	InFlight   int64

	Min  time.Duration
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		latency: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Install adds the recorder's event handlers to g.
func (r *Recorder) Install(g *httptask.HandlerGroup) {
	g.PushBack(httptask.BeforeAttempt, httptask.HandlerFunc(r.beforeAttempt))
	g.PushBack(httptask.AfterAttempt, httptask.HandlerFunc(r.afterAttempt))
	g.PushBack(httptask.AfterExecutionEnd, httptask.HandlerFunc(r.afterExecutionEnd))
}

// Increment records that an execution has started network activity.
// It makes Recorder a lifecycle.ActivityCounter.
func (r *Recorder) Increment() {
	r.inFlight.Add(1)
}

// Decrement records that an execution has stopped network activity.
func (r *Recorder) Decrement() {
	r.inFlight.Add(-1)
}

// InFlight returns the number of executions with network activity in
// progress.
func (r *Recorder) InFlight() int64 {
	return r.inFlight.Load()
}

// Snapshot returns the current metrics.
func (r *Recorder) Snapshot() Snapshot {
	s := Snapshot{
		Executions: r.executions.Load(),
		Attempts:   r.attempts.Load(),
		Retries:    r.retries.Load(),
		Errors:     r.errors.Load(),
		Timeouts:   r.timeouts.Load(),
		Canceled:   r.canceled.Load(),
		InFlight:   r.inFlight.Load(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latency.TotalCount() == 0 {
		return s
	}
	s.Min = us(r.latency.Min())
	s.Mean = time.Duration(r.latency.Mean() * float64(time.Microsecond))
	s.P50 = us(r.latency.ValueAtQuantile(50))
	s.P95 = us(r.latency.ValueAtQuantile(95))
	s.P99 = us(r.latency.ValueAtQuantile(99))
	s.Max = us(r.latency.Max())
	return s
}

// Reset clears the latency histogram and counters. The in-flight gauge
// is left alone, since it reflects live executions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.latency.Reset()
	r.mu.Unlock()
	r.executions.Store(0)
	r.attempts.Store(0)
	r.retries.Store(0)
	r.errors.Store(0)
	r.timeouts.Store(0)
	r.canceled.Store(0)
}

func (r *Recorder) beforeAttempt(_ httptask.Event, e *request.Execution) {
	e.SetValue(startKey{}, time.Now())
}

func (r *Recorder) afterAttempt(_ httptask.Event, e *request.Execution) {
	r.attempts.Add(1)
	if e.Attempt > 0 {
		r.retries.Add(1)
	}
	if e.Err != nil {
		r.errors.Add(1)
	}
	if e.Timeout() {
		r.timeouts.Add(1)
	}
	if start, ok := e.Value(startKey{}).(time.Time); ok {
		r.record(time.Since(start))
	}
}

func (r *Recorder) afterExecutionEnd(_ httptask.Event, e *request.Execution) {
	r.executions.Add(1)
	if e.Canceled() {
		r.canceled.Add(1)
	}
}

func (r *Recorder) record(d time.Duration) {
	v := d.Microseconds()
	if v < minLatencyUs {
		v = minLatencyUs
	}
	if v > maxLatencyUs {
		v = maxLatencyUs
	}

	r.mu.Lock()
	_ = r.latency.RecordValue(v)
	r.mu.Unlock()
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
