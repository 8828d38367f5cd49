// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides flexible policies for retrying failed attempts
// during an HTTP request plan execution, and how long to wait before
// retrying.
//
// The interface Policy defines a retry Policy. A Policy instance can be
// constructed using NewPolicy by providing a decision-maker, Decider,
// and a wait time calculator, Waiter. Both Decider and Waiter have
// constructors for common use cases, so that a useful policy can be
// quickly assembled:
//
//	decider := retry.Times(3).
//		And(retry.Before(5 * time.Second)).
//		And(retry.StatusCode(500).Or(retry.TransientErr))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, waiter)
//
// To protect a struggling remote service from a retry storm, spend
// retries from a shared token bucket with Budget:
//
//	limiter := rate.NewLimiter(rate.Limit(5), 10)
//	decider := retry.DefaultDecider.And(retry.Budget(limiter))
//
// To honor the Retry-After header of a throttling server, wrap another
// Waiter with RetryAfter.
//
// Retry policies are only consulted while a task is running. A task
// canceled through httptask.Task.Cancel is never retried, whatever the
// policy decides.
//
// If the built-in functionality is insufficient, fully custom retry
// policies can be created by via custom implementations of Decider,
// Waiter, or Policy.
package retry
