// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines flexible policies for setting HTTP timeouts
// during an HTTP request plan execution, including on retries. A
// generic interface for timeout policies is provided, Policy, along
// with several useful policy generating functions and built-in policies.
//
// The attempt timeout bounds a single request attempt. It is separate
// from the plan context deadline, which bounds the whole execution
// including retry waits, and from task cancellation, which ends the
// execution early at the caller's request.
package timeout
