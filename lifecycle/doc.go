// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package lifecycle tracks what an in-flight HTTP request is currently doing.

A Box is shared by reference between the goroutine executing a request,
any goroutine delivering transport results, and any goroutine that wants
to cancel the request. All of its operations are lock-free, so they may
be called from contexts where blocking would stall unrelated traffic.

A request moves through the following states:

	Running ──────► Processing ──────► Completed
	   │  ▲              │
	   │  └── (retry) ───┤
	   ▼                 ▼
	Canceled ◄───────────┘

Canceled and Completed are terminal. A retry re-enters Running with a new
NetworkTask installed via ReplaceNetworkTask, so callers keep seeing the
same logical request.

A Box also carries a tracking flag, independent of the state, which
records whether the request is currently counted by an ActivityCounter.
Use Track and Untrack to keep the counter balanced when several
goroutines race to count or uncount the same request.
*/
package lifecycle
