// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httptask executes HTTP request plans with attempt timeouts,
retries, streamed request bodies and cancelable background tasks.

The zero Client is ready to use:

	client := &httptask.Client{}
	e, err := client.Get("https://svc.example/items")
	...
	e, err = client.PostForm("https://svc.example/login",
		url.Values{"user": {"ann"}})

A plan is one logical request. The client turns it into a fresh
http.Request for every attempt and sends it with its HTTPDoer, which
defaults to http.DefaultClient:

	client := &httptask.Client{
		HTTPDoer: &http.Client{Transport: transport},
	}

Retry decisions and waits come from a retry.Policy, and attempt
timeouts from a timeout.Policy:

	client := &httptask.Client{
		RetryPolicy: retry.NewPolicy(
			retry.DefaultDecider,
			retry.RetryAfter(retry.DefaultWaiter, 30*time.Second)),
		TimeoutPolicy: timeout.Streaming(timeout.DefaultPolicy, timeout.Fixed(10*time.Minute)),
	}

Start runs a plan in the background. The Task it returns can be waited
on, or canceled from any goroutine:

	task := client.Start(plan)
	...
	task.Cancel()
	e, err := task.Wait() // err wraps ErrCanceled

Each execution's state (Running, Processing, Canceled or Completed)
lives in a lock-free lifecycle.Box, shared by Task.State and
Execution.Lifecycle. A Cancel that arrives after completion changes
nothing, and a retry never revives a canceled task.

A large upload can be streamed from a FillFunc instead of buffered.
Every attempt opens a new stream, so a retry sends the body again from
the start:

	plan, err := request.NewStreamPlan(ctx, "PUT", url, func() request.FillFunc {
		f, err := os.Open(name)
		if err != nil {
			return request.FailFill()
		}
		return request.ReaderFill(f)
	})

Handlers installed in a HandlerGroup run at each Event of an execution:

	handlers := &httptask.HandlerGroup{}
	handlers.PushBack(httptask.BeforeAttempt, httptask.HandlerFunc(
		func(_ httptask.Event, e *request.Execution) {
			slog.Info("attempt", "n", e.Attempt, "url", e.Request.URL)
		}))
	client := &httptask.Client{Handlers: handlers}

Packages metrics and tracing provide ready-made handler groups for
attempt latency histograms and OpenTelemetry spans.

Each Client method has a single-method interface (Doer, Getter, Header,
Poster, FormPoster, StreamPoster, Starter and IdleCloser), and Executor
combines the synchronous ones. Get, Head, Post, PostForm and PostStream
work on any Doer, and Inflate makes any Doer an Executor.
*/
package httptask
