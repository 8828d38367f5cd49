// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/gogama/httptask"
	"github.com/gogama/httptask/metrics"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
	"github.com/gogama/httptask/timeout"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitHTTPError    = 1
	ExitNetworkError = 4
	ExitCanceled     = 130
)

// maxRetryAfter caps how long a server's Retry-After header can make
// the command sleep between attempts.
const maxRetryAfter = 30 * time.Second

type options struct {
	retries     int
	budget      float64
	timeout     time.Duration
	upTimeout   time.Duration
	deadline    time.Duration
	headers     []string
	verbose     bool
	noColor     bool
	showMetrics bool
}

// An exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and exits the process on failure.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := newRootCmd().Execute(); err != nil {
		if ee, ok := err.(*exitError); ok {
			os.Exit(ee.code)
		}
		os.Exit(64)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "httptask",
		Short: "Robust HTTP requests from the command line",
		Long: `httptask sends HTTP requests with automatic retries, per-attempt
timeouts and streaming uploads. Press Ctrl+C to cancel an in-flight
request cleanly, including during a retry wait.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.IntVarP(&opts.retries, "retries", "r", retry.DefaultTimes, "maximum number of retries")
	f.Float64Var(&opts.budget, "retry-rate", 0, "maximum retries per second (0 for unlimited)")
	f.DurationVarP(&opts.timeout, "timeout", "t", 5*time.Second, "timeout for each attempt")
	f.DurationVar(&opts.upTimeout, "upload-timeout", 0, "timeout for each streamed upload attempt (0 for none)")
	f.DurationVar(&opts.deadline, "deadline", 0, "deadline for the whole request including retries (0 for none)")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, `request header as "Name: value" (repeatable)`)
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log attempts and retries to stderr")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	f.BoolVar(&opts.showMetrics, "metrics", false, "print attempt metrics after the request")

	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newUploadCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// newClient builds the client described by opts, with a metrics
// recorder installed.
func newClient(cmd *cobra.Command, opts *options) (*httptask.Client, *metrics.Recorder) {
	decider := retry.NotCanceled.
		And(retry.Times(opts.retries)).
		And(retry.StatusCode(429, 502, 503, 504).Or(retry.TransientErr))
	if opts.budget > 0 {
		burst := int(opts.budget)
		if burst < 1 {
			burst = 1
		}
		decider = decider.And(retry.Budget(rate.NewLimiter(rate.Limit(opts.budget), burst)))
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	recorder := metrics.NewRecorder()
	handlers := &httptask.HandlerGroup{}
	recorder.Install(handlers)
	if opts.verbose {
		handlers.PushBack(httptask.BeforeAttempt, httptask.HandlerFunc(func(_ httptask.Event, e *request.Execution) {
			logger.Debug("attempt", "n", e.Attempt, "method", e.Request.Method, "url", e.Request.URL.String())
		}))
	}

	streamed := timeout.Infinite
	if opts.upTimeout > 0 {
		streamed = timeout.Fixed(opts.upTimeout)
	}

	return &httptask.Client{
		RetryPolicy:   retry.NewPolicy(decider, retry.RetryAfter(retry.DefaultWaiter, maxRetryAfter)),
		TimeoutPolicy: timeout.Streaming(timeout.Fixed(opts.timeout), streamed),
		Handlers:      handlers,
		Activity:      recorder,
		Logger:        logger,
	}, recorder
}

// planContext returns the context for a plan, honoring the deadline
// flag.
func planContext(cmd *cobra.Command, opts *options) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.deadline > 0 {
		return context.WithTimeout(ctx, opts.deadline)
	}
	return context.WithCancel(ctx)
}

func setHeaders(p *request.Plan, headers []string) error {
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q (want \"Name: value\")", h)
		}
		p.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return nil
}

// run starts the plan and waits for it, canceling the task on interrupt.
func run(cmd *cobra.Command, cl *httptask.Client, p *request.Plan) (*request.Execution, error) {
	sig, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	task := cl.Start(p)
	select {
	case <-task.Done():
	case <-sig.Done():
		if task.Cancel() {
			fmt.Fprintln(cmd.ErrOrStderr(), "canceling request...")
		}
	}

	return task.Wait()
}

// report prints the outcome line and, when asked, the metrics, and
// maps the outcome to an exit error.
func report(w io.Writer, opts *options, e *request.Execution, err error, r *metrics.Recorder) error {
	color.NoColor = color.NoColor || opts.noColor
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if opts.showMetrics {
		defer printMetrics(w, r.Snapshot(), cyan)
	}

	attempts := fmt.Sprintf("(%d attempt(s), %dms)", e.Attempt+1, e.Duration().Milliseconds())
	switch {
	case e.Canceled():
		fmt.Fprintf(w, "%s %s %s\n", yellow("canceled"), e.Plan.URL, cyan(attempts))
		return &exitError{ExitCanceled, err}
	case err != nil:
		fmt.Fprintf(w, "%s %v %s\n", red("error"), err, cyan(attempts))
		return &exitError{ExitNetworkError, err}
	case e.StatusCode() >= 400:
		fmt.Fprintf(w, "%s %s %s\n", red(e.Response.Status), e.Plan.URL, cyan(attempts))
		return &exitError{ExitHTTPError, fmt.Errorf("server returned %s", e.Response.Status)}
	default:
		fmt.Fprintf(w, "%s %s %s\n", green(e.Response.Status), e.Plan.URL, cyan(attempts))
		return nil
	}
}

func printMetrics(w io.Writer, s metrics.Snapshot, cyan func(a ...interface{}) string) {
	fmt.Fprintf(w, "%s attempts=%d retries=%d errors=%d timeouts=%d\n",
		cyan("metrics"), s.Attempts, s.Retries, s.Errors, s.Timeouts)
	fmt.Fprintf(w, "%s p50=%s p95=%s p99=%s max=%s\n",
		cyan("latency"), s.P50, s.P95, s.P99, s.Max)
}
