// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
)

func newUploadCmd(opts *options) *cobra.Command {
	var (
		method      string
		contentType string
	)
	c := &cobra.Command{
		Use:   "upload <url> <file|->",
		Short: "Stream a file to a URL without buffering it",
		Long: `Stream a file as the request body. The file is re-read from the
start on every retry. Use "-" to stream stdin, which disables retries
since stdin cannot be replayed. A redirect that needs the body again
fails the upload.

Examples:
  httptask upload https://example.com/blobs/1 ./big.iso
  tar c dir | httptask upload -X POST https://example.com/archive -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, name := args[0], args[1]
			ctx, cancel := planContext(cmd, opts)
			defer cancel()

			var (
				p    *request.Plan
				size int64
				err  error
			)
			if name == "-" {
				// Stdin can be handed out once. Replaying it, as a 307 or
				// 308 redirect does, fails the attempt.
				var used atomic.Bool
				p, err = request.NewStreamPlan(ctx, method, url, func() request.FillFunc {
					if used.Swap(true) {
						return request.FailFill()
					}
					return request.ReaderFill(cmd.InOrStdin())
				})
			} else {
				fi, statErr := os.Stat(name)
				if statErr != nil {
					return statErr
				}
				if fi.IsDir() {
					return fmt.Errorf("%s is a directory", name)
				}
				size = fi.Size()
				src := &fileSource{name: name}
				defer src.Close()
				p, err = request.NewStreamPlan(ctx, method, url, src.fill)
			}
			if err != nil {
				return err
			}
			p.ContentLength = size
			if contentType != "" {
				p.Header.Set("Content-Type", contentType)
			}
			if err = setHeaders(p, opts.headers); err != nil {
				return err
			}

			cl, recorder := newClient(cmd, opts)
			if name == "-" {
				cl.RetryPolicy = retry.Never
			}
			e, err := run(cmd, cl, p)
			if err == nil {
				if err = printBody(cmd.OutOrStdout(), e.Body, ""); err != nil {
					return err
				}
			}
			return report(cmd.ErrOrStderr(), opts, e, err, recorder)
		},
	}

	c.Flags().StringVarP(&method, "method", "X", "PUT", "HTTP method")
	c.Flags().StringVar(&contentType, "content-type", "application/octet-stream", "Content-Type header")
	return c
}

// A fileSource opens its file afresh for each attempt. An aborted
// attempt never reaches end of file, so every file opened is closed
// once the request is over. If the file can no longer be opened, the
// attempt fails rather than sending an empty body.
type fileSource struct {
	name  string
	mu    sync.Mutex
	files []*os.File
}

func (s *fileSource) fill() request.FillFunc {
	f, err := os.Open(s.name)
	if err != nil {
		return request.FailFill()
	}

	s.mu.Lock()
	s.files = append(s.files, f)
	s.mu.Unlock()
	return request.ReaderFill(f)
}

func (s *fileSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		_ = f.Close()
	}
	s.files = nil
}
