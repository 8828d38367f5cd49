// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/gogama/httptask/request"
)

func newGetCmd(opts *options) *cobra.Command {
	var (
		path    string
		include bool
	)
	c := &cobra.Command{
		Use:   "get <url>",
		Short: "Send a GET request and print the response body",
		Long: `Send a GET request, retrying transient failures, and print the
response body to stdout. The status line goes to stderr.

Examples:
  httptask get https://example.com
  httptask get -H "Accept: application/json" --path data.items.0.id https://api.example.com/things`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := planContext(cmd, opts)
			defer cancel()
			p, err := request.NewPlanWithContext(ctx, "GET", args[0], nil)
			if err != nil {
				return err
			}
			if err = setHeaders(p, opts.headers); err != nil {
				return err
			}

			cl, recorder := newClient(cmd, opts)
			e, err := run(cmd, cl, p)
			if err == nil {
				if include {
					printHeaders(cmd.OutOrStdout(), e)
				}
				if err = printBody(cmd.OutOrStdout(), e.Body, path); err != nil {
					return err
				}
			}
			return report(cmd.ErrOrStderr(), opts, e, err, recorder)
		},
	}

	c.Flags().StringVar(&path, "path", "", "print only the value at this JSON path (gjson syntax)")
	c.Flags().BoolVarP(&include, "include", "i", false, "print response headers")
	return c
}

func printHeaders(w io.Writer, e *request.Execution) {
	h := e.Header()
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
}

func printBody(w io.Writer, body []byte, path string) error {
	if path == "" {
		_, err := w.Write(body)
		return err
	}

	if !gjson.ValidBytes(body) {
		return fmt.Errorf("response body is not valid JSON")
	}
	r := gjson.GetBytes(body, path)
	if !r.Exists() {
		return fmt.Errorf("path %q not found in response", path)
	}
	_, err := fmt.Fprintln(w, r.String())
	return err
}
