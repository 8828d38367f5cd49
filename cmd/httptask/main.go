// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command httptask sends HTTP requests through the robust httptask
// client, with retries, attempt timeouts, streaming uploads and
// cancellation on interrupt.
package main

import "github.com/gogama/httptask/cmd/httptask/cmd"

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
