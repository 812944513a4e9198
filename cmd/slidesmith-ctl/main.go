// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// slidesmith-ctl drives a running slidesmith server from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var version = "0.3"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
