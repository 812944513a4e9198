// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/internal/batch"
	"github.com/wingedpig/slidesmith/internal/config"
	"github.com/wingedpig/slidesmith/pkg/client"
)

func newApplyAllCommand(ctx *commandContext) *cobra.Command {
	var (
		configPath  string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "apply-all [slide...]",
		Short: "Apply the design system to several slides, one at a time",
		Long: `Restyle slides to match the current design system. Slides run one after
another; a failure is recorded and the batch moves on. Ctrl-C stops the running
slide and leaves the rest untouched.

Without arguments every slide in the project's slides directory is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := args
			if len(keys) == 0 {
				var err error
				if keys, err = projectSlides(configPath); err != nil {
					return err
				}
			}
			if len(keys) == 0 {
				return errors.New("no slides found")
			}

			c := ctx.client()
			run := func(rctx context.Context, key string) error {
				stream, err := c.ApplyDesignSystem(rctx, key)
				if err != nil {
					return err
				}
				defer stream.Close()
				return stream.Decode(rctx, client.Handlers{})
			}
			return runBatch(cmd, ctx, keys, run, interactive && ctx.interactive(cmd))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Project config used to find slides (default: ./slidesmith.hjson)")
	cmd.Flags().BoolVarP(&interactive, "select", "i", false, "Choose slides interactively")
	return cmd
}

// runBatch drives the orchestrator through selection, apply and review.
func runBatch(cmd *cobra.Command, c *commandContext, keys []string, run batch.RunFunc, interactive bool) error {
	out := cmd.OutOrStdout()

	var opts []batch.Option
	if !c.jsonOutput {
		opts = append(opts, batch.WithOnChange(func(s batch.Snapshot) {
			if s.Phase == batch.PhaseApplying {
				fmt.Fprintf(out, "\r\033[K%s", progressLine(s))
			}
		}))
	}
	orch := batch.New(run, opts...)

	if err := orch.Begin(keys); err != nil {
		return err
	}
	if interactive {
		if err := selectItems(bufio.NewReader(cmd.InOrStdin()), out, orch, keys); err != nil {
			orch.Cancel()
			return err
		}
	} else if err := orch.SelectAll(); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	summary, err := orch.Apply(ctx)
	if !c.jsonOutput {
		fmt.Fprintln(out)
	}
	if errors.Is(err, batch.ErrCancelled) {
		if c.jsonOutput {
			printJSON(out, orch.Snapshot())
		} else {
			fmt.Fprint(out, summaryTable(summary))
		}
		return err
	}
	if err != nil {
		return err
	}

	if c.jsonOutput {
		printJSON(out, summary)
	} else {
		fmt.Fprint(out, summaryTable(summary))
	}
	if err := orch.FinishReview(); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d slides failed", summary.Failed, summary.Total)
	}
	return nil
}

var errSelectionAborted = errors.New("selection cancelled")

// selectItems lets the user toggle items by number until they press enter.
func selectItems(in *bufio.Reader, out io.Writer, orch *batch.Orchestrator, keys []string) error {
	for {
		selected := make(map[string]bool)
		for _, k := range orch.Snapshot().Selected {
			selected[k] = true
		}
		fmt.Fprintln(out)
		for i, k := range keys {
			mark := " "
			if selected[k] {
				mark = "x"
			}
			fmt.Fprintf(out, "  [%s] %d) %s\n", mark, i+1, k)
		}
		fmt.Fprint(out, "Toggle numbers, a = all, n = none, enter = apply, q = quit: ")

		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return errSelectionAborted
		}
		input := strings.TrimSpace(line)

		switch input {
		case "":
			if len(selected) == 0 {
				fmt.Fprintln(out, "Nothing selected.")
				continue
			}
			return nil
		case "q":
			return errSelectionAborted
		case "a":
			orch.SelectAll()
			continue
		case "n":
			orch.DeselectAll()
			continue
		}
		for _, field := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.Atoi(field)
			if err != nil || n < 1 || n > len(keys) {
				fmt.Fprintf(out, "Ignoring %q\n", field)
				continue
			}
			orch.Toggle(keys[n-1])
		}
	}
}

// projectSlides lists the slide keys in the project's slides directory.
func projectSlides(configPath string) ([]string, error) {
	loader := config.NewLoader()
	if configPath == "" {
		p, err := loader.FindConfig()
		if err != nil {
			return nil, fmt.Errorf("no slides given and %w", err)
		}
		configPath = p
	}
	cfg, err := loader.LoadWithDefaults(context.Background(), configPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(cfg.Project.Root, cfg.Slides.Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read slides: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != cfg.Slides.Extension {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, cfg.Slides.Extension))
	}
	sort.Strings(keys)
	return keys, nil
}
