// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/pkg/client"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var opts client.ListOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent server events",
		RunE: func(cmd *cobra.Command, args []string) error {
			evts, err := ctx.client().Events(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.jsonOutput {
				printJSON(out, evts)
				return nil
			}
			if len(evts) == 0 {
				fmt.Fprintln(out, "No events")
				return nil
			}
			rows := make([][]string, 0, len(evts))
			for _, e := range evts {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Type,
					e.Item,
					formatPayload(e.Payload),
				})
			}
			fmt.Fprint(out, renderTable([]string{"Time", "Type", "Item", "Details"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Maximum number of events")
	cmd.Flags().StringArrayVar(&opts.Types, "type", nil, "Event type pattern, e.g. generation.* (repeatable)")
	cmd.Flags().StringVar(&opts.Item, "item", "", "Only events about this slide or \"design-system\"")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and running generators",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.jsonOutput {
				printJSON(out, h)
				return nil
			}
			pids := make([]string, 0, len(h.PIDs))
			for _, p := range h.PIDs {
				pids = append(pids, strconv.Itoa(p))
			}
			fmt.Fprint(out, renderTable(
				[]string{"Server", "Generators", "PIDs"},
				[][]string{{ctx.apiURL, strconv.Itoa(h.Generators), strings.Join(pids, " ")}},
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func formatPayload(p map[string]interface{}) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}
