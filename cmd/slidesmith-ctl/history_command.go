// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/internal/conversation"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history [item]",
		Short: "Show the local conversation for a slide file or \"design-system\"",
		Long:  "Show the local conversation for an item. Without an item, list the items that have one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store := ctx.conversations()

			if len(args) == 0 {
				keys, err := store.Keys()
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					printJSON(out, keys)
					return nil
				}
				if len(keys) == 0 {
					fmt.Fprintln(out, "No conversations")
				}
				for _, k := range keys {
					fmt.Fprintln(out, k)
				}
				return nil
			}

			conv, err := store.Get(args[0])
			if err != nil {
				return err
			}
			msgs := conv.Messages()
			if ctx.jsonOutput {
				printJSON(out, map[string]interface{}{
					"item":       conv.ItemKey(),
					"session_id": conv.SessionID(),
					"messages":   msgs,
				})
				return nil
			}
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No conversation for %s\n", conv.ItemKey())
				return nil
			}
			if sid := conv.SessionID(); sid != "" {
				fmt.Fprintf(out, "Session: %s\n", sid)
			}
			for _, m := range msgs {
				fmt.Fprintln(out, formatMessage(m))
			}
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <item>",
		Short: "Forget the local conversation for an item",
		Long: `Forget the local conversation and resume token for an item, so the next
request starts a fresh generator session. The generator's own session files are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.conversations().Clear(args[0]); err != nil {
				return err
			}
			if !ctx.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation for %s\n", args[0])
			}
			return nil
		},
	}
}

func formatMessage(m conversation.Message) string {
	head := fmt.Sprintf("%s %s", m.Timestamp.Format("2006-01-02 15:04:05"), m.Role)
	if m.Role == conversation.RoleUser {
		head = color.CyanString(head)
	} else {
		head = color.New(color.Bold).Sprint(head)
	}
	switch m.Status {
	case conversation.StatusError:
		head += " " + color.RedString("[error: %s]", m.Error)
	case conversation.StatusPending, conversation.StatusStreaming:
		head += " " + color.YellowString("[%s]", m.Status)
	}
	body := strings.TrimSpace(m.Text)
	if body == "" {
		return head
	}
	return head + "\n" + body + "\n"
}
