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
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/pkg/client"
)

// openFunc opens a stream, resuming sessionID when it is not empty.
type openFunc func(ctx context.Context, prompt, sessionID string) (*client.Stream, error)

// streamResult is what a finished stream reports.
type streamResult struct {
	SessionID  string `json:"session_id,omitempty"`
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

// signalContext is cancelled on SIGINT or SIGTERM, which disconnects any open
// stream and stops its generator.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// decodeStream prints stream as it arrives unless quiet is set.
func decodeStream(ctx context.Context, stream *client.Stream, out, errOut io.Writer, quiet bool, wrap func(client.Handlers) client.Handlers) (streamResult, error) {
	defer stream.Close()

	var res streamResult
	printer := &textPrinter{w: out}
	h := client.Handlers{
		OnSession: func(id string) { res.SessionID = id },
		OnText: func(text string) {
			res.Transcript = text
			if !quiet {
				printer.Update(text)
			}
		},
		OnStderr: func(line string) {
			if !quiet {
				fmt.Fprintln(errOut, color.New(color.Faint).Sprint(line))
			}
		},
	}
	if wrap != nil {
		h = wrap(h)
	}

	err := stream.Decode(ctx, h)
	if !quiet {
		printer.Finish()
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res, err
}

// runConversation sends prompt as a turn of the item's conversation and, when the
// reply asks several questions, collects the answers and sends them as the next turn.
func runConversation(cmd *cobra.Command, c *commandContext, itemKey, prompt string, open openFunc) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	store := c.conversations()
	conv, err := store.Get(itemKey)
	if err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	in := bufio.NewReader(cmd.InOrStdin())

	for {
		turn, err := conv.Begin(prompt)
		if err != nil {
			return err
		}

		res, err := func() (streamResult, error) {
			stream, err := open(ctx, prompt, conv.SessionID())
			if err != nil {
				return streamResult{}, err
			}
			return decodeStream(ctx, stream, out, errOut, c.jsonOutput, turn.Handlers)
		}()
		turn.Finish(err)
		if saveErr := store.Save(conv); saveErr != nil {
			fmt.Fprintf(errOut, "warning: save conversation: %v\n", saveErr)
		}

		if c.jsonOutput {
			res.SessionID = conv.SessionID()
			printJSON(out, res)
		}
		if err != nil {
			return err
		}

		groups := client.ParseQuestionGroups(res.Transcript)
		if !client.NeedsWizard(groups) || c.jsonOutput || !c.interactive(cmd) {
			return nil
		}
		answer, err := askQuestions(in, out, groups)
		if errors.Is(err, errWizardAborted) {
			fmt.Fprintln(errOut, "Questions left unanswered; reply later with the same command.")
			return nil
		}
		if err != nil {
			return err
		}
		prompt = answer
	}
}

// runOneShot opens a stream with no conversation behind it.
func runOneShot(cmd *cobra.Command, c *commandContext, open func(ctx context.Context) (*client.Stream, error)) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	stream, err := open(ctx)
	if err != nil {
		return err
	}
	res, err := decodeStream(ctx, stream, cmd.OutOrStdout(), cmd.ErrOrStderr(), c.jsonOutput, nil)
	if c.jsonOutput {
		printJSON(cmd.OutOrStdout(), res)
	}
	return err
}

// interactive reports whether questions may be asked on stdin.
func (c *commandContext) interactive(cmd *cobra.Command) bool {
	if c.noInput {
		return false
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return true
}
