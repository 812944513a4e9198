// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/internal/conversation"
	"github.com/wingedpig/slidesmith/pkg/client"
)

const defaultAPI = "http://localhost:3001"

type commandContext struct {
	apiURL     string
	stateDir   string
	jsonOutput bool
	noInput    bool

	storeOnce sync.Once
	store     *conversation.Store
}

func (c *commandContext) client() *client.Client {
	return client.New(c.apiURL)
}

func (c *commandContext) conversations() *conversation.Store {
	c.storeOnce.Do(func() {
		c.store = conversation.NewStore(filepath.Join(c.stateDir, "conversations"))
	})
	return c.store
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "slidesmith-ctl",
		Short:         "Control a running slidesmith server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.apiURL, "api", envOr("SLIDESMITH_API", defaultAPI), "Base URL of the slidesmith API (env SLIDESMITH_API)")
	flags.StringVar(&ctx.stateDir, "state-dir", envOr("SLIDESMITH_STATE", defaultStateDir()), "Directory for local conversation history (env SLIDESMITH_STATE)")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVar(&ctx.noInput, "no-input", false, "Never prompt; print questions instead of asking them")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newDesignSystemCommand(ctx))
	rootCmd.AddCommand(newApplyAllCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newResetCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimSuffix(v, "/")
	}
	return fallback
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "slidesmith")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "slidesmith")
	}
	return filepath.Join(os.TempDir(), "slidesmith")
}

func printJSON(w io.Writer, v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(out))
}
