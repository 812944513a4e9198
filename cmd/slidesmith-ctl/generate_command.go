// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/pkg/client"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Create a new slide",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.GenerateRequest{Prompt: strings.Join(args, " ")}
			if image != "" {
				data, err := readImage(image)
				if err != nil {
					return err
				}
				req.Image = data
			}
			return runOneShot(cmd, ctx, func(c context.Context) (*client.Stream, error) {
				return ctx.client().Generate(c, req)
			})
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "Reference image file")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "edit <file> <prompt>",
		Short: "Edit a slide, continuing its conversation",
		Long: `Edit a slide file. Follow-up edits of the same file resume the generator
session, so "make it bigger" refers to the previous change. Use --new to start over.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := filepath.ToSlash(filepath.Clean(args[0]))
			if fresh {
				if err := ctx.conversations().Clear(file); err != nil {
					return err
				}
			}
			return runConversation(cmd, ctx, file, strings.Join(args[1:], " "),
				func(c context.Context, prompt, sessionID string) (*client.Stream, error) {
					return ctx.client().Edit(c, client.EditRequest{
						Prompt:    prompt,
						FilePath:  file,
						SessionID: sessionID,
					})
				})
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "Forget the previous conversation about this file")
	return cmd
}

func newDesignSystemCommand(ctx *commandContext) *cobra.Command {
	dsCmd := &cobra.Command{
		Use:     "design-system",
		Aliases: []string{"ds"},
		Short:   "Edit, create, assess or apply the design system",
	}
	dsCmd.AddCommand(newDesignSystemEditCommand(ctx))
	dsCmd.AddCommand(newDesignSystemApplyCommand(ctx))
	dsCmd.AddCommand(newDesignSystemCreateCommand(ctx))
	dsCmd.AddCommand(newDesignSystemAssessCommand(ctx))
	return dsCmd
}

func newDesignSystemEditCommand(ctx *commandContext) *cobra.Command {
	var (
		fresh  bool
		images []string
	)

	cmd := &cobra.Command{
		Use:   "edit <prompt>",
		Short: "Edit the design system, continuing its conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fresh {
				if err := ctx.conversations().Clear(events.ItemDesignSystem); err != nil {
					return err
				}
			}
			encoded, err := readImages(images)
			if err != nil {
				return err
			}
			first := true
			return runConversation(cmd, ctx, events.ItemDesignSystem, strings.Join(args, " "),
				func(c context.Context, prompt, sessionID string) (*client.Stream, error) {
					req := client.EditDesignSystemRequest{Prompt: prompt, SessionID: sessionID}
					if first {
						req.Images = encoded
						first = false
					}
					return ctx.client().EditDesignSystem(c, req)
				})
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "Forget the previous design-system conversation")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Reference image file (repeatable)")
	return cmd
}

func newDesignSystemApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <slide>",
		Short: "Restyle one slide to match the design system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd, ctx, func(c context.Context) (*client.Stream, error) {
				return ctx.client().ApplyDesignSystem(c, args[0])
			})
		},
	}
}

func newDesignSystemCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		urls       []string
		images     []string
		imagePaths []string
		planOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Design a new design system",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := readImages(images)
			if err != nil {
				return err
			}
			req := client.CreateDesignSystemRequest{
				Description: strings.Join(args, " "),
				URLs:        urls,
				Images:      encoded,
				ImagePaths:  imagePaths,
				PlanOnly:    planOnly,
			}
			return runOneShot(cmd, ctx, func(c context.Context) (*client.Stream, error) {
				return ctx.client().CreateDesignSystem(c, req)
			})
		},
	}
	cmd.Flags().StringArrayVar(&urls, "url", nil, "Reference site (repeatable)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Reference image file to upload (repeatable)")
	cmd.Flags().StringArrayVar(&imagePaths, "image-path", nil, "Reference image already in the project (repeatable)")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "Describe the plan without writing files")
	return cmd
}

func newDesignSystemAssessCommand(ctx *commandContext) *cobra.Command {
	var imagePaths []string

	cmd := &cobra.Command{
		Use:   "assess <description>",
		Short: "Start a background assessment of the design system",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.client().AssessDesignSystem(cmd.Context(), client.AssessDesignSystemRequest{
				Description: strings.Join(args, " "),
				ImagePaths:  imagePaths,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assessment started; watch for %s with `slidesmith-ctl events --type %s`\n",
				client.EventDesignSystemAssessed, client.EventDesignSystemAssessed)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&imagePaths, "image-path", nil, "Reference image in the project (repeatable)")
	return cmd
}

// readImage loads an image file as a data URL.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s: not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func readImages(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		data, err := readImage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
