// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wingedpig/slidesmith/internal/app"
	"github.com/wingedpig/slidesmith/internal/config"
)

var (
	version = "0.3"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("slidesmith %s\n", version)
		os.Exit(0)
	}

	var (
		application *app.App
		err         error
	)
	opts := app.Options{Host: host, Port: port}

	// Find config file if not specified; without one, run on defaults in the current directory
	if configPath == "" {
		if found, ferr := config.NewLoader().FindConfig(); ferr == nil {
			configPath = found
		}
	}
	if configPath != "" {
		log.Printf("Using config: %s", configPath)
		opts.ConfigPath = configPath
		application, err = app.New(opts)
	} else {
		log.Printf("No config file found, using defaults")
		application, err = app.NewWithConfig(config.Default(), opts)
	}
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "slidesmith init" command
func runInit(stdin io.Reader) error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: slidesmith init [options]

Create a slidesmith.hjson configuration file in the current directory.

Options:
  -h, -help    Show this help message

The command asks for the project name, server port, generator command and
the slide and design-system directories.`)
		return nil
	}

	configFile := "slidesmith.hjson"
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	reader := bufio.NewReader(stdin)

	fmt.Println("slidesmith configuration setup")
	fmt.Println("==============================")
	fmt.Println()
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	defaults := config.Default()
	opts := config.InitOptions{
		ProjectName:     prompt(reader, "Project name", filepath.Base(cwd)),
		Command:         prompt(reader, "Generator command", defaults.Generator.Command),
		SlidesDir:       prompt(reader, "Slides directory", defaults.Slides.Dir),
		DesignSystemDir: prompt(reader, "Design-system directory", defaults.DesignSystem.Dir),
	}
	portStr := prompt(reader, "Server port", strconv.Itoa(defaults.Server.Port))
	opts.Port, err = strconv.Atoi(portStr)
	if err != nil {
		opts.Port = defaults.Server.Port
	}

	if err := os.WriteFile(configFile, []byte(config.GenerateConfig(opts)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit slidesmith.hjson as needed")
	fmt.Println("  2. Run: slidesmith")
	fmt.Println("  3. Point the editor at http://localhost:" + strconv.Itoa(opts.Port))
	fmt.Println()
	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
