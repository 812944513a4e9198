// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/wingedpig/slidesmith/pkg/client"
)

var errWizardAborted = errors.New("questions left unanswered")

// askQuestions walks the user through groups one question at a time. An answer is
// an option number or free text; "b" goes back and "q" aborts.
func askQuestions(in *bufio.Reader, out io.Writer, groups []client.QuestionGroup) (string, error) {
	w := client.NewWizard(groups)
	for {
		q := w.Current()
		fmt.Fprintf(out, "\n%s %s\n", color.CyanString("[%d/%d]", w.Index()+1, w.Len()), q.Question)
		for i, o := range q.Options {
			line := fmt.Sprintf("  %d) %s", i+1, o.Label)
			if o.Description != "" {
				line += color.New(color.Faint).Sprintf(" - %s", o.Description)
			}
			fmt.Fprintln(out, line)
		}
		if prev := w.CurrentAnswer(); prev != "" {
			fmt.Fprintf(out, "  (current: %s)\n", prev)
		}
		fmt.Fprint(out, "> ")

		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", errWizardAborted
		}
		input := strings.TrimSpace(line)

		switch strings.ToLower(input) {
		case "q":
			return "", errWizardAborted
		case "b":
			w.Back()
			continue
		case "":
			if w.CurrentAnswer() == "" {
				continue
			}
		default:
			w.Answer(optionAnswer(q, input))
		}

		if !w.Next() {
			if w.Index() == w.Len()-1 && w.CanSubmit() {
				return w.Submit()
			}
		}
	}
}

// optionAnswer maps an option number to its label; anything else is free text.
func optionAnswer(q client.QuestionGroup, input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1].Label
	}
	return input
}
