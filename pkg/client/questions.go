// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"strings"
)

const (
	questionPrefix  = "[Question] "
	optionPrefix    = "[Option] "
	optionSeparator = " - "
)

// ErrUnanswered is returned by Wizard.Submit while a question has no answer.
var ErrUnanswered = errors.New("every question needs an answer")

// QuestionOption is one choice offered for a question.
type QuestionOption struct {
	Label       string
	Description string
}

// QuestionGroup is a [Question] line and the [Option] lines that follow it.
type QuestionGroup struct {
	Question string
	Options  []QuestionOption
}

// ParseQuestionGroups extracts question groups from transcript text in source order.
// [Option] lines before any [Question] are ignored.
func ParseQuestionGroups(text string) []QuestionGroup {
	var groups []QuestionGroup
	current := -1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, questionPrefix):
			groups = append(groups, QuestionGroup{Question: strings.TrimSpace(strings.TrimPrefix(line, questionPrefix))})
			current = len(groups) - 1
		case strings.HasPrefix(line, optionPrefix) && current >= 0:
			body := strings.TrimPrefix(line, optionPrefix)
			label, desc, _ := strings.Cut(body, optionSeparator)
			groups[current].Options = append(groups[current].Options, QuestionOption{
				Label:       strings.TrimSpace(label),
				Description: strings.TrimSpace(desc),
			})
		case line == "":
			// options may follow a blank line
		default:
			current = -1
		}
	}
	return groups
}

// NeedsWizard reports whether groups should be answered one at a time.
func NeedsWizard(groups []QuestionGroup) bool {
	return len(groups) >= 2
}

// JoinAnswers formats answers as "<question>: <answer>" lines for the follow-up prompt.
func JoinAnswers(groups []QuestionGroup, answers []string) string {
	lines := make([]string, 0, len(groups))
	for i, g := range groups {
		var a string
		if i < len(answers) {
			a = answers[i]
		}
		lines = append(lines, g.Question+": "+a)
	}
	return strings.Join(lines, "\n")
}

// Wizard steps through question groups one at a time, collecting an answer for each.
type Wizard struct {
	groups  []QuestionGroup
	answers []string
	index   int
}

// NewWizard starts a wizard at the first group.
func NewWizard(groups []QuestionGroup) *Wizard {
	return &Wizard{groups: groups, answers: make([]string, len(groups))}
}

// Len returns the number of questions.
func (w *Wizard) Len() int { return len(w.groups) }

// Index returns the position of the current question.
func (w *Wizard) Index() int { return w.index }

// Current returns the question being answered.
func (w *Wizard) Current() QuestionGroup {
	if len(w.groups) == 0 {
		return QuestionGroup{}
	}
	return w.groups[w.index]
}

// CurrentAnswer returns the answer recorded for the current question.
func (w *Wizard) CurrentAnswer() string {
	if len(w.groups) == 0 {
		return ""
	}
	return w.answers[w.index]
}

// Answer records the answer for the current question, replacing any earlier one.
func (w *Wizard) Answer(answer string) {
	if len(w.groups) == 0 {
		return
	}
	w.answers[w.index] = strings.TrimSpace(answer)
}

// Next moves to the following question. It reports false on the last question or
// while the current one is unanswered.
func (w *Wizard) Next() bool {
	if w.index >= len(w.groups)-1 || w.CurrentAnswer() == "" {
		return false
	}
	w.index++
	return true
}

// Back moves to the previous question, keeping recorded answers.
func (w *Wizard) Back() bool {
	if w.index == 0 {
		return false
	}
	w.index--
	return true
}

// CanSubmit reports whether every question has an answer.
func (w *Wizard) CanSubmit() bool {
	if len(w.groups) == 0 {
		return false
	}
	for _, a := range w.answers {
		if a == "" {
			return false
		}
	}
	return true
}

// Submit returns the joined answers.
func (w *Wizard) Submit() (string, error) {
	if !w.CanSubmit() {
		return "", ErrUnanswered
	}
	return JoinAnswers(w.groups, w.answers), nil
}
