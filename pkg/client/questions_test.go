// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoQuestions = `I have a couple of questions first.

[Question] Which palette?
[Option] Warm - oranges and reds
[Option] Cool
[Question] Serif headings?
[Option] Yes - classic
[Option] No - modern`

func TestParseQuestionGroups(t *testing.T) {
	groups := ParseQuestionGroups(twoQuestions)
	require.Len(t, groups, 2)

	assert.Equal(t, "Which palette?", groups[0].Question)
	assert.Equal(t, []QuestionOption{
		{Label: "Warm", Description: "oranges and reds"},
		{Label: "Cool"},
	}, groups[0].Options)

	assert.Equal(t, "Serif headings?", groups[1].Question)
	assert.Len(t, groups[1].Options, 2)
	assert.True(t, NeedsWizard(groups))
}

func TestParseQuestionGroups_Edges(t *testing.T) {
	assert.Empty(t, ParseQuestionGroups("no questions here"))
	assert.Empty(t, ParseQuestionGroups("[Option] orphan - before any question"))

	// Prose between a question and a later option ends the group
	groups := ParseQuestionGroups("[Question] A?\nsome prose\n[Option] stray")
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Options)

	// Option labels may contain hyphens without spaces
	groups = ParseQuestionGroups("[Question] Width?\n[Option] full-bleed - edge to edge")
	assert.Equal(t, QuestionOption{Label: "full-bleed", Description: "edge to edge"}, groups[0].Options[0])

	assert.False(t, NeedsWizard(ParseQuestionGroups("[Question] Only one?")))
}

func TestJoinAnswers(t *testing.T) {
	groups := []QuestionGroup{{Question: "q1"}, {Question: "q2"}}
	assert.Equal(t, "q1: A\nq2: B", JoinAnswers(groups, []string{"A", "B"}))
	assert.Equal(t, "q1: A\nq2: ", JoinAnswers(groups, []string{"A"}))
}

func TestWizard_RoundTrip(t *testing.T) {
	w := NewWizard(ParseQuestionGroups(twoQuestions))
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, "Which palette?", w.Current().Question)

	// Cannot advance without an answer
	assert.False(t, w.Next())
	assert.False(t, w.Back())
	assert.False(t, w.CanSubmit())

	w.Answer("Warm")
	require.True(t, w.Next())
	assert.Equal(t, 1, w.Index())
	assert.Equal(t, "Serif headings?", w.Current().Question)
	assert.False(t, w.Next(), "last question")

	_, err := w.Submit()
	assert.ErrorIs(t, err, ErrUnanswered)

	w.Answer("No")
	require.True(t, w.Back())
	assert.Equal(t, "Warm", w.CurrentAnswer())
	w.Answer("Cool")
	require.True(t, w.Next())
	assert.Equal(t, "No", w.CurrentAnswer())

	require.True(t, w.CanSubmit())
	answer, err := w.Submit()
	require.NoError(t, err)
	assert.Equal(t, "Which palette?: Cool\nSerif headings?: No", answer)
}

func TestWizard_Empty(t *testing.T) {
	w := NewWizard(nil)
	assert.Equal(t, QuestionGroup{}, w.Current())
	w.Answer("ignored")
	assert.False(t, w.CanSubmit())
	assert.False(t, w.Next())
}
