package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-wolf/interact"
	it "github.com/mbolis/survey-wolf/interact/interacttest"
	"github.com/mbolis/survey-wolf/question"
)

func text(title string, minLength int) *question.Text {
	q := question.NewText(title)
	q.MinLength = minLength
	return q
}

func choice(title string, options ...string) *question.MultipleChoice {
	q := question.NewMultipleChoice(title)
	for _, o := range options {
		_, _ = q.AddOption(o)
	}
	return q
}

func TestPlanProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rnd.Intn(26)
		questions := make([]question.Question, n)
		for i := range questions {
			title := fmt.Sprint(i)
			switch rnd.Intn(3) {
			case 0:
				questions[i] = text(title, 0)
			case 1:
				questions[i] = choice(title, "a")
			default:
				questions[i] = question.NewDateTime(title, question.KindDate)
			}
		}

		steps, err := Plan(questions)
		require.NoError(t, err)

		order := make([]question.Question, 0, n)
		for i, s := range steps {
			switch s.Kind {
			case ModalStep:
				assert.NotEmpty(t, s.Inputs)
				assert.LessOrEqual(t, len(s.Inputs), interact.MaxModalFields)
				// a short modal is only followed by a picker or the end
				if len(s.Inputs) < interact.MaxModalFields && i+1 < len(steps) {
					assert.Equal(t, PickerStep, steps[i+1].Kind)
				}
				for _, q := range s.Inputs {
					order = append(order, q)
				}
			case PickerStep:
				order = append(order, s.Picker)
			}
		}
		assert.Equal(t, questions, order)
	}
}

func TestPlanShapes(t *testing.T) {
	six := make([]question.Question, 6)
	for i := range six {
		six[i] = text(fmt.Sprint(i), 0)
	}
	steps, err := Plan(six)
	require.NoError(t, err)
	assert.Equal(t, "modal(5) modal(1)", Describe(steps))

	steps, err = Plan([]question.Question{text("a", 0), choice("b", "x"), text("c", 0)})
	require.NoError(t, err)
	assert.Equal(t, "modal(1) picker modal(1)", Describe(steps))

	steps, err = Plan(nil)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func payloads(t *testing.T, answers Answers) map[int]string {
	t.Helper()
	out := make(map[int]string, len(answers))
	for i, a := range answers {
		p, err := a.Payload()
		require.NoError(t, err)
		out[i] = string(p)
	}
	return out
}

func TestRunRetriesOnlyFailedField(t *testing.T) {
	questions := make([]question.Question, 6)
	for i := range questions {
		questions[i] = text(fmt.Sprintf("Q%d", i), 10)
	}

	first := []string{"answer zero", "answer one", "short", "answer three", "answer four"}
	s := it.New(
		it.Submit(first...),
		it.Click(interact.RetryID),
		it.Submit("answer two, fixed"),
		it.Click(interact.ContinueID),
		it.Submit("answer five"),
	)

	answers, h, err := Run(context.Background(), s.Start(), "Survey", questions)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, interact.ModalSubmit, h.Kind())
	assert.Equal(t, 0, s.Pending())

	assert.Equal(t, []string{"modal(5)", "prompt", "modal(1)", "prompt", "modal(1)"}, s.Steps())

	events := s.Events()
	assert.Equal(t, []string{"Q2: must be at least 10 characters long"}, events[1].Prompt.Notice.Items)
	retry := events[2].Modal
	require.Len(t, retry.Fields, 1)
	assert.Equal(t, "Q2", retry.Fields[0].Label)
	assert.Equal(t, "short", retry.Fields[0].Value)
	assert.Equal(t, ContinueLabel, events[3].Prompt.Buttons[0].Label)
	assert.Equal(t, interact.ModalSubmit, events[3].From)

	got := payloads(t, answers)
	require.Len(t, got, 6)
	for i, raw := range first {
		if i == 2 {
			continue
		}
		assert.Equal(t, `{"text":"`+raw+`"}`, got[i])
	}
	assert.Equal(t, `{"text":"answer two, fixed"}`, got[2])
	assert.Equal(t, `{"text":"answer five"}`, got[5])
}

func TestRunNeverMergesAcrossPickers(t *testing.T) {
	questions := []question.Question{text("a", 0), choice("b", "x", "y"), text("c", 0)}
	s := it.New(
		it.Submit("first"),
		it.Select("1"),
		it.Submit("last"),
	)

	answers, _, err := Run(context.Background(), s.Start(), "Survey", questions)
	require.NoError(t, err)
	assert.Equal(t, []string{"modal(1)", "picker", "modal(1)"}, s.Steps())

	got := payloads(t, answers)
	assert.Equal(t, map[int]string{
		0: `{"text":"first"}`,
		1: `{"selected":[1]}`,
		2: `{"text":"last"}`,
	}, got)

	// the picker was shown as a reply to the modal submission
	assert.Equal(t, interact.ModalSubmit, s.Events()[1].From)
}

func TestRunSkipsOptionalQuestions(t *testing.T) {
	optionalText := text("note", 0)
	optionalText.Required = false
	optionalChoice := choice("pick", "x")
	optionalChoice.Required = false

	questions := []question.Question{text("name", 0), optionalText, optionalChoice}
	s := it.New(
		it.Submit("Ann", ""),
		it.Skip(),
	)

	answers, _, err := Run(context.Background(), s.Start(), "Survey", questions)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: `{"text":"Ann"}`}, payloads(t, answers))
	assert.True(t, s.Events()[1].Picker.Skippable)
}

func TestRunRequiredEmptyIsRetried(t *testing.T) {
	s := it.New(
		it.Submit(""),
		it.Click(interact.RetryID),
		it.Submit("now"),
	)
	answers, _, err := Run(context.Background(), s.Start(), "Survey", []question.Question{text("name", 0)})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: `{"text":"now"}`}, payloads(t, answers))
}

func TestRunTimeoutDiscardsAnswers(t *testing.T) {
	questions := make([]question.Question, 7)
	for i := range questions {
		questions[i] = text(fmt.Sprint(i), 0)
	}
	s := it.New(
		it.Submit("a", "b", "c", "d", "e"),
		it.Timeout(),
	)

	answers, h, err := Run(context.Background(), s.Start(), "Survey", questions)
	assert.ErrorIs(t, err, interact.ErrTimeout)
	assert.Nil(t, answers)
	assert.Nil(t, h)
}

func TestRunTruncatesTitle(t *testing.T) {
	s := it.New(it.Submit("x"))
	_, _, err := Run(context.Background(), s.Start(), strings.Repeat("t", 60), []question.Question{text("q", 0)})
	require.NoError(t, err)
	assert.Equal(t, interact.MaxModalTitle, len([]rune(s.Modals()[0].Title)))
}
