// Package engine asks the questions of a survey, grouping consecutive text
// style questions into modals and threading one interaction through every
// step.
package engine

import (
	"fmt"
	"strings"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/question"
)

type StepKind int

const (
	ModalStep StepKind = iota
	PickerStep
)

// Step is one interaction of a survey run: a modal with up to five inputs, or
// a single picker question.
type Step struct {
	Kind   StepKind
	Inputs []question.Input
	Picker question.Picker
}

func (s Step) String() string {
	if s.Kind == PickerStep {
		return "picker"
	}
	return fmt.Sprintf("modal(%d)", len(s.Inputs))
}

// Plan groups questions, already in position order, into steps. Runs of
// inputs are cut at pickers and at MaxModalFields; order is never changed.
func Plan(questions []question.Question) ([]Step, error) {
	var (
		steps   []Step
		pending []question.Input
	)
	flush := func() {
		if len(pending) > 0 {
			steps = append(steps, Step{Kind: ModalStep, Inputs: pending})
			pending = nil
		}
	}

	for _, q := range questions {
		switch q := q.(type) {
		case question.Input:
			pending = append(pending, q)
			if len(pending) == interact.MaxModalFields {
				flush()
			}
		case question.Picker:
			flush()
			steps = append(steps, Step{Kind: PickerStep, Picker: q})
		default:
			return nil, fmt.Errorf("question %q can not be presented", q.Common().Title)
		}
	}
	flush()
	return steps, nil
}

// Describe renders steps as "modal(5) picker modal(1)".
func Describe(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
