package engine

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/question"
)

const ContinueLabel = "Continue With The Survey"

// Answers maps the index of a question in the run to its answer. Skipped
// questions have no entry.
type Answers map[int]question.Answer

// Run asks questions on h and returns the answers together with the handle
// the caller answers next. On error the returned handle is the latest one
// still usable, or nil.
func Run(ctx context.Context, h interact.Handle, title string, questions []question.Question) (Answers, interact.Handle, error) {
	steps, err := Plan(questions)
	if err != nil {
		return nil, h, err
	}

	index := make(map[question.Question]int, len(questions))
	for i, q := range questions {
		index[q] = i
	}

	r := &run{
		title:   interact.Truncate(title, interact.MaxModalTitle),
		index:   index,
		answers: make(Answers, len(questions)),
	}
	h = interact.Linear(h)
	for _, step := range steps {
		switch step.Kind {
		case ModalStep:
			h, err = r.modal(ctx, h, step.Inputs)
		case PickerStep:
			h, err = r.pick(ctx, h, step.Picker)
		}
		if err != nil {
			return nil, h, err
		}
	}
	return r.answers, h, nil
}

type run struct {
	title   string
	index   map[question.Question]int
	answers Answers
}

// modal asks inputs in one modal. Failed inputs are listed and asked again in
// a new modal holding only them; answers that passed are kept.
func (r *run) modal(ctx context.Context, h interact.Handle, inputs []question.Input) (interact.Handle, error) {
	last := make(map[question.Input]string, len(inputs))
	pending := inputs
	for {
		next, err := interact.Ready(ctx, h, ContinueLabel)
		if err != nil {
			return nil, err
		}

		fields := make([]interact.Field, len(pending))
		for i, q := range pending {
			fields[i] = q.Field(last[q])
		}
		values, next, err := next.Modal(ctx, interact.Modal{Title: r.title, Fields: fields})
		if err != nil {
			return nil, err
		}
		if len(values) != len(pending) {
			return next, fmt.Errorf("modal returned %d values for %d questions", len(values), len(pending))
		}

		var (
			errs   *multierror.Error
			failed []question.Input
		)
		for i, q := range pending {
			last[q] = values[i]
			a, err := q.Parse(values[i])
			if err != nil {
				errs = multierror.Append(errs, err)
				failed = append(failed, q)
				continue
			}
			if a == nil {
				delete(r.answers, r.index[q])
			} else {
				r.answers[r.index[q]] = a
			}
		}
		if len(failed) == 0 {
			return next, nil
		}

		log.Debugf("engine.modal: %d of %d answers invalid, asking again", len(failed), len(pending))
		h, err = interact.Retry(ctx, next, "Some Answers Are Invalid", errs)
		if err != nil {
			return nil, err
		}
		pending = failed
	}
}

func (r *run) pick(ctx context.Context, h interact.Handle, q question.Picker) (interact.Handle, error) {
	a, next, err := q.Pick(ctx, h)
	if err != nil {
		return next, err
	}
	if a != nil {
		r.answers[r.index[q]] = a
	}
	return next, nil
}
