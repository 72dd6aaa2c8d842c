package question

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
)

const (
	MaxOptions      = 20
	MaxOptionLength = 80
	MaxSelects      = MaxOptions
	// options added per modal
	optionsPerRound = interact.MaxModalFields
)

var ErrInvalidSelection = errors.New("invalid selection")

type Option struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type MultipleChoice struct {
	Base
	MinSelects int
	MaxSelects int
	Options    []Option
}

type choiceSettings struct {
	MinSelects int      `json:"min_selects"`
	MaxSelects int      `json:"max_selects"`
	Options    []Option `json:"options"`
}

func NewMultipleChoice(title string) *MultipleChoice {
	return &MultipleChoice{
		Base:       Base{Title: title, Required: true},
		MinSelects: 1,
		MaxSelects: 1,
	}
}

func choiceFromSettings(base Base, data []byte) (*MultipleChoice, error) {
	s := choiceSettings{MinSelects: 1, MaxSelects: 1}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	}
	if len(s.Options) == 0 {
		s.Options = nil
	}
	return &MultipleChoice{Base: base, MinSelects: s.MinSelects, MaxSelects: s.MaxSelects, Options: s.Options}, nil
}

func (*MultipleChoice) Type() Type { return TypeMultipleChoice }

func (q *MultipleChoice) Settings() ([]byte, error) {
	opts := q.Options
	if opts == nil {
		opts = []Option{}
	}
	return json.Marshal(choiceSettings{MinSelects: q.MinSelects, MaxSelects: q.MaxSelects, Options: opts})
}

func (q *MultipleChoice) Validate() error {
	errs := q.validateBase(nil)
	if q.MinSelects < 1 || q.MinSelects > MaxSelects {
		errs = multierror.Append(errs, fmt.Errorf("minimum selections must be between 1 and %d", MaxSelects))
	}
	if q.MaxSelects < 1 || q.MaxSelects > MaxSelects {
		errs = multierror.Append(errs, fmt.Errorf("maximum selections must be between 1 and %d", MaxSelects))
	}
	if q.MinSelects > q.MaxSelects {
		errs = multierror.Append(errs, errors.New("minimum selections can not be greater than maximum selections"))
	}
	switch {
	case len(q.Options) == 0:
		errs = multierror.Append(errs, fmt.Errorf("%s: needs at least one option", q.Title))
	case len(q.Options) > MaxOptions:
		errs = multierror.Append(errs, fmt.Errorf("%s: can have at most %d options", q.Title, MaxOptions))
	case q.MaxSelects > len(q.Options):
		errs = multierror.Append(errs, fmt.Errorf("%s: maximum selections can not exceed the %d options", q.Title, len(q.Options)))
	}
	seen := make(map[int]bool, len(q.Options))
	for _, o := range q.Options {
		if seen[o.ID] {
			errs = multierror.Append(errs, fmt.Errorf("option id %d is used twice", o.ID))
		}
		seen[o.ID] = true
		if strings.TrimSpace(o.Text) == "" || utf8.RuneCountInString(o.Text) > MaxOptionLength {
			errs = multierror.Append(errs, fmt.Errorf("option %q must be 1 to %d characters", o.Text, MaxOptionLength))
		}
	}
	return errs.ErrorOrNil()
}

func (q *MultipleChoice) Summary() Summary {
	var sb strings.Builder
	if q.Description != "" {
		sb.WriteString(q.Description)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "Multiple Choice, %s, select %d to %d", requiredLabel(q.Required), q.MinSelects, q.MaxSelects)
	for _, o := range q.Options {
		sb.WriteString("\n- ")
		sb.WriteString(o.Text)
	}
	return Summary{Title: q.Title, Body: sb.String()}
}

func (q *MultipleChoice) Clone() Question {
	c := *q
	c.Options = append([]Option(nil), q.Options...)
	return &c
}

// AddOption appends an option with a fresh id.
func (q *MultipleChoice) AddOption(text string) (Option, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxOptionLength {
		return Option{}, fmt.Errorf("option %q must be 1 to %d characters", text, MaxOptionLength)
	}
	if len(q.Options) >= MaxOptions {
		return Option{}, fmt.Errorf("a question can have at most %d options", MaxOptions)
	}
	id := 0
	for _, o := range q.Options {
		if o.ID >= id {
			id = o.ID + 1
		}
	}
	o := Option{ID: id, Text: text}
	q.Options = append(q.Options, o)
	return o, nil
}

func (q *MultipleChoice) RemoveOption(id int) bool {
	for i, o := range q.Options {
		if o.ID == id {
			q.Options = append(q.Options[:i], q.Options[i+1:]...)
			return true
		}
	}
	return false
}

func (q *MultipleChoice) option(id int) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (q *MultipleChoice) Pick(ctx context.Context, h interact.Handle) (Answer, interact.Handle, error) {
	choices := make([]interact.Choice, len(q.Options))
	for i, o := range q.Options {
		choices[i] = interact.Choice{Label: o.Text, Value: strconv.Itoa(o.ID)}
	}
	hi := q.MaxSelects
	if hi > len(choices) {
		hi = len(choices)
	}
	sel, next, err := h.Pick(ctx, interact.Picker{
		Title:     q.Title,
		Body:      q.Description,
		Choices:   choices,
		MinValues: q.MinSelects,
		MaxValues: hi,
		Skippable: !q.Required,
	})
	if err != nil {
		return nil, next, err
	}
	if sel.Skipped {
		if q.Required {
			return nil, next, fmt.Errorf("%s: %w", q.Title, ErrInvalidSelection)
		}
		return nil, next, nil
	}

	a, err := q.selection(sel.Values)
	if err != nil {
		return nil, next, err
	}
	return a, next, nil
}

func (q *MultipleChoice) selection(values []string) (Answer, error) {
	if len(values) < q.MinSelects || len(values) > q.MaxSelects {
		return nil, fmt.Errorf("%s: select %d to %d options: %w", q.Title, q.MinSelects, q.MaxSelects, ErrInvalidSelection)
	}
	selected := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", q.Title, ErrInvalidSelection)
		}
		if _, ok := q.option(id); !ok || seen[id] {
			return nil, fmt.Errorf("%s: %w", q.Title, ErrInvalidSelection)
		}
		seen[id] = true
		selected = append(selected, id)
	}
	return ChoiceAnswer{Selected: selected}, nil
}

// FormatAnswer lists the selected option texts. Options removed after the
// answer was given are shown as "(removed option)".
func (q *MultipleChoice) FormatAnswer(payload []byte) string {
	a, ok := decode[ChoiceAnswer](payload)
	if !ok || len(a.Selected) == 0 {
		return ""
	}
	texts := make([]string, len(a.Selected))
	for i, id := range a.Selected {
		if o, ok := q.option(id); ok {
			texts[i] = o.Text
		} else {
			texts[i] = "(removed option)"
		}
	}
	return strings.Join(texts, ", ")
}

const (
	optionsAdd    = "add_options"
	optionsRemove = "remove_options"
	optionsDone   = "done"
)

// Configure asks for the common settings and the selection bounds, then
// manages options until the question is valid.
func (q *MultipleChoice) Configure(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	fields := append(q.baseFields(),
		interact.Field{Label: "Minimum Selections", Value: strconv.Itoa(q.MinSelects), MaxLength: 2},
		interact.Field{Label: "Maximum Selections", Value: strconv.Itoa(q.MaxSelects), MaxLength: 2},
	)
	h, err := interact.Form(ctx, h, interact.Modal{Title: "Multiple Choice Question", Fields: fields}, func(values []string) error {
		base, errs := q.Base.parseBase(values, nil)
		lo, errs := parseBound("Minimum Selections", values[3], 1, MaxSelects, 1, errs)
		hi, errs := parseBound("Maximum Selections", values[4], 1, MaxSelects, 1, errs)
		if errs == nil && lo > hi {
			errs = multierror.Append(errs, errors.New("Minimum Selections: can not be greater than Maximum Selections"))
		}
		if errs != nil {
			return errs
		}
		q.Base, q.MinSelects, q.MaxSelects = base, lo, hi
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q.configureOptions(ctx, h)
}

func (q *MultipleChoice) configureOptions(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	var problems []string
	for {
		notice := interact.Notice{Kind: interact.Info, Title: q.Title, Body: q.Summary().Body}
		if len(problems) > 0 {
			notice.Kind = interact.Fail
			notice.Items = problems
			problems = nil
		}
		buttons := []interact.Button{
			{ID: optionsAdd, Label: "Add Options", Style: interact.StylePrimary},
			{ID: optionsRemove, Label: "Remove Options", Style: interact.StyleSecondary},
			{ID: optionsDone, Label: "Done", Style: interact.StyleSuccess},
		}

		choice, next, err := h.Ask(ctx, interact.Prompt{Notice: notice, Buttons: buttons})
		if err != nil {
			return nil, err
		}
		h = next

		switch choice {
		case optionsAdd:
			room := MaxOptions - len(q.Options)
			if room <= 0 {
				problems = []string{fmt.Sprintf("a question can have at most %d options", MaxOptions)}
				continue
			}
			h, err = q.addOptions(ctx, h, room)
			if err != nil {
				return nil, err
			}
		case optionsRemove:
			if len(q.Options) == 0 {
				problems = []string{"there are no options to remove"}
				continue
			}
			h, err = q.removeOptions(ctx, h)
			if err != nil {
				return nil, err
			}
		case optionsDone:
			if err := q.Validate(); err != nil {
				problems = interact.Messages(err)
				continue
			}
			return h, nil
		}
	}
}

func (q *MultipleChoice) addOptions(ctx context.Context, h interact.Handle, room int) (interact.Handle, error) {
	n := optionsPerRound
	if room < n {
		n = room
	}
	fields := make([]interact.Field, n)
	for i := range fields {
		fields[i] = interact.Field{Label: fmt.Sprintf("Option %d", len(q.Options)+i+1), MaxLength: MaxOptionLength}
	}
	return interact.Form(ctx, h, interact.Modal{Title: "Add Options", Fields: fields}, func(values []string) error {
		var errs *multierror.Error
		for _, v := range values {
			if n := utf8.RuneCountInString(strings.TrimSpace(v)); n > MaxOptionLength {
				errs = multierror.Append(errs, fmt.Errorf("option %q must be at most %d characters", v, MaxOptionLength))
			}
		}
		if errs != nil {
			return errs
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if _, err := q.AddOption(v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *MultipleChoice) removeOptions(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	choices := make([]interact.Choice, len(q.Options))
	for i, o := range q.Options {
		choices[i] = interact.Choice{Label: o.Text, Value: strconv.Itoa(o.ID)}
	}
	sel, next, err := h.Pick(ctx, interact.Picker{
		Title:     "Remove Options",
		Body:      "Select the options to remove",
		Choices:   choices,
		MinValues: 1,
		MaxValues: len(choices),
		Skippable: true,
	})
	if err != nil {
		return nil, err
	}
	for _, v := range sel.Values {
		if id, err := strconv.Atoi(v); err == nil {
			q.RemoveOption(id)
		}
	}
	return next, nil
}
