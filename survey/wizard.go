package survey

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/question"
)

// wizard button ids
const (
	AddText     = "add_text"
	AddChoice   = "add_mc"
	AddDateTime = "add_dt"
	EditID      = "edit"
	MoveID      = "move"
	RemoveID    = "remove"
	SettingsID  = "settings"
	EditableID  = "editable"
	SaveID      = "save"
	CancelID    = "cancel"
)

const newQuestionTitle = "New Question"

// Wizard edits a template through a prompt loop until it is saved or
// cancelled. The template is edited in place.
type Wizard struct {
	t     *model.Template
	flash []string
}

func NewWizard(t *model.Template) *Wizard {
	return &Wizard{t: t}
}

// Run reports whether the template should be saved, and the handle to
// answer next.
func (w *Wizard) Run(ctx context.Context, h interact.Handle) (bool, interact.Handle, error) {
	for {
		id, next, err := h.Ask(ctx, w.prompt())
		if err != nil {
			return false, next, err
		}
		h = next

		switch id {
		case AddText:
			h, err = w.add(ctx, h, question.TypeText)
		case AddChoice:
			h, err = w.add(ctx, h, question.TypeMultipleChoice)
		case AddDateTime:
			h, err = w.add(ctx, h, question.TypeDateTime)
		case EditID:
			h, err = w.edit(ctx, h)
		case MoveID:
			h, err = w.move(ctx, h)
		case RemoveID:
			h, err = w.remove(ctx, h)
		case SettingsID:
			h, err = w.settings(ctx, h)
		case EditableID:
			w.t.Editable = !w.t.Editable
		case SaveID:
			if err := w.t.Validate(); err != nil {
				w.flash = interact.Messages(err)
				continue
			}
			return true, h, nil
		case CancelID:
			return false, h, nil
		}
		if err != nil {
			return false, h, err
		}
	}
}

func (w *Wizard) prompt() interact.Prompt {
	n := interact.Notice{Kind: interact.Info, Title: "Survey Creation Wizard", Body: Overview(w.t)}
	if len(w.flash) > 0 {
		n.Kind = interact.Fail
		n.Items = w.flash
		w.flash = nil
	}

	var buttons []interact.Button
	if len(w.t.Questions) < model.MaxQuestions {
		buttons = append(buttons,
			interact.Button{ID: AddText, Label: "Add Text Question", Style: interact.StylePrimary},
			interact.Button{ID: AddChoice, Label: "Add Multiple Choice Question", Style: interact.StylePrimary},
			interact.Button{ID: AddDateTime, Label: "Add Date/Time Question", Style: interact.StylePrimary},
		)
	}
	if len(w.t.Questions) > 0 {
		buttons = append(buttons,
			interact.Button{ID: EditID, Label: "Edit Question", Style: interact.StyleSecondary},
			interact.Button{ID: RemoveID, Label: "Delete Question", Style: interact.StyleDanger},
		)
	}
	if len(w.t.Questions) > 1 {
		buttons = append(buttons, interact.Button{ID: MoveID, Label: "Move Question", Style: interact.StyleSecondary})
	}
	editable := "Editable Responses: Off"
	if w.t.Editable {
		editable = "Editable Responses: On"
	}
	buttons = append(buttons,
		interact.Button{ID: SettingsID, Label: "Set Other Settings", Style: interact.StyleSecondary},
		interact.Button{ID: EditableID, Label: editable, Style: interact.StyleSecondary},
		interact.Button{ID: SaveID, Label: "Save And Exit", Style: interact.StyleSuccess},
		interact.Button{ID: CancelID, Label: "Cancel", Style: interact.StyleDanger},
	)
	return interact.Prompt{Notice: n, Buttons: buttons}
}

func (w *Wizard) add(ctx context.Context, h interact.Handle, typ question.Type) (interact.Handle, error) {
	if len(w.t.Questions) >= model.MaxQuestions {
		w.flash = []string{fmt.Sprintf("You Cannot Have More Than %d Questions.", model.MaxQuestions)}
		return h, nil
	}
	q, err := question.New(typ, newQuestionTitle)
	if err != nil {
		return h, err
	}
	h, err = q.Configure(ctx, h)
	if err != nil {
		return h, err
	}
	w.t.Questions = append(w.t.Questions, q)
	w.t.Renumber()
	return h, nil
}

// pickQuestion asks for one question and returns its index, or -1 when the
// user skipped.
func (w *Wizard) pickQuestion(ctx context.Context, h interact.Handle, title string) (int, interact.Handle, error) {
	choices := make([]interact.Choice, len(w.t.Questions))
	for i, q := range w.t.Questions {
		choices[i] = interact.Choice{
			Label: interact.Truncate(fmt.Sprintf("%d. %s", i+1, q.Common().Title), interact.MaxChoiceLabel),
			Value: strconv.Itoa(i),
		}
	}
	sel, next, err := h.Pick(ctx, interact.Picker{
		Title:     title,
		Choices:   choices,
		MinValues: 1,
		MaxValues: 1,
		Skippable: true,
	})
	if err != nil {
		return -1, next, err
	}
	if sel.Skipped || len(sel.Values) != 1 {
		return -1, next, nil
	}
	i, err := strconv.Atoi(sel.Values[0])
	if err != nil || i < 0 || i >= len(w.t.Questions) {
		return -1, next, nil
	}
	return i, next, nil
}

func (w *Wizard) edit(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	i, h, err := w.pickQuestion(ctx, h, "Which Question Do You Want To Edit?")
	if err != nil || i < 0 {
		return h, err
	}
	return w.t.Questions[i].Configure(ctx, h)
}

func (w *Wizard) remove(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	i, h, err := w.pickQuestion(ctx, h, "Which Question Do You Want To Delete?")
	if err != nil || i < 0 {
		return h, err
	}
	w.t.Remove(i)
	return h, nil
}

func (w *Wizard) move(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	from, h, err := w.pickQuestion(ctx, h, "Which Question Do You Want To Move?")
	if err != nil || from < 0 {
		return h, err
	}

	choices := make([]interact.Choice, len(w.t.Questions))
	for i := range w.t.Questions {
		choices[i] = interact.Choice{Label: fmt.Sprintf("Position %d", i+1), Value: strconv.Itoa(i)}
	}
	sel, next, err := h.Pick(ctx, interact.Picker{
		Title:     "Where To?",
		Choices:   choices,
		MinValues: 1,
		MaxValues: 1,
		Skippable: true,
	})
	if err != nil {
		return next, err
	}
	if !sel.Skipped && len(sel.Values) == 1 {
		if to, err := strconv.Atoi(sel.Values[0]); err == nil {
			w.t.Move(from, to)
		}
	}
	return next, nil
}

func (w *Wizard) settings(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	t := w.t
	maxEntries, duration := "", ""
	if t.MaxEntries != nil {
		maxEntries = strconv.Itoa(*t.MaxEntries)
	}
	if t.Duration != nil {
		duration = question.FormatDuration(*t.Duration)
	}
	fields := []interact.Field{
		{Label: "Description", Value: t.Description, Paragraph: true, MaxLength: 4000},
		{Label: "Number Of Entries Per Person", Value: strconv.Itoa(t.EntriesPerUser), Required: true, MaxLength: 2},
		{Label: "Total Number Of Entries", Placeholder: "Leave empty for no limit", Value: maxEntries, MaxLength: 5},
		{Label: "Time Limit", Placeholder: "2 hours and 15 minutes", Value: duration, MaxLength: 100},
		{Label: "Anonymity", Placeholder: "private, public or protected", Value: t.Anonymity.String(), Required: true, MaxLength: 9},
	}
	return interact.Form(ctx, h, interact.Modal{Title: "Set Other Settings", Fields: fields}, func(values []string) error {
		return applySettings(t, values)
	})
}

// applySettings reads the settings modal into t. Nothing changes unless every
// value is valid.
func applySettings(t *model.Template, values []string) error {
	c := *t
	var errs *multierror.Error

	c.Description = strings.TrimSpace(values[0])

	n, err := strconv.Atoi(strings.TrimSpace(values[1]))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("Number Of Entries Per Person: %q is not a whole number", values[1]))
	} else {
		c.EntriesPerUser = n
	}

	c.MaxEntries = nil
	if v := strings.TrimSpace(values[2]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("Total Number Of Entries: %q is not a whole number", v))
		} else {
			c.MaxEntries = &n
		}
	}

	c.Duration = nil
	if v := strings.TrimSpace(values[3]); v != "" {
		d, err := question.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = multierror.Append(errs, errors.New("Time Limit: write it like `2 hours and 15 minutes`"))
		} else {
			c.Duration = &d
		}
	}

	a, err := model.ParseAnonymity(values[4])
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("Anonymity: %w", err))
	} else {
		c.Anonymity = a
	}

	if errs != nil {
		return errs
	}
	if err := c.ValidateSettings(); err != nil {
		return err
	}
	*t = c
	return nil
}

// Overview describes a template: its settings and numbered questions.
func Overview(t *model.Template) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n", t.Title)
	if t.Description != "" {
		sb.WriteString(t.Description)
		sb.WriteByte('\n')
	}

	maxEntries, duration := "no limit", "not set"
	if t.MaxEntries != nil {
		maxEntries = strconv.Itoa(*t.MaxEntries)
	}
	if t.Duration != nil {
		duration = question.FormatDuration(*t.Duration)
	}
	fmt.Fprintf(&sb, "Anonymity: %s, entries per person: %d, total entries: %s, time limit: %s\n",
		t.Anonymity, t.EntriesPerUser, maxEntries, duration)

	if len(t.Questions) == 0 {
		sb.WriteString("\nNo Questions Have Been Created Yet")
		return sb.String()
	}
	for i, q := range t.Questions {
		fmt.Fprintf(&sb, "\n%d. %s (%s)", i+1, q.Common().Title, q.Type())
	}
	return sb.String()
}
