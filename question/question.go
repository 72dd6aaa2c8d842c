// Package question holds the survey question types: their settings, how they
// are asked, how answers are validated and how stored answers are shown.
package question

import (
	"context"
	"fmt"

	"github.com/mbolis/survey-wolf/interact"
)

// Type is the persisted type tag of a question.
type Type int

const (
	TypeText           Type = 0
	TypeMultipleChoice Type = 1
	TypeDateTime       Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "Text"
	case TypeMultipleChoice:
		return "Multiple Choice"
	case TypeDateTime:
		return "Date/Time"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

const (
	MaxTitle       = interact.MaxLabel
	MaxDescription = interact.MaxPlaceholder
)

// Base holds the fields every question has.
type Base struct {
	ID          int64
	TemplateID  int64
	Position    int
	Title       string
	Description string
	Required    bool
}

func (b *Base) Common() *Base {
	return b
}

// Summary is a short view of a question for lists and result headers.
type Summary struct {
	Title string
	Body  string
}

type Question interface {
	Common() *Base
	Type() Type
	// Settings returns the type specific settings as JSON.
	Settings() ([]byte, error)
	// Validate checks the settings, reporting every problem at once.
	Validate() error
	Summary() Summary
	// FormatAnswer renders a stored answer payload, or "" when there is none.
	FormatAnswer(payload []byte) string
	// Configure lets staff edit the question through h.
	Configure(ctx context.Context, h interact.Handle) (interact.Handle, error)
	Clone() Question
}

// Input is a question answered through a modal text field.
type Input interface {
	Question
	// Field describes the modal field, pre-filled with last.
	Field(last string) interact.Field
	// Parse validates raw input. A nil Answer means the question was skipped.
	Parse(raw string) (Answer, error)
}

// Picker is a question answered through its own select menu.
type Picker interface {
	Question
	// Pick asks the question on h. A nil Answer means the question was skipped.
	Pick(ctx context.Context, h interact.Handle) (Answer, interact.Handle, error)
}

// New returns a question of type t with default settings.
func New(t Type, title string) (Question, error) {
	switch t {
	case TypeText:
		return NewText(title), nil
	case TypeMultipleChoice:
		return NewMultipleChoice(title), nil
	case TypeDateTime:
		return NewDateTime(title, KindDateTime), nil
	}
	return nil, fmt.Errorf("unknown question type %d", int(t))
}

// Row is a question as stored in the questions table.
type Row struct {
	ID          int64  `json:"id"`
	TemplateID  int64  `json:"template_id"`
	Position    int    `json:"position"`
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Data        []byte `json:"data"`
}

// FromRow rebuilds a question from its stored row, dispatching on the type tag.
func FromRow(r Row) (Question, error) {
	base := Base{
		ID:          r.ID,
		TemplateID:  r.TemplateID,
		Position:    r.Position,
		Title:       r.Title,
		Description: r.Description,
		Required:    r.Required,
	}

	var (
		q   Question
		err error
	)
	switch r.Type {
	case TypeText:
		q, err = textFromSettings(base, r.Data)
	case TypeMultipleChoice:
		q, err = choiceFromSettings(base, r.Data)
	case TypeDateTime:
		q, err = dateTimeFromSettings(base, r.Data)
	default:
		return nil, fmt.Errorf("question %d: unknown type %d", r.ID, int(r.Type))
	}
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", r.ID, err)
	}
	return q, nil
}

func ToRow(q Question) (Row, error) {
	data, err := q.Settings()
	if err != nil {
		return Row{}, err
	}
	b := q.Common()
	return Row{
		ID:          b.ID,
		TemplateID:  b.TemplateID,
		Position:    b.Position,
		Type:        q.Type(),
		Title:       b.Title,
		Description: b.Description,
		Required:    b.Required,
		Data:        data,
	}, nil
}
