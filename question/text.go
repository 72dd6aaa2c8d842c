package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
)

const MaxTextLength = interact.MaxInputLength

type Text struct {
	Base
	MinLength int
	MaxLength int
}

type textSettings struct {
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`
}

func NewText(title string) *Text {
	return &Text{
		Base:      Base{Title: title, Required: true},
		MinLength: 0,
		MaxLength: MaxTextLength,
	}
}

func textFromSettings(base Base, data []byte) (*Text, error) {
	s := textSettings{MaxLength: MaxTextLength}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	}
	return &Text{Base: base, MinLength: s.MinLength, MaxLength: s.MaxLength}, nil
}

func (*Text) Type() Type { return TypeText }

func (q *Text) Settings() ([]byte, error) {
	return json.Marshal(textSettings{MinLength: q.MinLength, MaxLength: q.MaxLength})
}

func (q *Text) Validate() error {
	errs := q.validateBase(nil)
	if q.MinLength < 0 || q.MinLength > MaxTextLength {
		errs = multierror.Append(errs, fmt.Errorf("minimum length must be between 0 and %d", MaxTextLength))
	}
	if q.MaxLength < 1 || q.MaxLength > MaxTextLength {
		errs = multierror.Append(errs, fmt.Errorf("maximum length must be between 1 and %d", MaxTextLength))
	}
	if q.MinLength > q.MaxLength {
		errs = multierror.Append(errs, errors.New("minimum length can not be greater than maximum length"))
	}
	return errs.ErrorOrNil()
}

func (q *Text) Summary() Summary {
	body := fmt.Sprintf("Text, %s, %d to %d characters", requiredLabel(q.Required), q.MinLength, q.MaxLength)
	if q.Description != "" {
		body = q.Description + "\n" + body
	}
	return Summary{Title: q.Title, Body: body}
}

func (q *Text) Clone() Question {
	c := *q
	return &c
}

func (q *Text) Field(last string) interact.Field {
	return interact.Field{
		Label:       interact.Truncate(q.Title, interact.MaxLabel),
		Placeholder: interact.Truncate(q.Description, interact.MaxPlaceholder),
		Value:       last,
		Required:    q.Required,
		Paragraph:   q.MaxLength > 100,
		MinLength:   q.MinLength,
		MaxLength:   q.MaxLength,
	}
}

func (q *Text) Parse(raw string) (Answer, error) {
	if strings.TrimSpace(raw) == "" {
		if q.Required {
			return nil, fmt.Errorf("%s: an answer is required", q.Title)
		}
		return nil, nil
	}
	n := utf8.RuneCountInString(raw)
	if n < q.MinLength {
		return nil, fmt.Errorf("%s: must be at least %d characters long", q.Title, q.MinLength)
	}
	if n > q.MaxLength {
		return nil, fmt.Errorf("%s: must be at most %d characters long", q.Title, q.MaxLength)
	}
	return TextAnswer{Text: raw}, nil
}

func (q *Text) FormatAnswer(payload []byte) string {
	a, ok := decode[TextAnswer](payload)
	if !ok {
		return ""
	}
	return a.Text
}

func (q *Text) Configure(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	fields := append(q.baseFields(),
		interact.Field{Label: "Minimum Length", Value: fmt.Sprint(q.MinLength), MaxLength: 4},
		interact.Field{Label: "Maximum Length", Value: fmt.Sprint(q.MaxLength), MaxLength: 4},
	)
	return interact.Form(ctx, h, interact.Modal{Title: "Text Question", Fields: fields}, func(values []string) error {
		base, errs := q.Base.parseBase(values, nil)
		lo, errs := parseBound("Minimum Length", values[3], 0, MaxTextLength, 0, errs)
		hi, errs := parseBound("Maximum Length", values[4], 1, MaxTextLength, MaxTextLength, errs)
		if errs == nil && lo > hi {
			errs = multierror.Append(errs, errors.New("Minimum Length: can not be greater than Maximum Length"))
		}
		if errs != nil {
			return errs
		}
		q.Base, q.MinLength, q.MaxLength = base, lo, hi
		return nil
	})
}
