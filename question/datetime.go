package question

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
)

// DateKind is the subtype of a DateTime question. It decides the format of
// answers and bounds.
type DateKind int

const (
	KindDateTime DateKind = 0
	KindDate     DateKind = 1
	KindTime     DateKind = 2
	KindDuration DateKind = 3
)

var dateKinds = []DateKind{KindDateTime, KindDate, KindTime, KindDuration}

func (k DateKind) String() string {
	switch k {
	case KindDateTime:
		return "Date And Time"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindDuration:
		return "Duration"
	}
	return fmt.Sprintf("DateKind(%d)", int(k))
}

func (k DateKind) valid() bool {
	return k >= KindDateTime && k <= KindDuration
}

func (k DateKind) hint() string {
	switch k {
	case KindDateTime:
		return "YYYY-MM-DD HH:MM (UTC)"
	case KindDate:
		return "YYYY-MM-DD"
	case KindTime:
		return "HH:MM (UTC)"
	case KindDuration:
		return "e.g. 2 hours and 15 minutes"
	}
	return ""
}

var (
	dateTimeLayouts = []string{
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"02/01/2006 15:04",
		"2 Jan 2006 15:04",
		"2 January 2006 15:04",
		"Jan 2 2006 15:04",
		"January 2 2006 15:04",
	}
	dateLayouts = []string{
		"2006-01-02",
		"02/01/2006",
		"2 Jan 2006",
		"2 January 2006",
		"Jan 2 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}
	timeLayouts = []string{
		"15:04",
		"15:04:05",
		"3:04PM",
		"3:04 PM",
		"3PM",
		"3 PM",
	}
)

const (
	storedDate = "2006-01-02"
	storedTime = "15:04:05"
)

func parseLayouts(layouts []string, s string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseInput reads what a user typed and returns it in the storable format.
func (k DateKind) ParseInput(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	switch k {
	case KindDateTime:
		if t, ok := parseLayouts(dateTimeLayouts, s); ok {
			return strconv.FormatInt(t.Unix(), 10), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
	case KindDate:
		if t, ok := parseLayouts(dateLayouts, s); ok {
			return t.Format(storedDate), nil
		}
	case KindTime:
		if t, ok := parseLayouts(timeLayouts, strings.ToUpper(s)); ok {
			return t.Format(storedTime), nil
		}
	case KindDuration:
		d, err := ParseDuration(s)
		if err == nil {
			return strconv.FormatInt(int64(d/time.Second), 10), nil
		}
		if errors.Is(err, ErrDurationTooLong) {
			return "", fmt.Errorf("%q is too long a duration", s)
		}
	}
	return "", fmt.Errorf("%q is not a valid %s, expected %s", s, strings.ToLower(k.String()), k.hint())
}

// ordinal maps a stored value to a number that orders like the value.
func (k DateKind) ordinal(stored string) (int64, error) {
	switch k {
	case KindDateTime:
		return strconv.ParseInt(stored, 10, 64)
	case KindDate:
		t, err := time.Parse(storedDate, stored)
		if err != nil {
			return 0, err
		}
		return t.Unix(), nil
	case KindTime:
		t, err := time.Parse(storedTime, stored)
		if err != nil {
			return 0, err
		}
		return int64(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
	case KindDuration:
		f, err := strconv.ParseFloat(stored, 64)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("unknown date kind %d", int(k))
}

// Display renders a stored value for chat. Dates use platform timestamps so
// they show in each reader's time zone.
func (k DateKind) Display(stored string) string {
	if stored == "" {
		return ""
	}
	n, err := k.ordinal(stored)
	if err != nil {
		return stored
	}
	switch k {
	case KindDateTime:
		return fmt.Sprintf("<t:%d:F>", n)
	case KindDate:
		return fmt.Sprintf("<t:%d:D>", n)
	case KindTime:
		return time.Unix(n, 0).UTC().Format("15:04") + " UTC"
	case KindDuration:
		return FormatDuration(time.Duration(n) * time.Second)
	}
	return stored
}

// editable renders a stored value in a format ParseInput accepts.
func (k DateKind) editable(stored string) string {
	if stored == "" {
		return ""
	}
	n, err := k.ordinal(stored)
	if err != nil {
		return stored
	}
	switch k {
	case KindDateTime:
		return time.Unix(n, 0).UTC().Format("2006-01-02 15:04:05")
	case KindDuration:
		return FormatDuration(time.Duration(n) * time.Second)
	}
	return stored
}

// plain renders a stored value as text readable outside chat.
func (k DateKind) plain(stored string) string {
	if stored == "" {
		return ""
	}
	n, err := k.ordinal(stored)
	if err != nil {
		return stored
	}
	switch k {
	case KindDateTime:
		return time.Unix(n, 0).UTC().Format(time.RFC3339)
	case KindDuration:
		return FormatDuration(time.Duration(n) * time.Second)
	}
	return stored
}

type DateTime struct {
	Base
	Kind DateKind
	// Minimum and Maximum are in the storable format of Kind, "" when unbounded.
	Minimum string
	Maximum string
}

type dateTimeSettings struct {
	Type    DateKind `json:"type"`
	Minimum string   `json:"minimum"`
	Maximum string   `json:"maximum"`
}

func NewDateTime(title string, kind DateKind) *DateTime {
	return &DateTime{
		Base: Base{Title: title, Required: true},
		Kind: kind,
	}
}

func dateTimeFromSettings(base Base, data []byte) (*DateTime, error) {
	var s dateTimeSettings
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	}
	if !s.Type.valid() {
		return nil, fmt.Errorf("unknown date kind %d", int(s.Type))
	}
	return &DateTime{Base: base, Kind: s.Type, Minimum: s.Minimum, Maximum: s.Maximum}, nil
}

func (*DateTime) Type() Type { return TypeDateTime }

func (q *DateTime) Settings() ([]byte, error) {
	return json.Marshal(dateTimeSettings{Type: q.Kind, Minimum: q.Minimum, Maximum: q.Maximum})
}

func (q *DateTime) Validate() error {
	errs := q.validateBase(nil)
	if !q.Kind.valid() {
		return multierror.Append(errs, fmt.Errorf("unknown date kind %d", int(q.Kind)))
	}
	return q.validateBounds(q.Minimum, q.Maximum, errs).ErrorOrNil()
}

func (q *DateTime) validateBounds(minimum, maximum string, errs *multierror.Error) *multierror.Error {
	var lo, hi int64
	var err error
	if minimum != "" {
		if lo, err = q.Kind.ordinal(minimum); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("Minimum: %q is not a valid %s", minimum, strings.ToLower(q.Kind.String())))
		}
	}
	if maximum != "" {
		if hi, err = q.Kind.ordinal(maximum); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("Maximum: %q is not a valid %s", maximum, strings.ToLower(q.Kind.String())))
		}
	}
	if errs == nil && minimum != "" && maximum != "" && lo > hi {
		errs = multierror.Append(errs, errors.New("Minimum: can not be after Maximum"))
	}
	return errs
}

func (q *DateTime) Summary() Summary {
	body := fmt.Sprintf("%s, %s", q.Kind, requiredLabel(q.Required))
	if q.Minimum != "" {
		body += "\nMinimum: " + q.Kind.Display(q.Minimum)
	}
	if q.Maximum != "" {
		body += "\nMaximum: " + q.Kind.Display(q.Maximum)
	}
	if q.Description != "" {
		body = q.Description + "\n" + body
	}
	return Summary{Title: q.Title, Body: body}
}

func (q *DateTime) Clone() Question {
	c := *q
	return &c
}

func (q *DateTime) Field(last string) interact.Field {
	placeholder := q.Kind.hint()
	if q.Description != "" {
		placeholder = q.Description + " (" + placeholder + ")"
	}
	return interact.Field{
		Label:       interact.Truncate(q.Title, interact.MaxLabel),
		Placeholder: interact.Truncate(placeholder, interact.MaxPlaceholder),
		Value:       last,
		Required:    q.Required,
		MaxLength:   100,
	}
}

func (q *DateTime) Parse(raw string) (Answer, error) {
	if strings.TrimSpace(raw) == "" {
		if q.Required {
			return nil, fmt.Errorf("%s: an answer is required", q.Title)
		}
		return nil, nil
	}
	stored, err := q.Kind.ParseInput(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Title, err)
	}
	n, err := q.Kind.ordinal(stored)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Title, err)
	}
	if q.Minimum != "" {
		if lo, err := q.Kind.ordinal(q.Minimum); err == nil && n < lo {
			return nil, fmt.Errorf("%s: can not be before %s", q.Title, q.Kind.Display(q.Minimum))
		}
	}
	if q.Maximum != "" {
		if hi, err := q.Kind.ordinal(q.Maximum); err == nil && n > hi {
			return nil, fmt.Errorf("%s: can not be after %s", q.Title, q.Kind.Display(q.Maximum))
		}
	}
	return DateTimeAnswer{Timestamp: stored}, nil
}

func (q *DateTime) FormatAnswer(payload []byte) string {
	a, ok := decode[DateTimeAnswer](payload)
	if !ok {
		return ""
	}
	return q.Kind.Display(a.Timestamp)
}

// ExportAnswer is FormatAnswer for exported files.
func (q *DateTime) ExportAnswer(payload []byte) string {
	a, ok := decode[DateTimeAnswer](payload)
	if !ok {
		return ""
	}
	return q.Kind.plain(a.Timestamp)
}

// Configure asks for the kind of a new question first. The kind of a saved
// question is kept, since its answers are stored in that kind's format.
func (q *DateTime) Configure(ctx context.Context, h interact.Handle) (interact.Handle, error) {
	if q.ID == 0 {
		choices := make([]interact.Choice, len(dateKinds))
		for i, k := range dateKinds {
			choices[i] = interact.Choice{Label: k.String(), Value: strconv.Itoa(int(k)), Description: k.hint()}
		}
		sel, next, err := h.Pick(ctx, interact.Picker{
			Title:     "Date/Time Format",
			Body:      "What should respondents enter?",
			Choices:   choices,
			MinValues: 1,
			MaxValues: 1,
		})
		if err != nil {
			return nil, err
		}
		h = next
		if len(sel.Values) == 1 {
			if n, err := strconv.Atoi(sel.Values[0]); err == nil && DateKind(n).valid() && DateKind(n) != q.Kind {
				q.Kind = DateKind(n)
				q.Minimum, q.Maximum = "", ""
			}
		}
	}

	fields := append(q.baseFields(),
		interact.Field{Label: "Minimum", Placeholder: q.Kind.hint(), Value: q.Kind.editable(q.Minimum), MaxLength: 100},
		interact.Field{Label: "Maximum", Placeholder: q.Kind.hint(), Value: q.Kind.editable(q.Maximum), MaxLength: 100},
	)
	return interact.Form(ctx, h, interact.Modal{Title: q.Kind.String() + " Question", Fields: fields}, func(values []string) error {
		base, errs := q.Base.parseBase(values, nil)
		bounds := [2]string{}
		for i, name := range []string{"Minimum", "Maximum"} {
			v := strings.TrimSpace(values[3+i])
			if v == "" {
				continue
			}
			stored, err := q.Kind.ParseInput(v)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			bounds[i] = stored
		}
		if errs != nil {
			return errs
		}
		if errs = q.validateBounds(bounds[0], bounds[1], nil); errs != nil {
			return errs
		}
		q.Base, q.Minimum, q.Maximum = base, bounds[0], bounds[1]
		return nil
	})
}
