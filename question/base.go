package question

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-wolf/interact"
)

// baseFields are the first three fields of every settings modal.
func (b *Base) baseFields() []interact.Field {
	return []interact.Field{
		{Label: "Title", Value: b.Title, Required: true, MaxLength: MaxTitle},
		{Label: "Description", Value: b.Description, MaxLength: MaxDescription, Paragraph: true},
		{Label: "Required (t/f)", Value: FormatBool(b.Required), Required: true, MaxLength: 5},
	}
}

// parseBase reads the values of baseFields into a copy of b.
func (b Base) parseBase(values []string, errs *multierror.Error) (Base, *multierror.Error) {
	title := strings.TrimSpace(values[0])
	switch {
	case title == "":
		errs = multierror.Append(errs, errors.New("Title: can not be empty"))
	case utf8.RuneCountInString(title) > MaxTitle:
		errs = multierror.Append(errs, fmt.Errorf("Title: must be at most %d characters", MaxTitle))
	default:
		b.Title = title
	}

	desc := strings.TrimSpace(values[1])
	if utf8.RuneCountInString(desc) > MaxDescription {
		errs = multierror.Append(errs, fmt.Errorf("Description: must be at most %d characters", MaxDescription))
	} else {
		b.Description = desc
	}

	required, err := ParseBool(values[2])
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("Required: %w", err))
	} else {
		b.Required = required
	}
	return b, errs
}

func (b *Base) validateBase(errs *multierror.Error) *multierror.Error {
	if strings.TrimSpace(b.Title) == "" {
		errs = multierror.Append(errs, errors.New("title can not be empty"))
	}
	if utf8.RuneCountInString(b.Title) > MaxTitle {
		errs = multierror.Append(errs, fmt.Errorf("title must be at most %d characters", MaxTitle))
	}
	if utf8.RuneCountInString(b.Description) > MaxDescription {
		errs = multierror.Append(errs, fmt.Errorf("description must be at most %d characters", MaxDescription))
	}
	return errs
}

// ParseBool accepts t/f style flags as typed into a modal.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "y", "yes", "1":
		return true, nil
	case "f", "false", "n", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not t or f", s)
}

func FormatBool(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

// parseBound parses an integer setting in [lo, hi]; empty input yields def.
func parseBound(name, s string, lo, hi, def int, errs *multierror.Error) (int, *multierror.Error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, errs
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def, multierror.Append(errs, fmt.Errorf("%s: %q is not a whole number", name, s))
	}
	if n < lo || n > hi {
		return def, multierror.Append(errs, fmt.Errorf("%s: must be between %d and %d", name, lo, hi))
	}
	return n, errs
}

func requiredLabel(required bool) string {
	if required {
		return "Required"
	}
	return "Optional"
}
