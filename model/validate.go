package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var validate = validator.New()

// Validate checks the template settings and every question, reporting all
// problems at once.
func (t *Template) Validate() error {
	var errs *multierror.Error
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = multierror.Append(errs, fieldError(fe))
		}
	}
	for _, q := range t.Questions {
		if err := q.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// ValidateSettings checks everything but the questions.
func (t *Template) ValidateSettings() error {
	err := validate.StructExcept(t, "Questions")
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var errs *multierror.Error
	for _, fe := range verrs {
		errs = multierror.Append(errs, fieldError(fe))
	}
	return errs.ErrorOrNil()
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "Title":
		if fe.Tag() == "required" {
			return errors.New("the survey needs a title")
		}
		return fmt.Errorf("the title must be at most %d characters", MaxTitle)
	case "Description":
		return errors.New("the description must be at most 4000 characters")
	case "EntriesPerUser":
		return fmt.Errorf("entries per user must be between 1 and %d", MaxEntriesPerUser)
	case "MaxEntries":
		return fmt.Errorf("max entries must be between 1 and %d", MaxEntries)
	case "Duration":
		return errors.New("the duration must be longer than zero")
	case "Anonymity":
		return errors.New("anonymity must be private, public or protected")
	case "Questions":
		if fe.Tag() == "min" {
			return errors.New("a survey needs at least one question")
		}
		return fmt.Errorf("a survey can have at most %d questions", MaxQuestions)
	}
	return fmt.Errorf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
