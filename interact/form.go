package interact

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

const (
	ContinueID = "continue"
	RetryID    = "retry"
)

// Ready returns a handle that can open a modal. Modal submissions can not open
// another modal, so in that case the user is asked to click through a single
// button labelled label first.
func Ready(ctx context.Context, h Handle, label string) (Handle, error) {
	if h.Kind() != ModalSubmit {
		return h, nil
	}
	_, next, err := h.Ask(ctx, Prompt{
		Notice: Notice{
			Kind: Info,
			Body: "Click The Button Below To Continue",
		},
		Buttons: []Button{{ID: ContinueID, Label: label, Style: StylePrimary}},
	})
	return next, err
}

// Form opens m and hands the submitted values to apply. While apply fails its
// errors are listed together and the same modal is opened again, pre-filled
// with what the user typed.
func Form(ctx context.Context, h Handle, m Modal, apply func(values []string) error) (Handle, error) {
	fields := append([]Field(nil), m.Fields...)
	for {
		var err error
		h, err = Ready(ctx, h, "Continue")
		if err != nil {
			return nil, err
		}

		values, next, err := h.Modal(ctx, Modal{Title: m.Title, Fields: fields})
		if err != nil {
			return nil, err
		}

		err = apply(values)
		if err == nil {
			return next, nil
		}

		for i := range fields {
			if i < len(values) {
				fields[i].Value = values[i]
			}
		}
		h, err = Retry(ctx, next, "Invalid Input", err)
		if err != nil {
			return nil, err
		}
	}
}

// Retry lists the messages of err and waits for the user to ask for another try.
func Retry(ctx context.Context, h Handle, title string, err error) (Handle, error) {
	_, next, err := h.Ask(ctx, Prompt{
		Notice: Notice{
			Kind:  Fail,
			Title: title,
			Items: Messages(err),
		},
		Buttons: []Button{{ID: RetryID, Label: "Try Again", Style: StylePrimary}},
	})
	return next, err
}

// Messages flattens err into one message per failure.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, Messages(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
