package interact_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/interact/interacttest"
)

func TestLinearRejectsReuse(t *testing.T) {
	ctx := context.Background()
	s := interacttest.New(interacttest.Submit("a"), interacttest.Click("ok"))
	h := interact.Linear(s.Start())

	_, next, err := h.Modal(ctx, interact.Modal{Fields: []interact.Field{{Label: "x"}}})
	require.NoError(t, err)

	_, _, err = h.Modal(ctx, interact.Modal{Fields: []interact.Field{{Label: "x"}}})
	assert.ErrorIs(t, err, interact.ErrConsumed)

	_, _, err = next.Modal(ctx, interact.Modal{})
	assert.ErrorIs(t, err, interact.ErrModalFromModal)
	// the refused modal still consumed next
	assert.ErrorIs(t, next.Reply(ctx, interact.Notice{}), interact.ErrConsumed)
}

func TestReadyInterposesContinue(t *testing.T) {
	ctx := context.Background()
	s := interacttest.New(interacttest.Click(interact.ContinueID))

	h := s.StartFrom(interact.Component)
	same, err := interact.Ready(ctx, h, "Go")
	require.NoError(t, err)
	assert.Equal(t, h, same)
	assert.Empty(t, s.Events())

	fresh, err := interact.Ready(ctx, s.StartFrom(interact.ModalSubmit), "Go")
	require.NoError(t, err)
	assert.Equal(t, interact.Component, fresh.Kind())
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "Go", s.Events()[0].Prompt.Buttons[0].Label)
}

func TestFormRepromptsWithLastInput(t *testing.T) {
	ctx := context.Background()
	s := interacttest.New(
		interacttest.Submit("abc", "7"),
		interacttest.Click(interact.RetryID),
		interacttest.Submit("abc", "3"),
	)

	var got int
	next, err := interact.Form(ctx, s.Start(), interact.Modal{
		Title:  "Numbers",
		Fields: []interact.Field{{Label: "Name"}, {Label: "Count"}},
	}, func(values []string) error {
		n, err := strconv.Atoi(values[1])
		if err != nil {
			return err
		}
		if n > 5 {
			var errs *multierror.Error
			errs = multierror.Append(errs, errors.New("count too large"), errors.New("really"))
			return errs
		}
		got = n
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, interact.ModalSubmit, next.Kind())
	assert.Equal(t, 3, got)

	modals := s.Modals()
	require.Len(t, modals, 2)
	assert.Equal(t, "7", modals[1].Fields[1].Value)
	assert.Equal(t, "abc", modals[1].Fields[0].Value)

	events := s.Events()
	require.Len(t, events, 3)
	assert.Equal(t, []string{"count too large", "really"}, events[1].Prompt.Notice.Items)
}

func TestFormTimeout(t *testing.T) {
	s := interacttest.New(interacttest.Timeout())
	_, err := interact.Form(context.Background(), s.Start(), interact.Modal{Fields: []interact.Field{{}}}, func([]string) error { return nil })
	assert.ErrorIs(t, err, interact.ErrTimeout)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", interact.Truncate("short", 10))
	assert.Equal(t, "abcd…", interact.Truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", interact.Truncate("éééééé", 4))
}
