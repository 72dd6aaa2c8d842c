// Package interact describes the chat interactions a survey session goes
// through, independently of the chat platform delivering them.
//
// A Handle is a continuation token: it represents the one interaction the bot
// may still answer. Every presentation method consumes the handle it is called
// on and returns the next one, so a conversation spanning many platform
// events is a linear chain of handles.
package interact

import (
	"context"
	"errors"
)

var (
	// ErrConsumed is returned when a handle is used after it has been answered.
	ErrConsumed = errors.New("interaction handle already used")
	// ErrTimeout is returned when the user did not answer in time.
	ErrTimeout = errors.New("timed out waiting for the user")
	// ErrModalFromModal is returned when opening a modal in response to a modal submission.
	ErrModalFromModal = errors.New("a modal can not be opened from a modal submission")
)

// Kind is the kind of platform event a handle answers.
type Kind int

const (
	Command Kind = iota
	Component
	ModalSubmit
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Component:
		return "component"
	case ModalSubmit:
		return "modal_submit"
	}
	return "unknown"
}

// Limits imposed by the chat platform.
const (
	MaxModalFields    = 5
	MaxModalTitle     = 45
	MaxLabel          = 45
	MaxPlaceholder    = 100
	MaxInputLength    = 4000
	MaxPickerChoices  = 25
	MaxChoiceLabel    = 100
	MaxButtonsPerRow  = 5
	MaxPromptButtons  = 25
	MaxNoticeItemSize = 1024
	MaxNoticeItems    = 25
	MaxNoticeTitle    = 256
	MaxNoticeBody     = 4096
	// MaxNoticeSize bounds the characters of one message, every notice in it
	// counted together.
	MaxNoticeSize = 6000
)

type Field struct {
	Label       string
	Placeholder string
	// Value pre-fills the field.
	Value     string
	Required  bool
	Paragraph bool
	MinLength int
	MaxLength int
}

type Modal struct {
	Title  string
	Fields []Field
}

type Choice struct {
	Label       string
	Value       string
	Description string
}

type Picker struct {
	Title     string
	Body      string
	Choices   []Choice
	MinValues int
	MaxValues int
	// Skippable adds a button that submits no selection.
	Skippable bool
}

type Selection struct {
	Values  []string
	Skipped bool
}

type Style int

const (
	StylePrimary Style = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

type Button struct {
	ID    string
	Label string
	Style Style
}

type NoticeKind int

const (
	Info NoticeKind = iota
	Success
	Fail
	Error
)

// Notice is a plain message shown to the user.
type Notice struct {
	Kind  NoticeKind
	Title string
	Body  string
	Items []string
}

// Prompt is a notice the user has to answer by clicking one of its buttons.
type Prompt struct {
	Notice  Notice
	Buttons []Button
}

type Handle interface {
	Kind() Kind
	// Modal opens a modal and waits for its submission, returning one value per field.
	Modal(ctx context.Context, m Modal) ([]string, Handle, error)
	// Pick shows a select menu and waits for a selection.
	Pick(ctx context.Context, p Picker) (Selection, Handle, error)
	// Ask shows a prompt and waits for a click, returning the clicked button id.
	Ask(ctx context.Context, p Prompt) (string, Handle, error)
	// Reply answers with a notice, ending the chain.
	Reply(ctx context.Context, n Notice) error
}
