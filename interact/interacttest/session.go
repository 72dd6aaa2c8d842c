// Package interacttest provides a scripted interact.Handle for tests.
package interacttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mbolis/survey-wolf/interact"
)

type actionKind int

const (
	submit actionKind = iota
	choose
	skip
	click
	timeout
)

// Action is one scripted user reaction.
type Action struct {
	kind   actionKind
	values []string
}

func Submit(values ...string) Action { return Action{kind: submit, values: values} }
func Select(values ...string) Action { return Action{kind: choose, values: values} }
func Skip() Action                    { return Action{kind: skip} }
func Click(id string) Action          { return Action{kind: click, values: []string{id}} }
func Timeout() Action                 { return Action{kind: timeout} }

// Event records what the bot presented.
type Event struct {
	// From is the kind of handle the presentation was made on.
	From   interact.Kind
	Modal  *interact.Modal
	Picker *interact.Picker
	Prompt *interact.Prompt
	Notice *interact.Notice
}

func (e Event) String() string {
	switch {
	case e.Modal != nil:
		return fmt.Sprintf("modal(%d)", len(e.Modal.Fields))
	case e.Picker != nil:
		return "picker"
	case e.Prompt != nil:
		return "prompt"
	case e.Notice != nil:
		return "reply"
	}
	return "?"
}

// Session plays the user side of a conversation from a fixed script. Running
// out of actions behaves like a user that never answers.
type Session struct {
	mu      sync.Mutex
	actions []Action
	events  []Event
}

func New(actions ...Action) *Session {
	return &Session{actions: actions}
}

// Start returns the handle of the slash command that opened the conversation.
func (s *Session) Start() interact.Handle {
	return &handle{s: s, kind: interact.Command}
}

// StartFrom returns a first handle of the given kind.
func (s *Session) StartFrom(kind interact.Kind) interact.Handle {
	return &handle{s: s, kind: kind}
}

func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Steps lists the presentations as short strings, e.g. "modal(5)".
func (s *Session) Steps() []string {
	var steps []string
	for _, e := range s.Events() {
		steps = append(steps, e.String())
	}
	return steps
}

func (s *Session) Modals() []interact.Modal {
	var modals []interact.Modal
	for _, e := range s.Events() {
		if e.Modal != nil {
			modals = append(modals, *e.Modal)
		}
	}
	return modals
}

// LastNotice returns the last reply, or nil.
func (s *Session) LastNotice() *interact.Notice {
	events := s.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Notice != nil {
			return events[i].Notice
		}
	}
	return nil
}

// Pending returns the number of actions not played yet.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

func (s *Session) record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *Session) next(want ...actionKind) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return Action{}, interact.ErrTimeout
	}
	a := s.actions[0]
	s.actions = s.actions[1:]
	if a.kind == timeout {
		return Action{}, interact.ErrTimeout
	}
	for _, k := range want {
		if a.kind == k {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("interacttest: unexpected action %d", a.kind)
}

type handle struct {
	s    *Session
	kind interact.Kind
}

func (h *handle) Kind() interact.Kind {
	return h.kind
}

func (h *handle) Modal(ctx context.Context, m interact.Modal) ([]string, interact.Handle, error) {
	if h.kind == interact.ModalSubmit {
		return nil, nil, interact.ErrModalFromModal
	}
	h.s.record(Event{From: h.kind, Modal: &m})
	a, err := h.s.next(submit)
	if err != nil {
		return nil, nil, err
	}
	if len(a.values) != len(m.Fields) {
		return nil, nil, fmt.Errorf("interacttest: %d values submitted for %d fields", len(a.values), len(m.Fields))
	}
	return a.values, &handle{s: h.s, kind: interact.ModalSubmit}, nil
}

func (h *handle) Pick(ctx context.Context, p interact.Picker) (interact.Selection, interact.Handle, error) {
	h.s.record(Event{From: h.kind, Picker: &p})
	a, err := h.s.next(choose, skip)
	if err != nil {
		return interact.Selection{}, nil, err
	}
	if a.kind == skip {
		if !p.Skippable {
			return interact.Selection{}, nil, fmt.Errorf("interacttest: picker %q can not be skipped", p.Title)
		}
		return interact.Selection{Skipped: true}, &handle{s: h.s, kind: interact.Component}, nil
	}
	return interact.Selection{Values: a.values}, &handle{s: h.s, kind: interact.Component}, nil
}

func (h *handle) Ask(ctx context.Context, p interact.Prompt) (string, interact.Handle, error) {
	h.s.record(Event{From: h.kind, Prompt: &p})
	a, err := h.s.next(click)
	if err != nil {
		return "", nil, err
	}
	id := a.values[0]
	for _, b := range p.Buttons {
		if b.ID == id {
			return id, &handle{s: h.s, kind: interact.Component}, nil
		}
	}
	return "", nil, fmt.Errorf("interacttest: no button %q", id)
}

func (h *handle) Reply(ctx context.Context, n interact.Notice) error {
	h.s.record(Event{From: h.kind, Notice: &n})
	return nil
}
