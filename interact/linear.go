package interact

import (
	"context"
	"sync/atomic"
)

type linear struct {
	h    Handle
	used atomic.Bool
}

// Linear guards h so that it answers at most once. Handles returned by the
// guarded handle are guarded as well; using any of them twice fails with
// ErrConsumed.
func Linear(h Handle) Handle {
	if h == nil {
		return nil
	}
	if l, ok := h.(*linear); ok {
		return l
	}
	return &linear{h: h}
}

func (l *linear) take() error {
	if !l.used.CompareAndSwap(false, true) {
		return ErrConsumed
	}
	return nil
}

func (l *linear) Kind() Kind {
	return l.h.Kind()
}

func (l *linear) Modal(ctx context.Context, m Modal) ([]string, Handle, error) {
	if err := l.take(); err != nil {
		return nil, nil, err
	}
	if l.h.Kind() == ModalSubmit {
		return nil, nil, ErrModalFromModal
	}
	values, next, err := l.h.Modal(ctx, m)
	return values, Linear(next), err
}

func (l *linear) Pick(ctx context.Context, p Picker) (Selection, Handle, error) {
	if err := l.take(); err != nil {
		return Selection{}, nil, err
	}
	sel, next, err := l.h.Pick(ctx, p)
	return sel, Linear(next), err
}

func (l *linear) Ask(ctx context.Context, p Prompt) (string, Handle, error) {
	if err := l.take(); err != nil {
		return "", nil, err
	}
	id, next, err := l.h.Ask(ctx, p)
	return id, Linear(next), err
}

func (l *linear) Reply(ctx context.Context, n Notice) error {
	if err := l.take(); err != nil {
		return err
	}
	return l.h.Reply(ctx, n)
}
