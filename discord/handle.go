package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
)

var errUnexpected = errors.New("unexpected interaction")

// waiter is a conversation step waiting for the user to answer a presentation.
type waiter struct {
	user string
	ch   chan *discordgo.Interaction
}

// waiters routes component and modal interactions to the step that
// presented them, by the key in their custom id.
type waiters struct {
	mu sync.Mutex
	m  map[string]*waiter
}

func newWaiters() *waiters {
	return &waiters{m: map[string]*waiter{}}
}

func (ws *waiters) expect(user string) (string, *waiter) {
	key := uuid.NewString()
	w := &waiter{user: user, ch: make(chan *discordgo.Interaction, 1)}
	ws.mu.Lock()
	ws.m[key] = w
	ws.mu.Unlock()
	return key, w
}

func (ws *waiters) forget(key string) {
	ws.mu.Lock()
	delete(ws.m, key)
	ws.mu.Unlock()
}

// deliver hands i to the step waiting for it. It reports false when no step
// of the interacting user waits for i.
func (ws *waiters) deliver(i *discordgo.Interaction) bool {
	key, _ := splitCustomID(interactionCustomID(i))
	ws.mu.Lock()
	w, ok := ws.m[key]
	if ok && w.user == userID(i) {
		delete(ws.m, key)
	}
	ws.mu.Unlock()
	if !ok || w.user != userID(i) {
		return false
	}
	w.ch <- i
	return true
}

func (ws *waiters) len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.m)
}

// conversation is the chain of interactions started by one command or button.
type conversation struct {
	bot  *Bot
	mu   sync.Mutex
	last *discordgo.Interaction
}

func (c *conversation) answered(i *discordgo.Interaction) {
	c.mu.Lock()
	c.last = i
	c.mu.Unlock()
}

// lastAnswered is the latest interaction the bot responded to, whose token
// can still send follow-up messages.
func (c *conversation) lastAnswered() *discordgo.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// handle answers one interaction of a conversation.
type handle struct {
	conv *conversation
	i    *discordgo.Interaction
	kind interact.Kind
	// update is set when the interaction came from a component of an
	// ephemeral message of the conversation, which is edited in place.
	update bool
}

func (h *handle) Kind() interact.Kind {
	return h.kind
}

func (h *handle) Modal(ctx context.Context, m interact.Modal) ([]string, interact.Handle, error) {
	if h.kind == interact.ModalSubmit {
		return nil, nil, interact.ErrModalFromModal
	}
	b := h.conv.bot
	key, w := b.waiters.expect(userID(h.i))
	err := h.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   key,
			Title:      interact.Truncate(m.Title, interact.MaxModalTitle),
			Components: modalRows(m),
		},
	})
	if err != nil {
		b.waiters.forget(key)
		return nil, nil, err
	}

	next, err := h.await(ctx, key, w)
	if err != nil {
		return nil, nil, err
	}
	if next.Type != discordgo.InteractionModalSubmit {
		return nil, nil, fmt.Errorf("discord.modal: %w", errUnexpected)
	}
	values := modalValues(next.ModalSubmitData(), len(m.Fields))
	return values, &handle{conv: h.conv, i: next, kind: interact.ModalSubmit, update: h.update}, nil
}

func (h *handle) Pick(ctx context.Context, p interact.Picker) (interact.Selection, interact.Handle, error) {
	b := h.conv.bot
	key, w := b.waiters.expect(userID(h.i))
	n := interact.Notice{Kind: interact.Info, Title: p.Title, Body: p.Body}
	if err := h.message(embed(n), pickerRows(key, p)); err != nil {
		b.waiters.forget(key)
		return interact.Selection{}, nil, err
	}

	next, err := h.await(ctx, key, w)
	if err != nil {
		return interact.Selection{}, nil, err
	}
	if next.Type != discordgo.InteractionMessageComponent {
		return interact.Selection{}, nil, fmt.Errorf("discord.pick: %w", errUnexpected)
	}
	nh := &handle{conv: h.conv, i: next, kind: interact.Component, update: true}
	data := next.MessageComponentData()
	if _, id := splitCustomID(data.CustomID); id == skipID {
		return interact.Selection{Skipped: true}, nh, nil
	}
	return interact.Selection{Values: data.Values}, nh, nil
}

func (h *handle) Ask(ctx context.Context, p interact.Prompt) (string, interact.Handle, error) {
	b := h.conv.bot
	key, w := b.waiters.expect(userID(h.i))
	if err := h.message(embed(p.Notice), buttonRows(key, p.Buttons)); err != nil {
		b.waiters.forget(key)
		return "", nil, err
	}

	next, err := h.await(ctx, key, w)
	if err != nil {
		return "", nil, err
	}
	if next.Type != discordgo.InteractionMessageComponent {
		return "", nil, fmt.Errorf("discord.ask: %w", errUnexpected)
	}
	_, id := splitCustomID(next.MessageComponentData().CustomID)
	return id, &handle{conv: h.conv, i: next, kind: interact.Component, update: true}, nil
}

func (h *handle) Reply(ctx context.Context, n interact.Notice) error {
	return h.message(embed(n), nil)
}

// message shows an embed with components, replacing the conversation message
// when possible.
func (h *handle) message(e *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{e},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}
	if h.update {
		resp.Type = discordgo.InteractionResponseUpdateMessage
	}
	return h.respond(resp)
}

func (h *handle) respond(resp *discordgo.InteractionResponse) error {
	if err := h.conv.bot.client.InteractionRespond(h.i, resp); err != nil {
		return fmt.Errorf("discord.respond: %w", err)
	}
	h.conv.answered(h.i)
	return nil
}

func (h *handle) await(ctx context.Context, key string, w *waiter) (*discordgo.Interaction, error) {
	b := h.conv.bot
	defer b.waiters.forget(key)

	timer := time.NewTimer(b.stepTimeout)
	defer timer.Stop()
	select {
	case i := <-w.ch:
		return i, nil
	case <-timer.C:
		log.WithFields(log.Fields{"user": w.user, "key": key}).Debug("discord.await: timed out")
		return nil, interact.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionCustomID(i *discordgo.Interaction) string {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		return i.ModalSubmitData().CustomID
	}
	return ""
}
