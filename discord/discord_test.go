package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/survey"
)

type fakeClient struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	sent      []*discordgo.MessageSend
	edits     []*discordgo.MessageEdit
	message   *discordgo.Message
	err       error
}

func (c *fakeClient) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.responses = append(c.responses, resp)
	return nil
}

func (c *fakeClient) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followups = append(c.followups, data)
	return &discordgo.Message{}, nil
}

func (c *fakeClient) ChannelMessage(_, _ string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.message == nil {
		return nil, errors.New("unknown message")
	}
	return c.message, nil
}

func (c *fakeClient) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, data)
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func (c *fakeClient) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (c *fakeClient) responded() []*discordgo.InteractionResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*discordgo.InteractionResponse(nil), c.responses...)
}

func (c *fakeClient) followedUp() []*discordgo.WebhookParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*discordgo.WebhookParams(nil), c.followups...)
}

func member(user string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: user}}
}

func commandInteraction(user string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "cmd",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Member:  member(user),
		Data:    discordgo.ApplicationCommandInteractionData{Name: commandName},
	}
}

func componentInteraction(user, customID string, values ...string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  member(user),
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.ButtonComponent,
			Values:        values,
		},
	}
}

func modalInteraction(user, customID string, inputs map[string]string) *discordgo.Interaction {
	var rows []discordgo.MessageComponent
	for id, value := range inputs {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	return &discordgo.Interaction{
		Type:    discordgo.InteractionModalSubmit,
		GuildID: "g1",
		Member:  member(user),
		Data:    discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	}
}

func newBot(t *testing.T, timeout time.Duration) (*Bot, *fakeClient) {
	c := &fakeClient{}
	b := New(c, nil, Options{StepTimeout: timeout})
	t.Cleanup(b.Close)
	return b, c
}

// waitResponse waits until the n-th response has been sent and a step is
// waiting for its answer.
func waitResponse(t *testing.T, b *Bot, c *fakeClient, n int) *discordgo.InteractionResponse {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.responded()) >= n && b.waiters.len() == 1
	}, time.Second, 5*time.Millisecond)
	return c.responded()[n-1]
}

func TestEmbed(t *testing.T) {
	e := embed(interact.Notice{Kind: interact.Success, Title: "Done", Body: "All good", Items: []string{"a", "b"}})
	assert.Equal(t, "Done", e.Title)
	assert.Equal(t, "All good", e.Description)
	assert.Equal(t, colorSuccess, e.Color)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, blank, e.Fields[0].Name)
	assert.Equal(t, "b", e.Fields[1].Value)
	assert.Nil(t, e.Footer)

	e = embed(interact.Notice{Kind: interact.Error, Title: strings.Repeat("x", 300)})
	assert.Equal(t, colorError, e.Color)
	assert.Len(t, []rune(e.Title), maxEmbedTitle)
	require.NotNil(t, e.Footer)

	assert.Equal(t, colorFail, embed(interact.Notice{Kind: interact.Fail}).Color)
	assert.Equal(t, colorInfo, embed(interact.Notice{}).Color)
}

func TestEmbedCapsFields(t *testing.T) {
	items := make([]string, 30)
	for i := range items {
		items[i] = "item"
	}
	e := embed(interact.Notice{Items: items})
	assert.Len(t, e.Fields, maxEmbedFields)
}

func TestBatchEmbeds(t *testing.T) {
	small := make([]*discordgo.MessageEmbed, 12)
	for i := range small {
		small[i] = &discordgo.MessageEmbed{Title: "t"}
	}
	batches := batchEmbeds(small)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], maxEmbedsPerMessage)
	assert.Len(t, batches[1], 2)

	big := []*discordgo.MessageEmbed{
		{Description: strings.Repeat("x", 4000)},
		{Description: strings.Repeat("y", 4000)},
		{Description: strings.Repeat("z", 1000)},
	}
	batches = batchEmbeds(big)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 2)

	assert.Empty(t, batchEmbeds(nil))
}

func TestCustomIDs(t *testing.T) {
	key, id := splitCustomID(customID("abc", "yes"))
	assert.Equal(t, "abc", key)
	assert.Equal(t, "yes", id)

	n, ok := parseTakeID(takeID(42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = parseTakeID("abc:42")
	assert.False(t, ok)
	_, ok = parseTakeID("take:x")
	assert.False(t, ok)
}

func TestButtonRows(t *testing.T) {
	buttons := make([]interact.Button, 7)
	for i := range buttons {
		buttons[i] = interact.Button{ID: string(rune('a' + i)), Label: "B"}
	}
	buttons[6].Style = interact.StyleDanger

	rows := buttonRows("k", buttons)
	require.Len(t, rows, 2)
	first := rows[0].(discordgo.ActionsRow)
	second := rows[1].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	require.Len(t, second.Components, 2)
	last := second.Components[1].(discordgo.Button)
	assert.Equal(t, "k:g", last.CustomID)
	assert.Equal(t, discordgo.DangerButton, last.Style)
}

func TestPickerRows(t *testing.T) {
	rows := pickerRows("k", interact.Picker{
		Choices:   []interact.Choice{{Label: "A", Value: "0"}, {Label: "B", Value: "1"}},
		MinValues: 1,
		MaxValues: 5,
		Skippable: true,
	})
	require.Len(t, rows, 2)
	menu := rows[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Equal(t, "k:"+pickID, menu.CustomID)
	assert.Equal(t, 2, menu.MaxValues)
	assert.Equal(t, 1, *menu.MinValues)
	assert.Len(t, menu.Options, 2)
	skip := rows[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "k:"+skipID, skip.CustomID)
}

func TestModalValues(t *testing.T) {
	i := modalInteraction("u1", "k", map[string]string{"1": "second", "0": "first", "9": "ignored"})
	assert.Equal(t, []string{"first", "second"}, modalValues(i.ModalSubmitData(), 2))
}

func TestWaitersDeliverToTheirUser(t *testing.T) {
	ws := newWaiters()
	key, w := ws.expect("u1")

	assert.False(t, ws.deliver(componentInteraction("u2", customID(key, "x"))))
	assert.Equal(t, 1, ws.len())

	i := componentInteraction("u1", customID(key, "x"))
	assert.True(t, ws.deliver(i))
	assert.Same(t, i, <-w.ch)
	assert.Equal(t, 0, ws.len())

	assert.False(t, ws.deliver(i))
}

func TestAskRoundTrip(t *testing.T) {
	b, c := newBot(t, time.Second)
	conv, h := b.converse(commandInteraction("u1"), interact.Command)

	type result struct {
		id   string
		next interact.Handle
		err  error
	}
	done := make(chan result, 1)
	go func() {
		id, next, err := h.Ask(context.Background(), interact.Prompt{
			Notice:  interact.Notice{Title: "Continue?"},
			Buttons: []interact.Button{{ID: "yes", Label: "Yes"}, {ID: "no", Label: "No"}},
		})
		done <- result{id, next, err}
	}()

	resp := waitResponse(t, b, c, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	no := resp.Data.Components[0].(discordgo.ActionsRow).Components[1].(discordgo.Button)

	click := componentInteraction("u1", no.CustomID)
	b.Handle(click)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "no", r.id)
	assert.Equal(t, interact.Component, r.next.Kind())
	assert.Equal(t, 0, b.waiters.len())

	require.NoError(t, r.next.Reply(context.Background(), interact.Notice{Title: "Bye"}))
	last := c.responded()[1]
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, last.Type)
	assert.Empty(t, last.Data.Components)
	assert.Same(t, click, conv.lastAnswered())
}

func TestModalRoundTrip(t *testing.T) {
	b, c := newBot(t, time.Second)
	_, h := b.converse(commandInteraction("u1"), interact.Command)

	type result struct {
		values []string
		next   interact.Handle
		err    error
	}
	done := make(chan result, 1)
	go func() {
		values, next, err := h.Modal(context.Background(), interact.Modal{
			Title:  "Name",
			Fields: []interact.Field{{Label: "First"}, {Label: "Last", Paragraph: true}},
		})
		done <- result{values, next, err}
	}()

	resp := waitResponse(t, b, c, 1)
	assert.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	require.Len(t, resp.Data.Components, 2)
	input := resp.Data.Components[1].(discordgo.ActionsRow).Components[0].(discordgo.TextInput)
	assert.Equal(t, discordgo.TextInputParagraph, input.Style)

	b.Handle(modalInteraction("u1", resp.Data.CustomID, map[string]string{"0": "Ada", "1": "Lovelace"}))
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, []string{"Ada", "Lovelace"}, r.values)
	assert.Equal(t, interact.ModalSubmit, r.next.Kind())

	_, _, err := r.next.Modal(context.Background(), interact.Modal{Title: "Again"})
	assert.ErrorIs(t, err, interact.ErrModalFromModal)
}

func TestPickSkip(t *testing.T) {
	b, c := newBot(t, time.Second)
	_, h := b.converse(commandInteraction("u1"), interact.Command)

	done := make(chan interact.Selection, 1)
	go func() {
		sel, _, err := h.Pick(context.Background(), interact.Picker{
			Title:     "Pick",
			Choices:   []interact.Choice{{Label: "A", Value: "0"}},
			Skippable: true,
		})
		assert.NoError(t, err)
		done <- sel
	}()

	resp := waitResponse(t, b, c, 1)
	skip := resp.Data.Components[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	b.Handle(componentInteraction("u1", skip.CustomID))
	sel := <-done
	assert.True(t, sel.Skipped)
	assert.Empty(t, sel.Values)
}

func TestPickValues(t *testing.T) {
	b, c := newBot(t, time.Second)
	_, h := b.converse(commandInteraction("u1"), interact.Command)

	done := make(chan interact.Selection, 1)
	go func() {
		sel, _, _ := h.Pick(context.Background(), interact.Picker{
			Choices:   []interact.Choice{{Label: "A", Value: "0"}, {Label: "B", Value: "1"}},
			MaxValues: 2,
		})
		done <- sel
	}()

	resp := waitResponse(t, b, c, 1)
	menu := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	b.Handle(componentInteraction("u1", menu.CustomID, "1", "0"))
	sel := <-done
	assert.False(t, sel.Skipped)
	assert.Equal(t, []string{"1", "0"}, sel.Values)
}

func TestStepTimeout(t *testing.T) {
	b, c := newBot(t, 20*time.Millisecond)
	conv, h := b.converse(commandInteraction("u1"), interact.Command)

	_, next, err := h.Ask(context.Background(), interact.Prompt{Buttons: []interact.Button{{ID: "ok"}}})
	assert.ErrorIs(t, err, interact.ErrTimeout)
	assert.Nil(t, next)
	assert.Equal(t, 0, b.waiters.len())

	b.ended(conv, err)
	followups := c.followedUp()
	require.Len(t, followups, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, followups[0].Flags)
}

func TestCloseEndsConversations(t *testing.T) {
	b, c := newBot(t, time.Minute)
	_, h := b.converse(commandInteraction("u1"), interact.Command)

	done := make(chan error, 1)
	go func() {
		_, _, err := h.Ask(b.ctx, interact.Prompt{Buttons: []interact.Button{{ID: "ok"}}})
		done <- err
	}()
	waitResponse(t, b, c, 1)
	b.Close()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRespondFailureForgetsStep(t *testing.T) {
	b, c := newBot(t, time.Second)
	c.err = errors.New("unknown interaction")
	_, h := b.converse(commandInteraction("u1"), interact.Command)

	_, _, err := h.Ask(context.Background(), interact.Prompt{Buttons: []interact.Button{{ID: "ok"}}})
	assert.Error(t, err)
	assert.Equal(t, 0, b.waiters.len())
}

func TestExpiredInteraction(t *testing.T) {
	b, c := newBot(t, time.Second)
	b.Handle(componentInteraction("u1", "gone:ok"))

	resp := c.responded()
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Data.Embeds, 1)
	assert.Equal(t, "You Can Not Do That", resp[0].Data.Embeds[0].Title)
}

func TestNotifyFollowsUpOverflow(t *testing.T) {
	b, c := newBot(t, time.Second)
	notices := make([]interact.Notice, 12)
	for i := range notices {
		notices[i] = interact.Notice{Title: "n"}
	}
	b.notify(commandInteraction("u1"), notices...)

	resp := c.responded()
	require.Len(t, resp, 1)
	assert.Len(t, resp[0].Data.Embeds, 10)
	followups := c.followedUp()
	require.Len(t, followups, 1)
	assert.Len(t, followups[0].Embeds, 2)
}

func TestCommandsRequireManageServer(t *testing.T) {
	cmds := commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, int64(discordgo.PermissionManageServer), *cmds[0].DefaultMemberPermissions)

	var names []string
	for _, o := range cmds[0].Options {
		names = append(names, o.Name)
	}
	assert.ElementsMatch(t, []string{"create", "edit", "delete", "send", "close", "results", "export", "ping", "info"}, names)
}

func subcommand(user, name string) *discordgo.Interaction {
	i := commandInteraction(user)
	i.Data = discordgo.ApplicationCommandInteractionData{
		Name: commandName,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand},
		},
	}
	return i
}

func TestPing(t *testing.T) {
	c := &fakeClient{}
	b := New(c, nil, Options{Latency: func() time.Duration { return 42 * time.Millisecond }})
	t.Cleanup(b.Close)

	b.Handle(subcommand("u1", "ping"))
	resp := c.responded()
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Data.Embeds, 1)
	assert.Equal(t, "Pong!", resp[0].Data.Embeds[0].Title)
	assert.Equal(t, "Heartbeat Latency: 42 ms", resp[0].Data.Embeds[0].Description)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp[0].Data.Flags)
}

func TestPingBeforeFirstHeartbeat(t *testing.T) {
	b, c := newBot(t, time.Second)
	b.Handle(subcommand("u1", "ping"))
	resp := c.responded()
	require.Len(t, resp, 1)
	assert.Equal(t, "Latency Not Measured Yet", resp[0].Data.Embeds[0].Description)
}

func TestInfo(t *testing.T) {
	b, c := newBot(t, time.Second)
	b.Handle(subcommand("u1", "info"))
	resp := c.responded()
	require.Len(t, resp, 1)
	e := resp[0].Data.Embeds[0]
	assert.Equal(t, "Survey Wolf", e.Title)
	assert.Contains(t, e.Description, "/survey create")
	require.Len(t, e.Fields, 2)
	assert.Contains(t, e.Fields[1].Value, discordgo.VERSION)
}

func TestCloseNotice(t *testing.T) {
	n := closeNotice(true)
	assert.Equal(t, interact.Success, n.Kind)
	assert.Equal(t, "The Survey Was Closed", n.Body)

	n = closeNotice(false)
	assert.Equal(t, interact.Success, n.Kind)
	assert.Equal(t, "Success!", n.Title)
	assert.Equal(t, "The Survey Had Already Ended", n.Body)
}

func TestResultsFitMessages(t *testing.T) {
	cases := map[string]struct{ lines, width int }{
		"long lines":  {60, 152},
		"many lines":  {3000, 10},
		"huge answer": {3, 3000},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sec := survey.Section{Title: "Q", Description: "Answers"}
			for i := 0; i < tc.lines; i++ {
				sec.Lines = append(sec.Lines, "- "+strings.Repeat("x", tc.width-2))
			}
			r := &survey.Results{Sections: []survey.Section{{Title: "Intro", Description: "d"}, sec}}

			notices := r.Notices()
			embeds := make([]*discordgo.MessageEmbed, len(notices))
			items := 0
			for n, notice := range notices {
				embeds[n] = embed(notice)
				items += len(notice.Items)
			}

			fields := 0
			for _, batch := range batchEmbeds(embeds) {
				assert.LessOrEqual(t, len(batch), maxEmbedsPerMessage)
				total := 0
				for _, e := range batch {
					assert.LessOrEqual(t, len(e.Fields), maxEmbedFields)
					total += embedSize(e)
					fields += len(e.Fields)
				}
				assert.LessOrEqual(t, total, maxEmbedTotal)
			}
			assert.Equal(t, items, fields, "no field is dropped")
		})
	}
}

func testSurvey() (*model.Template, *model.ActiveSurvey) {
	limit := 10
	ends := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	t := model.NewTemplate("g1", "Lunch")
	t.MaxEntries = &limit
	sv := &model.ActiveSurvey{ID: 7, GuildID: "g1", ChannelID: "c1", MessageID: "m1", EndsAt: &ends}
	return t, sv
}

func TestPublish(t *testing.T) {
	b, c := newBot(t, time.Second)
	tpl, sv := testSurvey()

	id, err := b.Publish(context.Background(), sv, tpl, "Tell us")
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	require.Len(t, c.sent, 1)
	msg := c.sent[0]
	require.Len(t, msg.Embeds, 2)
	assert.Equal(t, "Tell us", msg.Embeds[0].Description)
	assert.Equal(t, "Lunch", msg.Embeds[1].Title)
	assert.Len(t, msg.Embeds[1].Fields, 4)
	assert.Contains(t, msg.Embeds[1].Fields[3].Value, "<t:1893553445:f>")

	button := msg.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "take:7", button.CustomID)
	assert.False(t, button.Disabled)
}

func TestPublishFailure(t *testing.T) {
	b, c := newBot(t, time.Second)
	c.err = errors.New("missing access")
	tpl, sv := testSurvey()

	_, err := b.Publish(context.Background(), sv, tpl, "")
	assert.Error(t, err)
}

func TestDisable(t *testing.T) {
	b, c := newBot(t, time.Second)
	tpl, sv := testSurvey()
	kept := summary(tpl, sv)
	c.message = &discordgo.Message{Embeds: []*discordgo.MessageEmbed{{Title: "Take The Survey Below!"}, kept}}

	require.NoError(t, b.Disable(context.Background(), sv))
	require.Len(t, c.edits, 1)
	edit := c.edits[0]
	assert.Equal(t, "m1", edit.ID)
	require.Len(t, *edit.Embeds, 2)
	assert.Equal(t, "This Survey Has Ended", (*edit.Embeds)[0].Title)
	assert.Same(t, kept, (*edit.Embeds)[1])
	button := (*edit.Components)[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.True(t, button.Disabled)
}

func TestDisableWithoutMessage(t *testing.T) {
	b, c := newBot(t, time.Second)
	_, sv := testSurvey()

	require.NoError(t, b.Disable(context.Background(), sv))
	require.Len(t, c.edits, 1)
	assert.Len(t, *c.edits[0].Embeds, 1)
}
