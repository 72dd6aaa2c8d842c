// Package discord connects the survey service to Discord: it registers the
// slash commands, routes interactions to the conversations waiting for them
// and renders notices as embeds.
package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/survey"
)

// client is the part of *discordgo.Session the bot talks through.
type client interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Options struct {
	AppID string
	// GuildID registers the commands in one guild only, for development.
	GuildID     string
	StepTimeout time.Duration
	// Latency reports the gateway heartbeat latency for /survey ping.
	Latency func() time.Duration
}

type Bot struct {
	client      client
	svc         *survey.Service
	appID       string
	guildID     string
	stepTimeout time.Duration
	latency     func() time.Duration
	waiters     *waiters

	ctx    context.Context
	cancel context.CancelFunc
}

func New(c client, svc *survey.Service, opts Options) *Bot {
	b := &Bot{
		client:      c,
		svc:         svc,
		appID:       opts.AppID,
		guildID:     opts.GuildID,
		stepTimeout: opts.StepTimeout,
		latency:     opts.Latency,
		waiters:     newWaiters(),
	}
	if b.stepTimeout <= 0 {
		b.stepTimeout = 10 * time.Minute
	}
	if b.latency == nil {
		b.latency = func() time.Duration { return 0 }
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Register installs the slash commands and the interaction handler on s.
func (b *Bot) Register(s *discordgo.Session) error {
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		b.Handle(e.Interaction)
	})
	if _, err := s.ApplicationCommandBulkOverwrite(b.appID, b.guildID, commands()); err != nil {
		return fmt.Errorf("discord.register_commands: %w", err)
	}
	log.Infof("discord: %d commands registered", len(commands()))
	return nil
}

// Close ends the conversations in progress.
func (b *Bot) Close() {
	b.cancel()
}

// Handle serves one interaction. Conversations block until they end, so each
// interaction is expected on its own goroutine, as discordgo does.
func (b *Bot) Handle(i *discordgo.Interaction) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"guild": i.GuildID, "user": userID(i)}).
				Errorf("discord.panic: %v\n%s", r, debug.Stack())
			b.notify(i, survey.Describe(fmt.Errorf("panic: %v", r)))
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.command(i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.autocomplete(i)
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		if b.waiters.deliver(i) {
			return
		}
		if id, ok := parseTakeID(interactionCustomID(i)); ok && i.Type == discordgo.InteractionMessageComponent {
			b.take(i, id)
			return
		}
		b.notify(i, interact.Notice{
			Kind:  interact.Fail,
			Title: "You Can Not Do That",
			Body:  "This Interaction Has Expired, Please Start Again",
		})
	}
}

func caller(i *discordgo.Interaction) survey.Caller {
	return survey.Caller{UserID: userID(i), GuildID: i.GuildID, ChannelID: i.ChannelID}
}

func (b *Bot) converse(i *discordgo.Interaction, kind interact.Kind) (*conversation, interact.Handle) {
	conv := &conversation{bot: b}
	return conv, interact.Linear(&handle{conv: conv, i: i, kind: kind})
}

// ended tells the user a conversation timed out, on the last interaction
// that can still be followed up.
func (b *Bot) ended(conv *conversation, err error) {
	if !errors.Is(err, interact.ErrTimeout) {
		return
	}
	last := conv.lastAnswered()
	if last == nil {
		return
	}
	_, ferr := b.client.FollowupMessageCreate(last, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed(survey.Describe(err))},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if ferr != nil {
		log.WithError(ferr).Debug("discord.followup.timeout")
	}
}

func (b *Bot) take(i *discordgo.Interaction, surveyID int64) {
	conv, h := b.converse(i, interact.Component)
	err := b.svc.Take(b.ctx, h, caller(i), surveyID)
	b.ended(conv, err)
}

// notify answers i with ephemeral notices, the first as the response and the
// rest as follow-ups.
func (b *Bot) notify(i *discordgo.Interaction, notices ...interact.Notice) {
	embeds := make([]*discordgo.MessageEmbed, len(notices))
	for n, notice := range notices {
		embeds[n] = embed(notice)
	}
	for n, batch := range batchEmbeds(embeds) {
		var err error
		if n == 0 {
			err = b.client.InteractionRespond(i, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{Embeds: batch, Flags: discordgo.MessageFlagsEphemeral},
			})
		} else {
			_, err = b.client.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
				Embeds: batch,
				Flags:  discordgo.MessageFlagsEphemeral,
			})
		}
		if err != nil {
			log.WithError(err).Warn("discord.notify")
			return
		}
	}
}
