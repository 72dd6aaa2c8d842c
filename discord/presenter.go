package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/survey"
)

var _ survey.Presenter = (*Bot)(nil)

func takeButton(sv *model.ActiveSurvey, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Take Survey",
				Style:    discordgo.PrimaryButton,
				CustomID: takeID(sv.ID),
				Disabled: disabled,
			},
		}},
	}
}

// Publish posts the message members take sv from.
func (b *Bot) Publish(ctx context.Context, sv *model.ActiveSurvey, t *model.Template, message string) (string, error) {
	msg, err := b.client.ChannelMessageSendComplex(sv.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			embed(interact.Notice{Kind: interact.Info, Title: "Take The Survey Below!", Body: message}),
			summary(t, sv),
		},
		Components: takeButton(sv, false),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord.publish: %w", err)
	}
	return msg.ID, nil
}

// Disable marks the message of sv as ended and disables its button. The
// survey summary is kept when it can be read back.
func (b *Bot) Disable(ctx context.Context, sv *model.ActiveSurvey) error {
	embeds := []*discordgo.MessageEmbed{
		embed(interact.Notice{Kind: interact.Info, Title: "This Survey Has Ended"}),
	}
	if msg, err := b.client.ChannelMessage(sv.ChannelID, sv.MessageID, discordgo.WithContext(ctx)); err == nil && len(msg.Embeds) > 1 {
		embeds = append(embeds, msg.Embeds[1])
	}
	components := takeButton(sv, true)

	edit := discordgo.NewMessageEdit(sv.ChannelID, sv.MessageID)
	edit.Embeds = &embeds
	edit.Components = &components
	if _, err := b.client.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord.disable: %w", err)
	}
	return nil
}
