package discord

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/survey"
)

const commandName = "survey"

func commands() []*discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	dm := false
	template := func(description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "survey",
			Description:  description,
			Required:     true,
			Autocomplete: true,
		}
	}
	sub := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: description,
			Options:     options,
		}
	}

	return []*discordgo.ApplicationCommand{{
		Name:                     commandName,
		Description:              "Create, Send And Read Surveys",
		DefaultMemberPermissions: &manage,
		DMPermission:             &dm,
		Options: []*discordgo.ApplicationCommandOption{
			sub("create", "Opens The Survey Creation Wizard", &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "The Name For This Survey",
				Required:    true,
				MaxLength:   model.MaxTitle,
			}),
			sub("edit", "Edit An Existing Survey", template("The Survey To Edit")),
			sub("delete", "Delete A Survey", template("The Survey To Delete")),
			sub("send", "Send A Survey To This Channel",
				template("The Survey Template To Send"),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "A Message To Accompany The Survey",
				},
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration_override",
					Description: "An Override For The Default Time Of The Template",
				},
			),
			sub("close", "End A Running Survey Now", &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The Id Of The Running Survey",
				Required:    true,
			}),
			sub("results", "View The Results And Responses Of A Survey",
				template("The Survey To See The Results Of"),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "grouped",
					Description: "How Should The Results Be Grouped",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "By Question", Value: "0"},
						{Name: "By Response", Value: "1"},
					},
				},
			),
			sub("export", "Get A Download Link For The Responses Of A Survey", template("The Survey To Export")),
			sub("ping", "Check The Latency Of The Bot"),
			sub("info", "About Survey Wolf"),
		},
	}}
}

type arguments map[string]*discordgo.ApplicationCommandInteractionDataOption

func parseArguments(options []*discordgo.ApplicationCommandInteractionDataOption) arguments {
	args := make(arguments, len(options))
	for _, o := range options {
		args[o.Name] = o
	}
	return args
}

func (a arguments) str(name string) string {
	o, ok := a[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return o.StringValue()
}

func (a arguments) integer(name string) (int64, bool) {
	o, ok := a[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return o.IntValue(), true
}

func (b *Bot) command(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	if data.Name != commandName || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	args := parseArguments(sub.Options)
	c := caller(i)
	log.WithFields(log.Fields{"guild": c.GuildID, "user": c.UserID, "command": sub.Name}).Debug("discord.command")

	ctx := b.ctx
	switch sub.Name {
	case "create", "edit", "delete":
		conv, h := b.converse(i, interact.Command)
		var err error
		switch sub.Name {
		case "create":
			err = b.svc.Create(ctx, h, c, args.str("name"))
		case "edit":
			err = b.svc.Edit(ctx, h, c, args.str("survey"))
		case "delete":
			err = b.svc.Delete(ctx, h, c, args.str("survey"))
		}
		b.ended(conv, err)

	case "send":
		sv, err := b.svc.Send(ctx, c, args.str("survey"), args.str("message"), args.str("duration_override"))
		if err != nil {
			b.fail(i, "survey.send", err)
			return
		}
		b.notify(i, interact.Notice{
			Kind:  interact.Success,
			Title: "Success!",
			Body:  fmt.Sprintf("The Survey Was Started (id `%d`)", sv.ID),
		})

	case "close":
		id, _ := args.integer("id")
		closed, err := b.svc.Close(ctx, c, id)
		if err != nil {
			b.fail(i, "survey.close", err)
			return
		}
		b.notify(i, closeNotice(closed))

	case "results":
		grouping := survey.ByQuestion
		if args.str("grouped") == "1" {
			grouping = survey.ByResponse
		}
		r, err := b.svc.Results(ctx, c, args.str("survey"), grouping)
		if err != nil {
			b.fail(i, "survey.results", err)
			return
		}
		b.notify(i, r.Notices()...)

	case "export":
		url, err := b.svc.ExportLink(ctx, c, args.str("survey"))
		if err != nil {
			b.fail(i, "survey.export", err)
			return
		}
		b.notify(i, interact.Notice{
			Kind:  interact.Success,
			Title: "Success!",
			Body:  fmt.Sprintf("[Download The Responses](%s)\nThe Link Expires Soon. Add `&format=csv` To It For A Spreadsheet.", url),
		})

	case "ping":
		b.notify(i, pingNotice(b.latency()))

	case "info":
		b.notify(i, infoNotice())
	}
}

// closeNotice reports a close. Closing a survey that already ended still
// succeeds, the survey is closed either way.
func closeNotice(closed bool) interact.Notice {
	n := interact.Notice{Kind: interact.Success, Title: "Success!", Body: "The Survey Was Closed"}
	if !closed {
		n.Body = "The Survey Had Already Ended"
	}
	return n
}

func pingNotice(latency time.Duration) interact.Notice {
	n := interact.Notice{Kind: interact.Info, Title: "Pong!", Body: "Latency Not Measured Yet"}
	if latency > 0 {
		n.Body = fmt.Sprintf("Heartbeat Latency: %d ms", latency.Milliseconds())
	}
	return n
}

func infoNotice() interact.Notice {
	return interact.Notice{
		Kind:  interact.Info,
		Title: "Survey Wolf",
		Body: "Survey Wolf creates and hosts surveys right inside Discord. Build a survey with `/survey create`, " +
			"send it to a channel with `/survey send` and read the answers with `/survey results` or `/survey export`.",
		Items: []string{
			"**Questions**: Text, Multiple Choice, Date, Time And Duration",
			fmt.Sprintf("**Technical**: Written In Go (%s) With discordgo v%s", runtime.Version(), discordgo.VERSION),
		},
	}
}

// fail answers i with the notice describing err.
func (b *Bot) fail(i *discordgo.Interaction, op string, err error) {
	n := survey.Describe(err)
	if n.Kind == interact.Error {
		log.WithError(err).Errorf("%s: failed", op)
	} else {
		log.WithError(err).Debugf("%s: refused", op)
	}
	b.notify(i, n)
}

// autocomplete suggests the template titles of the guild matching what was
// typed so far.
func (b *Bot) autocomplete(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	var typed string
	if len(data.Options) > 0 {
		for _, o := range data.Options[0].Options {
			if o.Focused {
				typed, _ = o.Value.(string)
			}
		}
	}

	titles, err := b.svc.Titles(b.ctx, i.GuildID, typed)
	if err != nil {
		log.WithError(err).Warn("discord.autocomplete")
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(titles))
	for n, t := range titles {
		choices[n] = &discordgo.ApplicationCommandOptionChoice{Name: t, Value: t}
	}
	err = b.client.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.WithError(err).Debug("discord.autocomplete.respond")
	}
}
