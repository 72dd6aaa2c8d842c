package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/model"
)

// embed colors
const (
	colorFail    = 0xD33033
	colorSuccess = 0x00FF00
	colorInfo    = 0x30D3D0
	colorError   = 0xFF0000
)

// Limits of message embeds.
const (
	maxEmbedTitle       = interact.MaxNoticeTitle
	maxEmbedDescription = interact.MaxNoticeBody
	maxEmbedFields      = interact.MaxNoticeItems
	maxEmbedsPerMessage = 10
	maxEmbedTotal       = interact.MaxNoticeSize
	maxComponentRows    = 5
)

// blank is the name of fields that only carry a value.
const blank = "\u200b"

func color(k interact.NoticeKind) int {
	switch k {
	case interact.Success:
		return colorSuccess
	case interact.Fail:
		return colorFail
	case interact.Error:
		return colorError
	}
	return colorInfo
}

func embed(n interact.Notice) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       interact.Truncate(n.Title, maxEmbedTitle),
		Description: interact.Truncate(n.Body, maxEmbedDescription),
		Color:       color(n.Kind),
	}
	for i, item := range n.Items {
		if i == maxEmbedFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  blank,
			Value: interact.Truncate(item, interact.MaxNoticeItemSize),
		})
	}
	if n.Kind == interact.Error {
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Report This To The Bot Maintainers"}
	}
	return e
}

func embedSize(e *discordgo.MessageEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	for _, f := range e.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	return n
}

// batchEmbeds groups embeds into messages within the per-message limits.
func batchEmbeds(embeds []*discordgo.MessageEmbed) [][]*discordgo.MessageEmbed {
	var (
		batches [][]*discordgo.MessageEmbed
		cur     []*discordgo.MessageEmbed
		size    int
	)
	for _, e := range embeds {
		n := embedSize(e)
		if len(cur) > 0 && (len(cur) == maxEmbedsPerMessage || size+n > maxEmbedTotal) {
			batches = append(batches, cur)
			cur, size = nil, 0
		}
		cur = append(cur, e)
		size += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// Custom ids of the components of a presentation are "<key>:<id>", where key
// names the conversation step waiting for them.
func customID(key, id string) string {
	return key + ":" + id
}

func splitCustomID(s string) (key, id string) {
	key, id, _ = strings.Cut(s, ":")
	return
}

const takePrefix = "take"

// takeID is the custom id of the button of a published survey. It outlives
// restarts, so it carries the survey id instead of a conversation key.
func takeID(surveyID int64) string {
	return customID(takePrefix, strconv.FormatInt(surveyID, 10))
}

func parseTakeID(s string) (int64, bool) {
	key, id := splitCustomID(s)
	if key != takePrefix {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

const (
	pickID = "pick"
	skipID = "skip"
)

func buttonStyle(s interact.Style) discordgo.ButtonStyle {
	switch s {
	case interact.StyleSecondary:
		return discordgo.SecondaryButton
	case interact.StyleSuccess:
		return discordgo.SuccessButton
	case interact.StyleDanger:
		return discordgo.DangerButton
	}
	return discordgo.PrimaryButton
}

// buttonRows lays buttons out in rows of five.
func buttonRows(key string, buttons []interact.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons) && len(rows) < maxComponentRows; start += interact.MaxButtonsPerRow {
		end := start + interact.MaxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    interact.Truncate(b.Label, 80),
				Style:    buttonStyle(b.Style),
				CustomID: customID(key, b.ID),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func pickerRows(key string, p interact.Picker) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(p.Choices))
	for i, c := range p.Choices {
		if i == interact.MaxPickerChoices {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       interact.Truncate(c.Label, interact.MaxChoiceLabel),
			Value:       c.Value,
			Description: interact.Truncate(c.Description, 100),
		})
	}
	lo, hi := p.MinValues, p.MaxValues
	if hi < 1 || hi > len(options) {
		hi = len(options)
	}
	if lo > hi {
		lo = hi
	}
	placeholder := "Select An Option"
	if hi > 1 {
		placeholder = fmt.Sprintf("Select %d To %d Options", lo, hi)
	}

	rows := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    customID(key, pickID),
				Placeholder: placeholder,
				MinValues:   &lo,
				MaxValues:   hi,
				Options:     options,
			},
		}},
	}
	if p.Skippable {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Skip", Style: discordgo.SecondaryButton, CustomID: customID(key, skipID)},
		}})
	}
	return rows
}

func modalRows(m interact.Modal) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(m.Fields))
	for i, f := range m.Fields {
		style := discordgo.TextInputShort
		if f.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    strconv.Itoa(i),
				Label:       interact.Truncate(f.Label, interact.MaxLabel),
				Style:       style,
				Placeholder: interact.Truncate(f.Placeholder, interact.MaxPlaceholder),
				Value:       interact.Truncate(f.Value, interact.MaxInputLength),
				Required:    f.Required,
				MinLength:   f.MinLength,
				MaxLength:   f.MaxLength,
			},
		}})
	}
	return rows
}

// modalValues reads the submitted values in field order.
func modalValues(data discordgo.ModalSubmitInteractionData, n int) []string {
	values := make([]string, n)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			input, ok := rc.(*discordgo.TextInput)
			if !ok {
				continue
			}
			if i, err := strconv.Atoi(input.CustomID); err == nil && i >= 0 && i < n {
				values[i] = input.Value
			}
		}
	}
	return values
}

// summary describes a running survey under its take button.
func summary(t *model.Template, sv *model.ActiveSurvey) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       interact.Truncate(t.Title, maxEmbedTitle),
		Description: interact.Truncate(t.Description, maxEmbedDescription),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Questions", Value: strconv.Itoa(len(t.Questions)), Inline: true},
			{Name: "Entries Per Person", Value: strconv.Itoa(t.EntriesPerUser), Inline: true},
		},
	}
	if t.MaxEntries != nil {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Total Entries", Value: strconv.Itoa(*t.MaxEntries), Inline: true})
	}
	if sv.EndsAt != nil {
		unix := sv.EndsAt.Unix()
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Ends", Value: fmt.Sprintf("<t:%d:f> (<t:%d:R>)", unix, unix)})
		e.Timestamp = sv.EndsAt.UTC().Format(time.RFC3339)
	}
	return e
}
