package survey

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/store"
)

// delete confirmation button ids
const (
	DeleteID = "delete"
	KeepID   = "keep"
)

// Create builds a new template titled title with the wizard and saves it.
func (s *Service) Create(ctx context.Context, h interact.Handle, c Caller, title string) error {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return s.finish(ctx, h, "survey.create", failf("The Survey Needs A Title"))
	case utf8.RuneCountInString(title) > model.MaxTitle:
		return s.finish(ctx, h, "survey.create", failf("The Title Can Be At Most %d Characters Long", model.MaxTitle))
	}

	_, err := s.store.Templates.IDByTitle(ctx, c.GuildID, title)
	switch {
	case err == nil:
		return s.finish(ctx, h, "survey.create", store.ErrDuplicateTitle)
	case !errors.Is(err, store.ErrNotFound):
		return s.finish(ctx, h, "survey.create", err)
	}

	return s.build(ctx, h, model.NewTemplate(c.GuildID, title), "survey.create")
}

// Edit changes a saved template with the wizard.
func (s *Service) Edit(ctx context.Context, h interact.Handle, c Caller, title string) error {
	t, err := s.templateByTitle(ctx, c, title)
	if err != nil {
		return s.finish(ctx, h, "survey.edit", err)
	}
	return s.build(ctx, h, t.Clone(), "survey.edit")
}

func (s *Service) build(ctx context.Context, h interact.Handle, t *model.Template, op string) error {
	save, next, err := NewWizard(t).Run(ctx, h)
	if err != nil {
		return s.finish(ctx, next, op, err)
	}
	if !save {
		return next.Reply(ctx, infoNotice("Cancelled", fmt.Sprintf("The **%s** Survey Was Not Saved", t.Title)))
	}

	if err = s.store.Templates.Save(ctx, t); err != nil {
		return s.finish(ctx, next, op, err)
	}
	s.invalidate(ctx, t.ID, t.Version)
	log.WithFields(log.Fields{"guild": t.GuildID, "template": t.ID, "version": t.Version}).Infof("%s: saved", op)

	n := successNotice("The Survey Was Saved")
	n.Items = []string{Overview(t)}
	return next.Reply(ctx, n)
}

// Delete removes a template after the caller confirms. Its running surveys
// are closed first.
func (s *Service) Delete(ctx context.Context, h interact.Handle, c Caller, title string) error {
	t, err := s.templateByTitle(ctx, c, title)
	if err != nil {
		return s.finish(ctx, h, "survey.delete", err)
	}
	st, err := s.store.Templates.Stats(ctx, t.ID)
	if err != nil {
		return s.finish(ctx, h, "survey.delete", err)
	}

	id, next, err := h.Ask(ctx, interact.Prompt{
		Notice: infoNotice(
			fmt.Sprintf("Are You Sure You Want To Delete %s?", t.Title),
			fmt.Sprintf("This Survey Has %d Questions And %d Responses. They Will All Be Deleted.", st.Questions, st.Responses),
		),
		Buttons: []interact.Button{
			{ID: KeepID, Label: "Cancel", Style: interact.StyleSuccess},
			{ID: DeleteID, Label: "DELETE", Style: interact.StyleDanger},
		},
	})
	if err != nil {
		return s.finish(ctx, next, "survey.delete", err)
	}
	if id != DeleteID {
		return next.Reply(ctx, successNotice(fmt.Sprintf("The **%s** Survey Was **NOT** Deleted", t.Title)))
	}

	surveys, err := s.store.Surveys.ByTemplate(ctx, t.ID)
	if err != nil {
		return s.finish(ctx, next, "survey.delete", err)
	}
	for _, sv := range surveys {
		if !sv.Open() {
			continue
		}
		if _, err := s.shut(ctx, sv); err != nil {
			log.WithError(err).Warnf("survey.delete.close: %d", sv.ID)
		}
	}

	if err = s.store.Templates.Delete(ctx, t.ID); err != nil {
		return s.finish(ctx, next, "survey.delete", err)
	}
	s.invalidate(ctx, t.ID, math.MaxInt)
	log.WithFields(log.Fields{"guild": t.GuildID, "template": t.ID}).Info("survey.delete: deleted")
	return next.Reply(ctx, successNotice(fmt.Sprintf("The **%s** Survey Was Deleted", t.Title)))
}

// Titles lists the template titles of a guild containing typed, for command
// autocompletion.
func (s *Service) Titles(ctx context.Context, guildID, typed string) ([]string, error) {
	list, err := s.store.Templates.List(ctx, guildID)
	if err != nil {
		return nil, err
	}
	typed = strings.ToLower(strings.TrimSpace(typed))
	titles := make([]string, 0, len(list))
	for _, t := range list {
		if len(titles) == interact.MaxPickerChoices {
			break
		}
		if strings.Contains(strings.ToLower(t.Title), typed) {
			titles = append(titles, t.Title)
		}
	}
	return titles, nil
}
