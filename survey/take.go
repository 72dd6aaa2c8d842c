package survey

import (
	"context"
	"errors"

	"github.com/mbolis/survey-wolf/engine"
	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/store"
)

// Take runs the caller through the survey surveyID and stores the answers.
func (s *Service) Take(ctx context.Context, h interact.Handle, c Caller, surveyID int64) error {
	next, err := s.take(ctx, h, c, surveyID)
	if err != nil {
		return s.finish(ctx, next, "survey.take", err)
	}
	if err = next.Reply(ctx, successNotice("You Have Completed The Survey!")); err != nil {
		log.WithError(err).Warn("survey.take.reply")
	}
	return nil
}

func (s *Service) take(ctx context.Context, h interact.Handle, c Caller, surveyID int64) (interact.Handle, error) {
	sv, err := s.store.Surveys.ByID(ctx, surveyID)
	if errors.Is(err, store.ErrNotFound) {
		return h, failf("This Survey No Longer Exists")
	}
	if err != nil {
		return h, err
	}
	if !sv.Open() {
		return h, store.ErrSurveyClosed
	}
	if sv.Expired(s.now()) {
		if _, err := s.shut(ctx, sv); err != nil {
			log.WithError(err).Error("survey.take.expire")
		}
		return h, store.ErrSurveyExpired
	}

	t, err := s.template(ctx, sv.TemplateID)
	if err != nil {
		return h, err
	}
	userID, err := s.ids.Transform(c.UserID)
	if err != nil {
		return h, err
	}

	// cheap checks before asking anything; Submit checks again
	taken, err := s.store.Responses.Attempts(ctx, sv.ID, userID)
	if err != nil {
		return h, err
	}
	if taken >= t.EntriesPerUser {
		return h, failf("You Have Taken The Survey The Maximum Amount Of Times (`%d`)", t.EntriesPerUser)
	}
	if t.MaxEntries != nil {
		count, err := s.store.Responses.Count(ctx, sv.ID)
		if err != nil {
			return h, err
		}
		if count >= *t.MaxEntries {
			if _, err := s.shut(ctx, sv); err != nil {
				log.WithError(err).Error("survey.take.max_entries")
			}
			return h, store.ErrMaxEntries
		}
	}

	answers, next, err := engine.Run(ctx, h, t.Title, t.Questions)
	if err != nil {
		return next, err
	}

	sub := store.Submission{
		SurveyID: sv.ID,
		UserID:   userID,
		Answers:  make(map[int64][]byte, len(answers)),
		At:       s.now(),
	}
	for i, a := range answers {
		payload, err := a.Payload()
		if err != nil {
			return next, err
		}
		sub.Answers[t.Questions[i].Common().ID] = payload
	}

	r, err := s.store.Responses.Submit(ctx, sub)
	switch {
	case errors.Is(err, store.ErrSurveyExpired), errors.Is(err, store.ErrMaxEntries):
		if _, serr := s.shut(ctx, sv); serr != nil {
			log.WithError(serr).Error("survey.take.close")
		}
		return next, err
	case err != nil:
		return next, err
	}
	if r.Closed {
		s.ended(ctx, sv)
	}

	log.WithFields(log.Fields{"guild": sv.GuildID, "survey": sv.ID, "attempt": r.Attempt}).Debug("survey.take: response stored")
	return next, nil
}
