package survey

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/question"
	"github.com/mbolis/survey-wolf/store"
)

// expireTimeout bounds the work done when a timer fires.
const expireTimeout = 30 * time.Second

// Send starts a survey from the template titled title in the caller's
// channel. It runs for override when given, or the template duration.
func (s *Service) Send(ctx context.Context, c Caller, title, message, override string) (*model.ActiveSurvey, error) {
	var duration *time.Duration
	if override = strings.TrimSpace(override); override != "" {
		d, err := question.ParseDuration(override)
		if err != nil || d <= 0 {
			return nil, failf("You Entered A Value For `duration_override` But It Was Not Valid. " +
				"You Should Write The Time In This Format: `2 hours and 15 minutes`. " +
				"Abbreviations Like `min` Or `m` For Minutes Are Also Allowed.")
		}
		duration = &d
	}

	t, err := s.templateByTitle(ctx, c, title)
	if err != nil {
		return nil, err
	}
	if duration == nil {
		duration = t.Duration
	}
	if duration == nil {
		return nil, failf("You Must Set A `duration_override` If The Survey Does Not Have A Default Duration")
	}

	now := s.now()
	end := now.Add(*duration)
	sv := &model.ActiveSurvey{
		TemplateID: t.ID,
		GuildID:    c.GuildID,
		ChannelID:  c.ChannelID,
		EndsAt:     &end,
		CreatedAt:  now,
	}
	if err = s.store.Surveys.Create(ctx, sv); err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"guild": c.GuildID, "survey": sv.ID, "template": t.ID})

	if s.presenter != nil {
		msgID, err := s.presenter.Publish(ctx, sv, t, message)
		if err != nil {
			// nobody could take it anyway
			if _, cerr := s.store.Surveys.Close(ctx, sv.ID, s.now()); cerr != nil {
				logger.WithError(cerr).Error("survey.send.close")
			}
			return nil, err
		}
		sv.MessageID = msgID
		if err = s.store.Surveys.SetMessage(ctx, sv.ID, msgID); err != nil {
			logger.WithError(err).Warn("survey.send.set_message")
		}
	}

	s.arm(sv)
	logger.Infof("survey.send: running until %s", end.UTC().Format(time.RFC3339))
	return sv, nil
}

// Close ends a running survey of the caller's guild. It reports false when
// the survey had already ended.
func (s *Service) Close(ctx context.Context, c Caller, surveyID int64) (bool, error) {
	sv, err := s.store.Surveys.ByID(ctx, surveyID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sv.GuildID != c.GuildID) {
		return false, failf("No Running Survey With Id `%d` Found", surveyID)
	}
	if err != nil {
		return false, err
	}
	return s.shut(ctx, sv)
}

// Reload arms the timers of the surveys still running, after a restart.
// Surveys that ended while the bot was down are closed when next taken.
func (s *Service) Reload(ctx context.Context) (int, error) {
	live, err := s.store.Surveys.Live(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, sv := range live {
		s.arm(sv)
	}
	log.Infof("survey.reload: %d running surveys", len(live))
	return len(live), nil
}

func (s *Service) arm(sv *model.ActiveSurvey) {
	if sv.EndsAt == nil {
		return
	}
	s.timers.Arm(sv.ID, *sv.EndsAt, func() {
		ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
		defer cancel()
		if _, err := s.shut(ctx, sv); err != nil {
			log.WithError(err).Errorf("survey.expire: %d", sv.ID)
		}
	})
}

// shut closes sv if it is still open and takes it down from its channel.
func (s *Service) shut(ctx context.Context, sv *model.ActiveSurvey) (bool, error) {
	closed, err := s.store.Surveys.Close(ctx, sv.ID, s.now())
	if err != nil {
		return false, err
	}
	if closed {
		s.ended(ctx, sv)
	}
	return closed, nil
}

// ended cancels the timer of a survey just closed and disables its message.
func (s *Service) ended(ctx context.Context, sv *model.ActiveSurvey) {
	s.timers.Cancel(sv.ID)
	if s.presenter != nil && sv.MessageID != "" {
		if err := s.presenter.Disable(ctx, sv); err != nil {
			log.WithError(err).Warnf("survey.disable: %d", sv.ID)
		}
	}
	log.WithFields(log.Fields{"guild": sv.GuildID, "survey": sv.ID}).Info("survey closed")
}
