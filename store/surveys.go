package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/survey-wolf/model"
)

type Surveys struct {
	db *sql.DB
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// Create stores a new open survey and sets its id.
func (s *Surveys) Create(ctx context.Context, sv *model.ActiveSurvey) error {
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now()
	}
	sv.CreatedAt = sv.CreatedAt.UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO active_guild_surveys (template_id, guild_id, channel_id, message_id, end_date, closed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		sv.TemplateID, sv.GuildID, sv.ChannelID, sv.MessageID, nullTime(sv.EndsAt), nullTime(sv.ClosedAt), sv.CreatedAt,
	).Scan(&sv.ID)
	if err != nil {
		return fmt.Errorf("db.insert_survey: %w", err)
	}
	return nil
}

const surveyColumns = `id, template_id, guild_id, channel_id, message_id, end_date, closed_at, created_at`

func scanSurvey(row scanner) (*model.ActiveSurvey, error) {
	var (
		sv       model.ActiveSurvey
		endsAt   sql.NullTime
		closedAt sql.NullTime
	)
	err := row.Scan(&sv.ID, &sv.TemplateID, &sv.GuildID, &sv.ChannelID, &sv.MessageID, &endsAt, &closedAt, &sv.CreatedAt)
	if err != nil {
		return nil, err
	}
	sv.EndsAt = timePtr(endsAt)
	sv.ClosedAt = timePtr(closedAt)
	sv.CreatedAt = sv.CreatedAt.UTC()
	return &sv, nil
}

func (s *Surveys) ByID(ctx context.Context, id int64) (*model.ActiveSurvey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM active_guild_surveys WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.get_survey: %w", err)
	}
	return sv, nil
}

func (s *Surveys) SetMessage(ctx context.Context, id int64, messageID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE active_guild_surveys SET message_id = ? WHERE id = ?`, messageID, id)
	if err != nil {
		return fmt.Errorf("db.update_survey.message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db.update_survey.message.verify: %w", err)
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

// Close marks the survey closed at the given time. It reports false when the
// survey was already closed.
func (s *Surveys) Close(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE active_guild_surveys
		SET closed_at = ?
		WHERE id = ?
			AND closed_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("db.close_survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db.close_survey.verify: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM active_guild_surveys WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db.close_survey.exists: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// Live returns the surveys that are not closed and whose end, if any, is after now.
func (s *Surveys) Live(ctx context.Context, now time.Time) ([]*model.ActiveSurvey, error) {
	open, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	live := open[:0]
	for _, sv := range open {
		if !sv.Expired(now) {
			live = append(live, sv)
		}
	}
	return live, nil
}

// Open returns every survey not marked closed, expired or not.
func (s *Surveys) Open(ctx context.Context) ([]*model.ActiveSurvey, error) {
	return s.list(ctx, `SELECT `+surveyColumns+` FROM active_guild_surveys WHERE closed_at IS NULL ORDER BY id`)
}

func (s *Surveys) ByTemplate(ctx context.Context, templateID int64) ([]*model.ActiveSurvey, error) {
	return s.list(ctx, `SELECT `+surveyColumns+` FROM active_guild_surveys WHERE template_id = ? ORDER BY id`, templateID)
}

func (s *Surveys) list(ctx context.Context, query string, args ...any) ([]*model.ActiveSurvey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db.get_surveys: %w", err)
	}
	defer rows.Close()

	surveys := []*model.ActiveSurvey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("db.get_surveys.scan: %w", err)
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}
