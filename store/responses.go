package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mbolis/survey-wolf/model"
)

type Responses struct {
	db *sql.DB
}

// Submission is one completed attempt, ready to be stored.
type Submission struct {
	SurveyID int64
	UserID   string
	// Answers maps question ids to answer payloads. Skipped questions are absent.
	Answers map[int64][]byte
	At      time.Time
}

type Receipt struct {
	ResponseID int64
	Attempt    int
	// Closed is set when this submission filled the survey and closed it.
	Closed bool
}

// Submit stores a submission in a single transaction. The survey state, the
// attempt number and the entry caps are all read inside it, so two concurrent
// submissions can not both take the last slot.
func (s *Responses) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if sub.At.IsZero() {
		sub.At = time.Now()
	}
	sub.At = sub.At.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	var (
		templateID     int64
		endsAt         sql.NullTime
		closedAt       sql.NullTime
		entriesPerUser int
		maxEntries     sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT s.template_id, s.end_date, s.closed_at, t.entries_per_user, t.max_entries
		FROM active_guild_surveys s
		INNER JOIN template t ON (t.id = s.template_id)
		WHERE s.id = ?`,
		sub.SurveyID,
	).Scan(&templateID, &endsAt, &closedAt, &entriesPerUser, &maxEntries)
	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, ErrNotFound
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("db.submit.get_survey: %w", err)
	}
	if closedAt.Valid {
		return Receipt{}, ErrSurveyClosed
	}
	if endsAt.Valid && !sub.At.Before(endsAt.Time) {
		return Receipt{}, ErrSurveyExpired
	}

	var last int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(response_num), 0)
		FROM responses
		WHERE active_survey_id = ?
			AND user_id = ?`,
		sub.SurveyID, sub.UserID,
	).Scan(&last)
	if err != nil {
		return Receipt{}, fmt.Errorf("db.submit.attempts: %w", err)
	}
	r := Receipt{Attempt: last + 1}
	if r.Attempt > entriesPerUser {
		return Receipt{}, ErrEntryLimit
	}

	var count int64
	if maxEntries.Valid {
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses WHERE active_survey_id = ?`, sub.SurveyID).Scan(&count)
		if err != nil {
			return Receipt{}, fmt.Errorf("db.submit.count: %w", err)
		}
		if count >= maxEntries.Int64 {
			return Receipt{}, ErrMaxEntries
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO responses (user_id, response_num, active_survey_id, template_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		sub.UserID, r.Attempt, sub.SurveyID, templateID, sub.At,
	).Scan(&r.ResponseID)
	if err != nil {
		if isUnique(err) {
			return Receipt{}, ErrConflict
		}
		return Receipt{}, fmt.Errorf("db.submit.insert_response: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_response (response_id, question_id, answer)
		VALUES (?, ?, ?)`)
	if err != nil {
		return Receipt{}, fmt.Errorf("db.submit.insert_answers.prepare: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(sub.Answers))
	for id, payload := range sub.Answers {
		if len(payload) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, r.ResponseID, id, string(sub.Answers[id])); err != nil {
			return Receipt{}, fmt.Errorf("db.submit.insert_answers: %w", err)
		}
	}

	if maxEntries.Valid && count+1 >= maxEntries.Int64 {
		_, err = tx.ExecContext(ctx, `UPDATE active_guild_surveys SET closed_at = ? WHERE id = ?`, sub.At, sub.SurveyID)
		if err != nil {
			return Receipt{}, fmt.Errorf("db.submit.close_survey: %w", err)
		}
		r.Closed = true
	}

	if err = tx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("db.submit.commit: %w", err)
	}
	return r, nil
}

// Attempts returns how many times userID answered the survey.
func (s *Responses) Attempts(ctx context.Context, surveyID int64, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(response_num), 0)
		FROM responses
		WHERE active_survey_id = ?
			AND user_id = ?`,
		surveyID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db.get_attempts: %w", err)
	}
	return n, nil
}

func (s *Responses) Count(ctx context.Context, surveyID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses WHERE active_survey_id = ?`, surveyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db.count_responses: %w", err)
	}
	return n, nil
}

// ByTemplate returns every response to any survey sent from a template,
// oldest first, each with its answers.
func (s *Responses) ByTemplate(ctx context.Context, templateID int64) ([]*model.ResponseSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			r.id, r.user_id, r.response_num, r.active_survey_id, r.template_id, r.created_at,
			qr.question_id, qr.answer
		FROM responses r
		LEFT OUTER JOIN question_response qr ON (r.id = qr.response_id)
		WHERE r.template_id = ?
		ORDER BY r.created_at, r.id, qr.question_id`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("db.get_responses: %w", err)
	}
	defer rows.Close()

	sets := []*model.ResponseSet{}
	for rows.Next() {
		var (
			rs         model.ResponseSet
			questionID sql.NullInt64
			answer     sql.NullString
		)
		err = rows.Scan(&rs.ID, &rs.UserID, &rs.Attempt, &rs.SurveyID, &rs.TemplateID, &rs.CreatedAt, &questionID, &answer)
		if err != nil {
			return nil, fmt.Errorf("db.get_responses.scan: %w", err)
		}

		if n := len(sets); n == 0 || sets[n-1].ID != rs.ID {
			rs.CreatedAt = rs.CreatedAt.UTC()
			rs.Answers = []model.QuestionResponse{}
			sets = append(sets, &rs)
		}
		if questionID.Valid {
			last := sets[len(sets)-1]
			last.Answers = append(last.Answers, model.QuestionResponse{
				ResponseID: last.ID,
				QuestionID: questionID.Int64,
				Answer:     []byte(answer.String),
			})
		}
	}
	return sets, rows.Err()
}
