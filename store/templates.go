package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/question"
)

type Templates struct {
	db *sql.DB
}

// Stats are the counts shown before a template is deleted.
type Stats struct {
	Questions int
	Responses int
}

// Save inserts t when it has no id, or updates it when t.Version is still the
// stored one. Question positions are renumbered, questions missing from t are
// deleted and new ones get their ids.
func (s *Templates) Save(ctx context.Context, t *model.Template) (err error) {
	t.Renumber()

	// ids handed out by a rolled back transaction must not stick
	id, version := t.ID, t.Version
	qids := make([]int64, len(t.Questions))
	for i, q := range t.Questions {
		qids[i] = q.Common().ID
	}
	defer func() {
		if err == nil {
			return
		}
		t.ID, t.Version = id, version
		for i, q := range t.Questions {
			q.Common().ID = qids[i]
		}
		t.Renumber()
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	var (
		duration   sql.NullInt64
		maxEntries sql.NullInt64
	)
	if t.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*t.Duration / time.Second), Valid: true}
	}
	if t.MaxEntries != nil {
		maxEntries = sql.NullInt64{Int64: int64(*t.MaxEntries), Valid: true}
	}

	if t.ID == 0 {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO template (guild_id, title, description, anonymity, entries_per_user, duration, max_entries, editable, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
			RETURNING id, version`,
			t.GuildID, t.Title, t.Description, t.Anonymity, t.EntriesPerUser, duration, maxEntries, t.Editable,
		).Scan(&t.ID, &t.Version)
		if err != nil {
			if isUnique(err) {
				return ErrDuplicateTitle
			}
			return fmt.Errorf("db.insert_template: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE template
			SET
				title = ?,
				description = ?,
				anonymity = ?,
				entries_per_user = ?,
				duration = ?,
				max_entries = ?,
				editable = ?,
				version = version+1
			WHERE id = ?
				AND version = ?`,
			t.Title, t.Description, t.Anonymity, t.EntriesPerUser, duration, maxEntries, t.Editable,
			t.ID, t.Version,
		)
		if err != nil {
			if isUnique(err) {
				return ErrDuplicateTitle
			}
			return fmt.Errorf("db.update_template: %w", err)
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db.update_template.verify: %w", err)
		}
		if n < 1 {
			var exists bool
			err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM template WHERE id = ?)`, t.ID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("db.update_template.exists: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrConflict
		}
		t.Version++
	}
	t.Renumber()

	if err = saveQuestions(ctx, tx, t); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("db.save_template.commit: %w", err)
	}
	return nil
}

func saveQuestions(ctx context.Context, tx *sql.Tx, t *model.Template) error {
	stored := map[int64]question.Type{}
	rows, err := tx.QueryContext(ctx, `SELECT id, type FROM questions WHERE template_id = ?`, t.ID)
	if err != nil {
		return fmt.Errorf("db.save_template.questions: %w", err)
	}
	for rows.Next() {
		var (
			id  int64
			typ question.Type
		)
		if err = rows.Scan(&id, &typ); err != nil {
			rows.Close()
			return fmt.Errorf("db.save_template.questions.scan: %w", err)
		}
		stored[id] = typ
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("db.save_template.questions: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (template_id, position, type, title, description, required, question_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("db.save_template.insert.prepare: %w", err)
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `
		UPDATE questions
		SET position = ?, title = ?, description = ?, required = ?, question_data = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("db.save_template.update.prepare: %w", err)
	}
	defer update.Close()

	keep := make(map[int64]bool, len(t.Questions))
	for _, q := range t.Questions {
		row, err := question.ToRow(q)
		if err != nil {
			return fmt.Errorf("question %q: %w", q.Common().Title, err)
		}

		if row.ID == 0 {
			err = insert.QueryRowContext(ctx,
				t.ID, row.Position, row.Type, row.Title, row.Description, row.Required, string(row.Data),
			).Scan(&q.Common().ID)
			if err != nil {
				return fmt.Errorf("db.save_template.insert: %w", err)
			}
			keep[q.Common().ID] = true
			continue
		}

		typ, ok := stored[row.ID]
		if !ok {
			return fmt.Errorf("question %d: %w", row.ID, ErrNotFound)
		}
		if typ != row.Type {
			return fmt.Errorf("question %q: %w", row.Title, ErrTypeChange)
		}
		_, err = update.ExecContext(ctx, row.Position, row.Title, row.Description, row.Required, string(row.Data), row.ID)
		if err != nil {
			return fmt.Errorf("db.save_template.update: %w", err)
		}
		keep[row.ID] = true
	}

	for id := range stored {
		if keep[id] {
			continue
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("db.save_template.delete: %w", err)
		}
	}
	return nil
}

const templateColumns = `t.id, t.guild_id, t.title, t.description, t.anonymity, t.entries_per_user, t.duration, t.max_entries, t.editable, t.version`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*model.Template, error) {
	var (
		t          model.Template
		duration   sql.NullInt64
		maxEntries sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.GuildID, &t.Title, &t.Description, &t.Anonymity, &t.EntriesPerUser, &duration, &maxEntries, &t.Editable, &t.Version)
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		d := time.Duration(duration.Int64) * time.Second
		t.Duration = &d
	}
	if maxEntries.Valid {
		n := int(maxEntries.Int64)
		t.MaxEntries = &n
	}
	return &t, nil
}

// ByID loads a template with its questions in position order.
func (s *Templates) ByID(ctx context.Context, id int64) (*model.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM template t WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.get_template: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, position, type, title, description, required, question_data
		FROM questions
		WHERE template_id = ?
		ORDER BY position, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("db.get_template.questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r    question.Row
			data string
		)
		err = rows.Scan(&r.ID, &r.TemplateID, &r.Position, &r.Type, &r.Title, &r.Description, &r.Required, &data)
		if err != nil {
			return nil, fmt.Errorf("db.get_template.questions.scan: %w", err)
		}
		r.Data = []byte(data)
		q, err := question.FromRow(r)
		if err != nil {
			return nil, fmt.Errorf("db.get_template.questions.parse: %w", err)
		}
		t.Questions = append(t.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("db.get_template.questions: %w", err)
	}
	return t, nil
}

// IDByTitle finds the id of the template of guildID titled title.
func (s *Templates) IDByTitle(ctx context.Context, guildID, title string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM template WHERE guild_id = ? AND title = ?`, guildID, title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("db.get_template_id: %w", err)
	}
	return id, nil
}

func (s *Templates) ByTitle(ctx context.Context, guildID, title string) (*model.Template, error) {
	id, err := s.IDByTitle(ctx, guildID, title)
	if err != nil {
		return nil, err
	}
	return s.ByID(ctx, id)
}

// List returns the templates of a guild by title, without their questions.
func (s *Templates) List(ctx context.Context, guildID string) ([]*model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM template t WHERE t.guild_id = ? ORDER BY t.title`, guildID)
	if err != nil {
		return nil, fmt.Errorf("db.get_templates: %w", err)
	}
	defer rows.Close()

	templates := []*model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("db.get_templates.scan: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Templates) Stats(ctx context.Context, id int64) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM questions WHERE template_id = ?),
			(SELECT COUNT(*) FROM responses WHERE template_id = ?)`,
		id, id,
	).Scan(&st.Questions, &st.Responses)
	if err != nil {
		return st, fmt.Errorf("db.get_template_stats: %w", err)
	}
	return st, nil
}

// Delete removes a template together with its questions, surveys and responses.
func (s *Templates) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM template WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db.delete_template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db.delete_template.verify: %w", err)
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
