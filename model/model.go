package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbolis/survey-wolf/question"
)

// Anonymity decides how respondents show up in results.
type Anonymity int

const (
	Private   Anonymity = 0
	Public    Anonymity = 1
	Protected Anonymity = 2
)

func (a Anonymity) String() string {
	switch a {
	case Private:
		return "private"
	case Public:
		return "public"
	case Protected:
		return "protected"
	}
	return fmt.Sprintf("anonymity(%d)", int(a))
}

func ParseAnonymity(s string) (Anonymity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "private", "0":
		return Private, nil
	case "public", "1":
		return Public, nil
	case "protected", "2":
		return Protected, nil
	}
	return 0, fmt.Errorf("%q is not one of private, public, protected", s)
}

const (
	MaxTitle          = 64
	MaxQuestions      = 25
	MaxEntriesPerUser = 20
	MaxEntries        = 20000
)

type Template struct {
	ID             int64               `json:"id"`
	GuildID        string              `json:"guild_id" validate:"required"`
	Title          string              `json:"title" validate:"required,max=64"`
	Description    string              `json:"description" validate:"max=4000"`
	Anonymity      Anonymity           `json:"anonymity" validate:"gte=0,lte=2"`
	EntriesPerUser int                 `json:"entries_per_user" validate:"gte=1,lte=20"`
	Duration       *time.Duration      `json:"duration,omitempty" validate:"omitempty,gt=0"`
	MaxEntries     *int                `json:"max_entries,omitempty" validate:"omitempty,gte=1,lte=20000"`
	Editable       bool                `json:"editable"`
	Version        int                 `json:"version"`
	Questions      []question.Question `json:"-" validate:"min=1,max=25"`
}

func NewTemplate(guildID, title string) *Template {
	return &Template{
		GuildID:        guildID,
		Title:          title,
		Anonymity:      Private,
		EntriesPerUser: 1,
	}
}

// Clone returns a deep copy that can be edited without touching t.
func (t *Template) Clone() *Template {
	c := *t
	if t.Duration != nil {
		d := *t.Duration
		c.Duration = &d
	}
	if t.MaxEntries != nil {
		n := *t.MaxEntries
		c.MaxEntries = &n
	}
	c.Questions = make([]question.Question, len(t.Questions))
	for i, q := range t.Questions {
		c.Questions[i] = q.Clone()
	}
	return &c
}

// Renumber makes positions dense and zero based, in slice order.
func (t *Template) Renumber() {
	for i, q := range t.Questions {
		b := q.Common()
		b.Position = i
		b.TemplateID = t.ID
	}
}

// Move moves the question at index from to index to.
func (t *Template) Move(from, to int) {
	if from < 0 || from >= len(t.Questions) || to < 0 || to >= len(t.Questions) || from == to {
		return
	}
	q := t.Questions[from]
	t.Questions = append(t.Questions[:from], t.Questions[from+1:]...)
	t.Questions = append(t.Questions[:to], append([]question.Question{q}, t.Questions[to:]...)...)
	t.Renumber()
}

func (t *Template) Remove(i int) {
	if i < 0 || i >= len(t.Questions) {
		return
	}
	t.Questions = append(t.Questions[:i], t.Questions[i+1:]...)
	t.Renumber()
}

func (t *Template) Question(id int64) (question.Question, bool) {
	for _, q := range t.Questions {
		if q.Common().ID == id {
			return q, true
		}
	}
	return nil, false
}

type ActiveSurvey struct {
	ID         int64      `json:"id"`
	TemplateID int64      `json:"template_id"`
	GuildID    string     `json:"guild_id"`
	ChannelID  string     `json:"channel_id"`
	MessageID  string     `json:"message_id"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s *ActiveSurvey) Open() bool {
	return s.ClosedAt == nil
}

// Expired reports whether the end time has passed, closed or not.
func (s *ActiveSurvey) Expired(now time.Time) bool {
	return s.EndsAt != nil && !now.Before(*s.EndsAt)
}

// ResponseSet is one attempt of one respondent.
type ResponseSet struct {
	ID         int64              `json:"id"`
	UserID     string             `json:"user_id"`
	Attempt    int                `json:"attempt"`
	SurveyID   int64              `json:"survey_id"`
	TemplateID int64              `json:"template_id"`
	CreatedAt  time.Time          `json:"created_at"`
	Answers    []QuestionResponse `json:"answers"`
}

type QuestionResponse struct {
	ResponseID int64  `json:"response_id"`
	QuestionID int64  `json:"question_id"`
	Answer     []byte `json:"answer"`
}
