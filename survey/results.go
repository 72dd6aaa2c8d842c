package survey

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mbolis/survey-wolf/identity"
	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/question"
	"github.com/mbolis/survey-wolf/store"
)

type Grouping int

const (
	ByQuestion Grouping = 0
	ByResponse Grouping = 1
)

// Section is one page of results: a question with its answers, or a
// response with its answers.
type Section struct {
	Title       string
	Description string
	Lines       []string
}

type Results struct {
	Template *model.Template
	Grouping Grouping
	Sections []Section
}

// Notices splits the sections into notices that each fit a message. A
// section too long for one notice is paged as "Title (1/3)".
func (r *Results) Notices() []interact.Notice {
	notices := make([]interact.Notice, 0, len(r.Sections))
	for _, sec := range r.Sections {
		notices = append(notices, sec.pages()...)
	}
	return notices
}

// pageSuffix is the room kept in titles for the page numbers.
const pageSuffix = len(" (000/000)")

func (sec Section) pages() []interact.Notice {
	title := interact.Truncate(sec.Title, interact.MaxNoticeTitle-pageSuffix)
	body := interact.Truncate(sec.Description, interact.MaxNoticeBody)
	head := pageSuffix + utf8.RuneCountInString(title)

	var pages []interact.Notice
	cur := interact.Notice{Kind: interact.Info, Body: body}
	size := head + utf8.RuneCountInString(body)
	for _, item := range chunk(sec.Lines, interact.MaxNoticeItemSize) {
		// one more for the name of the field holding the item
		n := utf8.RuneCountInString(item) + 1
		if len(cur.Items) > 0 && (len(cur.Items) == interact.MaxNoticeItems || size+n > interact.MaxNoticeSize) {
			pages = append(pages, cur)
			cur = interact.Notice{Kind: interact.Info}
			size = head
		}
		cur.Items = append(cur.Items, item)
		size += n
	}
	pages = append(pages, cur)

	for i := range pages {
		pages[i].Title = title
		if len(pages) > 1 {
			pages[i].Title = fmt.Sprintf("%s (%d/%d)", title, i+1, len(pages))
		}
	}
	return pages
}

// chunk joins lines into blocks of at most size characters. A single line
// longer than size is cut.
func chunk(lines []string, size int) []string {
	var (
		out []string
		sb  strings.Builder
	)
	for _, line := range lines {
		line = interact.Truncate(line, size)
		if sb.Len() > 0 && utf8.RuneCountInString(sb.String())+1+utf8.RuneCountInString(line) > size {
			out = append(out, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}

// Results collects the answers to every survey sent from the template titled title.
func (s *Service) Results(ctx context.Context, c Caller, title string, grouping Grouping) (*Results, error) {
	t, err := s.templateByTitle(ctx, c, title)
	if err != nil {
		return nil, err
	}
	sets, err := s.store.Responses.ByTemplate(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, failf("There Are No Responses To This Survey Yet")
	}

	who := s.respondents(t)
	r := &Results{Template: t, Grouping: grouping}
	switch grouping {
	case ByResponse:
		for n, rs := range sets {
			sec := Section{Title: fmt.Sprintf("Response %d", n+1), Description: who.label(rs.UserID, true)}
			if rs.Attempt > 1 {
				sec.Description += fmt.Sprintf(", attempt %d", rs.Attempt)
			}
			answers := answerMap(rs)
			for _, q := range t.Questions {
				payload, ok := answers[q.Common().ID]
				if !ok {
					continue
				}
				sec.Lines = append(sec.Lines, fmt.Sprintf("**%s**: %s", q.Common().Title, q.FormatAnswer(payload)))
			}
			r.Sections = append(r.Sections, sec)
		}
	default:
		r.Grouping = ByQuestion
		for _, q := range t.Questions {
			sum := q.Summary()
			sec := Section{Title: sum.Title, Description: sum.Body}
			for _, rs := range sets {
				payload, ok := answerMap(rs)[q.Common().ID]
				if !ok {
					continue
				}
				line := "- " + q.FormatAnswer(payload)
				if t.Anonymity != model.Private {
					line = fmt.Sprintf("- %s: %s", who.label(rs.UserID, true), q.FormatAnswer(payload))
				}
				sec.Lines = append(sec.Lines, line)
			}
			r.Sections = append(r.Sections, sec)
		}
	}
	return r, nil
}

func answerMap(rs *model.ResponseSet) map[int64][]byte {
	m := make(map[int64][]byte, len(rs.Answers))
	for _, a := range rs.Answers {
		m[a.QuestionID] = a.Answer
	}
	return m
}

// respondents names stored user ids according to the anonymity of a template.
type respondents struct {
	mode model.Anonymity
	rev  identity.Reverser
	seen map[string]int
}

func (s *Service) respondents(t *model.Template) *respondents {
	r := &respondents{mode: t.Anonymity, seen: map[string]int{}}
	r.rev, _ = s.ids.(identity.Reverser)
	return r
}

// label names userID. Mentions are for chat; exports get raw ids.
func (r *respondents) label(userID string, mention bool) string {
	switch r.mode {
	case model.Private:
		return "Anonymous"
	case model.Public:
		if r.rev != nil {
			if id, err := r.rev.Reverse(userID); err == nil {
				if mention {
					return "<@" + id + ">"
				}
				return id
			}
		}
	}
	n, ok := r.seen[userID]
	if !ok {
		n = len(r.seen) + 1
		r.seen[userID] = n
	}
	return fmt.Sprintf("Respondent #%d", n)
}

// Export is every response to a template, one row per response.
type Export struct {
	TemplateID int64       `json:"template_id"`
	Title      string      `json:"title"`
	Anonymity  string      `json:"anonymity"`
	Questions  []string    `json:"questions"`
	Rows       []ExportRow `json:"rows"`
}

type ExportRow struct {
	Respondent  string    `json:"respondent"`
	Attempt     int       `json:"attempt"`
	SurveyID    int64     `json:"survey_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	// Answers follow Questions; skipped questions are "".
	Answers []string `json:"answers"`
}

// Export collects the responses to the template id of guildID.
func (s *Service) Export(ctx context.Context, guildID string, templateID int64) (*Export, error) {
	t, err := s.template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if t.GuildID != guildID {
		return nil, store.ErrNotFound
	}
	sets, err := s.store.Responses.ByTemplate(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	e := &Export{
		TemplateID: t.ID,
		Title:      t.Title,
		Anonymity:  t.Anonymity.String(),
		Questions:  make([]string, len(t.Questions)),
		Rows:       make([]ExportRow, 0, len(sets)),
	}
	for i, q := range t.Questions {
		e.Questions[i] = q.Common().Title
	}

	who := s.respondents(t)
	for _, rs := range sets {
		answers := answerMap(rs)
		row := ExportRow{
			Respondent:  who.label(rs.UserID, false),
			Attempt:     rs.Attempt,
			SurveyID:    rs.SurveyID,
			SubmittedAt: rs.CreatedAt,
			Answers:     make([]string, len(t.Questions)),
		}
		for i, q := range t.Questions {
			row.Answers[i] = exportAnswer(q, answers[q.Common().ID])
		}
		e.Rows = append(e.Rows, row)
	}
	return e, nil
}

// exportAnswer renders dates as plain text instead of chat timestamps.
func exportAnswer(q question.Question, payload []byte) string {
	if dt, ok := q.(*question.DateTime); ok {
		return dt.ExportAnswer(payload)
	}
	return q.FormatAnswer(payload)
}

// ExportLink returns a signed link to download the responses of a template.
func (s *Service) ExportLink(ctx context.Context, c Caller, title string) (string, error) {
	if s.links == nil {
		return "", failf("Exports Are Not Enabled")
	}
	t, err := s.templateByTitle(ctx, c, title)
	if err != nil {
		return "", err
	}
	return s.links.ExportURL(c.GuildID, t.ID)
}
