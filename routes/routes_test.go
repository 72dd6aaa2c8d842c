package routes

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-wolf/app"
	"github.com/mbolis/survey-wolf/database"
	"github.com/mbolis/survey-wolf/httpx"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/question"
	"github.com/mbolis/survey-wolf/store"
	"github.com/mbolis/survey-wolf/survey"
	"github.com/mbolis/survey-wolf/timer"
)

type fixture struct {
	handler  http.Handler
	tokens   *httpx.Tokens
	template *model.Template
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "surveys.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	st := store.New(db)
	tmpl := model.NewTemplate("g1", "Lunch")
	mc := question.NewMultipleChoice("Dish")
	_, _ = mc.AddOption("Pizza")
	_, _ = mc.AddOption("Sushi")
	tmpl.Questions = []question.Question{question.NewText("Name"), mc}
	require.NoError(t, st.Templates.Save(ctx, tmpl))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sv := &model.ActiveSurvey{TemplateID: tmpl.ID, GuildID: "g1", ChannelID: "c1", CreatedAt: now}
	require.NoError(t, st.Surveys.Create(ctx, sv))
	_, err = st.Responses.Submit(ctx, store.Submission{
		SurveyID: sv.ID,
		UserID:   "u1",
		Answers: map[int64][]byte{
			tmpl.Questions[0].Common().ID: []byte(`{"text":"Ann"}`),
			tmpl.Questions[1].Common().ID: []byte(`{"selected":[1]}`),
		},
		At: now,
	})
	require.NoError(t, err)

	timers := timer.New()
	t.Cleanup(timers.Stop)
	svc := survey.New(survey.Deps{Store: st, Timers: timers})
	tokens := httpx.NewTokens("secret", time.Minute, "http://example.test")

	return &fixture{
		handler:  Wire(app.App{DB: db, Surveys: svc, Tokens: tokens}),
		tokens:   tokens,
		template: tmpl,
	}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func (f *fixture) link(t *testing.T, guildID string, templateID int64) string {
	t.Helper()
	link, err := f.tokens.ExportURL(guildID, templateID)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.RequestURI()
}

func TestHealth(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestResponsesJSON(t *testing.T) {
	f := setup(t)
	w := f.get(t, f.link(t, "g1", f.template.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var export survey.Export
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, "Lunch", export.Title)
	assert.Equal(t, []string{"Name", "Dish"}, export.Questions)
	require.Len(t, export.Rows, 1)
	assert.Equal(t, []string{"Ann", "Sushi"}, export.Rows[0].Answers)
	assert.Equal(t, "Anonymous", export.Rows[0].Respondent)
}

func TestResponsesCSV(t *testing.T) {
	f := setup(t)
	w := f.get(t, f.link(t, "g1", f.template.ID)+"&format=csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"respondent", "attempt", "survey_id", "submitted_at", "Name", "Dish"}, records[0])
	assert.Equal(t, "Anonymous", records[1][0])
	assert.Equal(t, "1", records[1][1])
	assert.Equal(t, "2024-05-01T12:00:00Z", records[1][3])
	assert.Equal(t, []string{"Ann", "Sushi"}, records[1][4:])
}

func TestResponsesUnknownFormat(t *testing.T) {
	f := setup(t)
	w := f.get(t, f.link(t, "g1", f.template.ID)+"&format=xml")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResponsesNeedToken(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/api/surveys/1/responses")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.get(t, "/api/surveys/1/responses?jwt=garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResponsesTokenFromHeader(t *testing.T) {
	f := setup(t)
	link, err := f.tokens.ExportURL("g1", f.template.ID)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, u.Path, nil)
	r.Header.Set("Authorization", "BEARER "+u.Query().Get("jwt"))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponsesExpiredToken(t *testing.T) {
	f := setup(t)
	expired := httpx.NewTokens("secret", -time.Hour, "http://example.test")
	link, err := expired.ExportURL("g1", f.template.ID)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	w := f.get(t, u.RequestURI())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResponsesTokenForOtherTemplate(t *testing.T) {
	f := setup(t)
	other := strconv.FormatInt(f.template.ID+1, 10)
	own := strconv.FormatInt(f.template.ID, 10)
	target := strings.Replace(f.link(t, "g1", f.template.ID+1), "/surveys/"+other+"/", "/surveys/"+own+"/", 1)
	w := f.get(t, target)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResponsesOtherGuild(t *testing.T) {
	f := setup(t)
	w := f.get(t, f.link(t, "g2", f.template.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResponsesUnknownTemplate(t *testing.T) {
	f := setup(t)
	w := f.get(t, f.link(t, "g1", f.template.ID+100))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
