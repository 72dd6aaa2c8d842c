package routes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-wolf/app"
	"github.com/mbolis/survey-wolf/httpx"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/store"
	"github.com/mbolis/survey-wolf/survey"
)

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.PingContext(r.Context()); err != nil {
			httpx.LogInternalError(w, "db.ping", err)
			return
		}
		render.JSON(w, r, map[string]any{"status": "ok"})
	}
}

// GetSurveyResponses serves the responses of the template named by the URL,
// as JSON or, with ?format=csv, as a spreadsheet.
func GetSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		_, claims, _ := jwtauth.FromContext(r.Context())
		guildID, granted, err := httpx.ExportClaims(claims)
		if err != nil || granted != templateID {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "export.claims")
			return
		}

		format := r.URL.Query().Get("format")
		if format != "" && format != "json" && format != "csv" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.format", "unknown format %q", format)
			return
		}

		export, err := app.Surveys.Export(r.Context(), guildID, templateID)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "export.get_template", templateID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "export.get_responses", err)
			return
		}

		if format == "csv" {
			if err := writeCSV(w, export); err != nil {
				log.WithError(err).Warn("export.write_csv")
			}
			return
		}
		render.JSON(w, r, export)
	}
}

func writeCSV(w http.ResponseWriter, e *survey.Export) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="survey-%d.csv"`, e.TemplateID))

	out := csv.NewWriter(w)
	header := append([]string{"respondent", "attempt", "survey_id", "submitted_at"}, e.Questions...)
	if err := out.Write(header); err != nil {
		return err
	}
	for _, row := range e.Rows {
		record := append([]string{
			row.Respondent,
			strconv.Itoa(row.Attempt),
			strconv.FormatInt(row.SurveyID, 10),
			row.SubmittedAt.UTC().Format(time.RFC3339),
		}, row.Answers...)
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
