package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/mbolis/survey-wolf/app"
	"github.com/mbolis/survey-wolf/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Get("/health", Health(app))
	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verify(app.Tokens.Auth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader),
			middlewares.Authenticated,
		)

		r.Get(`/surveys/{id:^\d+$}/responses`, GetSurveyResponses(app))
	})

	return api
}
