package app

import (
	"database/sql"

	"github.com/mbolis/survey-wolf/config"
	"github.com/mbolis/survey-wolf/httpx"
	"github.com/mbolis/survey-wolf/survey"
)

type App struct {
	*sql.DB
	Surveys *survey.Service
	Tokens  *httpx.Tokens
	config.Config
}
