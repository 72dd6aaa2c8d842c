// Package store persists templates, active surveys and responses in SQLite.
package store

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("modified concurrently")
	ErrDuplicateTitle = errors.New("a survey with this title already exists")
	ErrTypeChange     = errors.New("the type of a saved question can not change")

	ErrSurveyClosed  = errors.New("survey closed")
	ErrSurveyExpired = errors.New("survey expired")
	ErrEntryLimit    = errors.New("entries per user reached")
	ErrMaxEntries    = errors.New("max entries reached")
)

type Store struct {
	Templates *Templates
	Surveys   *Surveys
	Responses *Responses
}

func New(db *sql.DB) *Store {
	return &Store{
		Templates: &Templates{db: db},
		Surveys:   &Surveys{db: db},
		Responses: &Responses{db: db},
	}
}

func isUnique(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
