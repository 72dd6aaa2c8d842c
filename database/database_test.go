package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surveys.sqlite")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"template", "questions", "active_guild_surveys", "responses", "question_response"} {
		var name string
		err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var fk bool
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.True(t, fk)
}

func TestOpenTwiceIsNoChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surveys.sqlite")

	db, err := Open(path)
	require.NoError(t, err)
	db.Close()

	db, err = Open(path)
	require.NoError(t, err)
	db.Close()
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:a.sqlite?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000", dsn("a.sqlite"))
	assert.Equal(t, "file:a.sqlite?mode=rwc&_txlock=immediate&_foreign_keys=on&_busy_timeout=5000", dsn("file:a.sqlite?mode=rwc"))
}
