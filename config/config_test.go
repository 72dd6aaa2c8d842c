package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFromEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_APP_ID", "123")
	t.Setenv("TOKEN_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("STEP_TIMEOUT", "30")

	cfg, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "http://localhost:9000", cfg.PublicURL)
	assert.Equal(t, 30*time.Second, cfg.StepTimeout)
	assert.Equal(t, 900*time.Second, cfg.TokenTTL)
	assert.Equal(t, "surveys.sqlite", cfg.DBUrl)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_APP_ID", "123")
	t.Setenv("TOKEN_SECRET", "s3cret")
	t.Setenv("DB_URL", "env.sqlite")

	cfg, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-db-url", "flag.sqlite",
		"-public-url", "https://surveys.example.org/",
	})
	require.NoError(t, err)

	assert.Equal(t, "flag.sqlite", cfg.DBUrl)
	assert.Equal(t, "https://surveys.example.org", cfg.PublicURL)
}

func TestParseRequiresSecrets(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_APP_ID", "123")
	t.Setenv("TOKEN_SECRET", "")

	_, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	assert.EqualError(t, err, "missing parameter -token-secret")
}
