package httpx

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims of export tokens.
const (
	ClaimGuild    = "guild"
	ClaimTemplate = "template"
)

var ErrClaims = errors.New("token claims do not match the request")

// Tokens signs and verifies the short lived tokens of export links.
type Tokens struct {
	Auth      *jwtauth.JWTAuth
	ttl       time.Duration
	publicURL string
}

func NewTokens(secret string, ttl time.Duration, publicURL string) *Tokens {
	return &Tokens{
		Auth:      jwtauth.New("HS256", []byte(secret), nil, jwt.WithAcceptableSkew(30*time.Second)),
		ttl:       ttl,
		publicURL: publicURL,
	}
}

// ExportURL returns the link to download the responses of a template.
func (t *Tokens) ExportURL(guildID string, templateID int64) (string, error) {
	id := strconv.FormatInt(templateID, 10)
	claims := map[string]any{
		ClaimGuild:    guildID,
		ClaimTemplate: id,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)
	_, token, err := t.Auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("httpx.export_url: %w", err)
	}
	return fmt.Sprintf("%s/api/surveys/%s/responses?jwt=%s", t.publicURL, id, url.QueryEscape(token)), nil
}

// ExportClaims reads the guild and template an export token grants access to.
func ExportClaims(claims map[string]any) (guildID string, templateID int64, err error) {
	guildID, _ = claims[ClaimGuild].(string)
	tpl, _ := claims[ClaimTemplate].(string)
	if guildID == "" || tpl == "" {
		return "", 0, ErrClaims
	}
	templateID, err = strconv.ParseInt(tpl, 10, 64)
	if err != nil {
		return "", 0, ErrClaims
	}
	return guildID, templateID, nil
}
