package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	PublicURL   string
	DBUrl       string
	RedisAddr   string
	CacheSize   int
	BotToken    string
	AppID       string
	DevGuildID  string
	IDKey       string
	TokenSecret string
	TokenTTL    time.Duration
	StepTimeout time.Duration
	Debug       bool
}

// ParseFlags reads command line flags. Every flag falls back to an environment
// variable, which may come from a .env file in the working directory.
func ParseFlags() (cfg Config, err error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	// a missing .env is fine, the process environment is used as is
	_ = godotenv.Load()

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("PORT", 8080), "listen port number")
	fs.StringVar(&cfg.PublicURL, "public-url", env("PUBLIC_URL", ""), "base URL used in export links (default derived from host and port)")
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "surveys.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", env("REDIS_ADDR", ""), "Redis address for the template cache (in-process LRU when empty)")
	var cacheSize uint
	fs.UintVar(&cacheSize, "cache-size", envUint("CACHE_SIZE", 256), "number of templates kept by the in-process cache")
	fs.StringVar(&cfg.BotToken, "discord-token", env("DISCORD_TOKEN", ""), "Discord bot token")
	fs.StringVar(&cfg.AppID, "discord-app-id", env("DISCORD_APP_ID", ""), "Discord application id")
	fs.StringVar(&cfg.DevGuildID, "discord-guild-id", env("DISCORD_GUILD_ID", ""), "register commands in this guild only")
	fs.StringVar(&cfg.IDKey, "id-key", env("ID_KEY", ""), "key for user id pseudonymization (ids stored as is when empty)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for export token signing")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("TOKEN_TTL", 900), "export token TTL in seconds")
	var step uint
	fs.UintVar(&step, "step-timeout", envUint("STEP_TIMEOUT", 600), "seconds to wait for a user on each survey step")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG"), "log at DEBUG level")
	err = fs.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.CacheSize = int(cacheSize)
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.StepTimeout = time.Duration(step) * time.Second
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.Url()
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")

	switch {
	case cfg.BotToken == "":
		err = errors.New("missing parameter -discord-token")
	case cfg.AppID == "":
		err = errors.New("missing parameter -discord-app-id")
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint(n)
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
