package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/mbolis/survey-wolf/app"
	"github.com/mbolis/survey-wolf/cache"
	"github.com/mbolis/survey-wolf/config"
	"github.com/mbolis/survey-wolf/database"
	"github.com/mbolis/survey-wolf/discord"
	"github.com/mbolis/survey-wolf/httpx"
	"github.com/mbolis/survey-wolf/identity"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/routes"
	"github.com/mbolis/survey-wolf/store"
	"github.com/mbolis/survey-wolf/survey"
	"github.com/mbolis/survey-wolf/timer"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	templates, err := openCache(cfg)
	if err != nil {
		log.Fatal("main.cache:", err)
	}
	ids, err := identity.New(cfg.IDKey)
	if err != nil {
		log.Fatal("main.identity:", err)
	}

	tokens := httpx.NewTokens(cfg.TokenSecret, cfg.TokenTTL, cfg.PublicURL)
	timers := timer.New()
	defer timers.Stop()
	svc := survey.New(survey.Deps{
		Store:    store.New(db),
		Cache:    templates,
		Identity: ids,
		Timers:   timers,
		Links:    tokens,
	})

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatal("main.discord.session:", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	bot := discord.New(session, svc, discord.Options{
		AppID:       cfg.AppID,
		GuildID:     cfg.DevGuildID,
		StepTimeout: cfg.StepTimeout,
		Latency:     session.HeartbeatLatency,
	})
	defer bot.Close()
	svc.SetPresenter(bot)

	if err := session.Open(); err != nil {
		log.Fatal("main.discord.open:", err)
	}
	defer session.Close()
	if err := bot.Register(session); err != nil {
		log.Fatal("main.discord.register:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := svc.Reload(ctx)
	if err != nil {
		log.Fatal("main.reload:", err)
	}
	log.Infof("%d running surveys reloaded", n)

	handler := routes.Wire(app.App{
		DB:      db,
		Surveys: svc,
		Tokens:  tokens,
		Config:  cfg,
	})

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	log.Info("Shutting down")
}

func openCache(cfg config.Config) (cache.Templates, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.CacheSize)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Info("Caching templates in Redis at " + cfg.RedisAddr)
	return cache.NewRedis(client, time.Hour), nil
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.WithError(err).Warn("main.server.shutdown")
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
