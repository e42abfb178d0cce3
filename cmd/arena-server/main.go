package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
	"agent-arena/internal/config"
	"agent-arena/internal/history"
	"agent-arena/internal/llm"
	"agent-arena/internal/logging"
	"agent-arena/internal/spectatorpush"
	"agent-arena/internal/store"
	httptransport "agent-arena/internal/transport/http"
	"agent-arena/migrations"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	app, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	cfg := app.Server

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := httptransport.Deps{}
	var repo history.Repository = history.NewMemoryRepository(1000)
	if cfg.PostgresDSN != "" {
		st, err := store.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		if cfg.AutoMigrate {
			if _, err := st.Migrate(ctx, migrations.FS); err != nil {
				log.Fatal().Err(err).Msg("db migrate failed")
			}
		}
		repo = st
		deps.DB = st
	} else {
		log.Warn().Msg("POSTGRES_DSN not set; game history is kept in memory")
	}
	hist := history.NewService(repo)

	agents := agent.FromRoster(app.Roster, agent.NewInMemoryStore(50))
	hub := chat.NewHub(1000)
	feed, cancelFeed := hub.Subscribe()
	defer cancelFeed()
	go agent.Feed(ctx, feed, agents)

	var client llm.Client
	if cfg.LLMAPIKey != "" {
		client = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	} else {
		log.Warn().Msg("LLM_API_KEY not set; agents reply with the offline client")
		client = llm.NewDumbClient(time.Now().UnixNano())
	}

	profiles := arena.NewProfiles(app.Profiles)
	contexts := arena.NewContextManager(agents, profiles)
	gen := agent.NewGenerator(client, contexts)
	for _, a := range agents.All() {
		go agent.NewRunner(a, gen, contexts, hub).Run(ctx)
	}

	pool := arena.NewCommentaryPool(cfg.CommentaryWorkers, 64)
	pool.Start(ctx)
	defer pool.Stop()

	games := arena.NewOrchestrator(arena.Config{
		MoveTimeout:         time.Duration(cfg.MoveTimeoutSeconds) * time.Second,
		HintWindow:          time.Duration(cfg.HintWindowSeconds) * time.Second,
		IdleThreshold:       time.Duration(cfg.IdleThresholdSeconds) * time.Second,
		RepetitionThreshold: cfg.RiskRepetitionThreshold,
		AdvantageThreshold:  cfg.RiskAdvantageThreshold,
	}, arena.Deps{
		Directory: agents,
		Contexts:  contexts,
		Profiles:  profiles,
		Transport: hub,
		Responder: gen,
		Pool:      pool,
		Recorder:  hist,
	})

	pushCfg, err := spectatorpush.ConfigFromServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("spectator push config failed")
	}
	if pushCfg.Enabled {
		push := spectatorpush.NewManager(pushCfg)
		if err := push.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("spectator push start failed")
		}
		games.SetSessionObserver(push)
	}

	deps.Games = games
	deps.History = hist
	deps.Agents = agents
	deps.Hub = hub
	r := httptransport.NewRouter(deps, cfg)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Int("agents", len(agents.All())).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := games.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("game shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
