package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/recruiter-agent/internal/agents"
	"github.com/jonathan/recruiter-agent/internal/config"
	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/logging"
	"github.com/jonathan/recruiter-agent/internal/metrics"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
)

// app holds the components shared by the serve and run commands
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	store       db.Store
	llm         llm.Client
	metrics     *metrics.Collector
	events      *events.Broadcaster
	runner      *pipeline.Runner
	agents      pipeline.Agents
	pitchWriter agents.PitchWriter
	mailer      agents.Mailer
}

// loadConfig reads the config file named by --config, then the environment
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.NewLogger(cfg.AppEnv, cfg.LogLevel), nil
}

// openStore connects to the configured backend, applying the schema for PostgreSQL
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (db.Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		return db.NewMemoryStore(), nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return database, nil
}

// newResearcher builds the company researcher used to personalise pitches, or nil when disabled
func newResearcher(cfg *config.Config, client llm.Client, logger zerolog.Logger) agents.CompanyResearcher {
	if !cfg.Research.Enabled {
		return nil
	}

	fetcherCfg := &fetch.CachedFetcherConfig{CacheTTL: cfg.Research.CacheTTL}
	if cfg.Research.Browser {
		fetcherCfg.Renderer = fetch.NewBrowserRenderer(0, logger)
	}
	return agents.NewWebResearcher(fetch.NewCachedFetcher(fetcherCfg), client, cfg.Research.CacheTTL, logger)
}

// buildApp wires storage, the model client, agents, metrics and the pipeline runner
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	llmConfig := llm.DefaultConfig()
	llmConfig.Provider = llm.Provider(cfg.LLMProvider)
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		llm:    client,
	}

	var broadcasterOpts []events.Option
	broadcasterOpts = append(broadcasterOpts, events.WithFinishedRetention(cfg.Events.FinishedRetention))
	if cfg.MetricsEnabled {
		a.metrics = metrics.NewCollector()
		broadcasterOpts = append(broadcasterOpts, events.WithRecorder(a.metrics))
	}
	a.events = events.NewBroadcaster(broadcasterOpts...)

	researcher := newResearcher(cfg, client, logger)
	a.pitchWriter = agents.NewLLMPitchWriter(client, researcher, logger)
	a.mailer = agents.NewMailer(agents.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	a.agents = pipeline.Agents{
		Sourcer:     agents.NewLLMSourcer(client, logger),
		Matcher:     agents.NewLLMMatcher(client, logger),
		PitchWriter: a.pitchWriter,
	}

	orch := pipeline.NewOrchestrator(store, a.events, a.agents, pipeline.Options{
		BatchSize:        cfg.Pipeline.BatchSize,
		PitchThreshold:   cfg.Pipeline.PitchThreshold,
		PitchConcurrency: cfg.Pipeline.PitchConcurrency,
		BatchPause:       cfg.Pipeline.BatchPause,
	}, logger)

	var observer pipeline.RunObserver
	if a.metrics != nil {
		orch.SetRecorder(a.metrics)
		observer = a.metrics
	}
	a.runner = pipeline.NewRunner(orch.Run, a.events, observer, logger)

	return a, nil
}

// close shuts down runs in flight and releases the store and model client
func (a *app) close(ctx context.Context) {
	if err := a.runner.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("pipeline runs did not stop before the shutdown deadline")
	}
	if err := a.llm.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close LLM client")
	}
	a.store.Close()
}
