package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/server"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts jobs, runs the sourcing pipeline in the background and streams its progress.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.close(shutdownCtx)
	}()

	srv, err := server.New(server.Config{
		Port:            cfg.Port,
		FrontendURL:     cfg.FrontendURL,
		InitialCount:    cfg.Pipeline.InitialCount,
		SourceMoreCount: cfg.Pipeline.SourceMoreCount,
		KeepAlive:       cfg.Events.KeepAlive,
	}, server.Deps{
		Store:       a.store,
		Runner:      a.runner,
		Events:      a.events,
		PitchWriter: a.pitchWriter,
		Mailer:      a.mailer,
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Metrics:     a.metrics,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
