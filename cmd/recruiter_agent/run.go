package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Create a job and stream its sourcing pipeline to the terminal",
	Long: `Creates a job, runs the sourcing -> matching -> pitch pipeline for it and prints each event as it happens,
followed by the job stats and the best candidates.

Configuration is read from --config and the environment; STORE_DRIVER=memory runs without a database.`,
	RunE: runPipelineCmd,
}

// runOptions holds the job described on the command line
type runOptions struct {
	title           string
	company         string
	website         string
	description     string
	descriptionFile string
	skills          []string
	level           string
	location        string
	count           int
}

var runOpts runOptions

func init() {
	runCommand.Flags().StringVarP(&runOpts.title, "title", "t", "", "Job title")
	runCommand.Flags().StringVarP(&runOpts.company, "company", "c", "", "Hiring company")
	runCommand.Flags().StringVar(&runOpts.website, "website", "", "Company website, researched to personalise pitches")
	runCommand.Flags().StringVarP(&runOpts.description, "description", "d", "", "Job description")
	runCommand.Flags().StringVar(&runOpts.descriptionFile, "description-file", "", "Read the job description from a file")
	runCommand.Flags().StringSliceVarP(&runOpts.skills, "skills", "s", nil, "Required skills (comma separated)")
	runCommand.Flags().StringVar(&runOpts.level, "level", "", "Experience level, e.g. senior")
	runCommand.Flags().StringVar(&runOpts.location, "location", "", "Job location")
	runCommand.Flags().IntVarP(&runOpts.count, "count", "n", 0, "Number of candidates to source (defaults to PIPELINE_INITIAL_COUNT)")

	rootCmd.AddCommand(runCommand)
}

// jobInput validates the options the same way POST /jobs validates its body
func (o runOptions) jobInput() (*db.JobInput, error) {
	description := o.description
	if o.descriptionFile != "" {
		data, err := os.ReadFile(o.descriptionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read description file: %w", err)
		}
		description = string(data)
	}

	req := types.CreateJobRequest{
		Title:           strings.TrimSpace(o.title),
		Company:         strings.TrimSpace(o.company),
		CompanyWebsite:  strings.TrimSpace(o.website),
		Description:     strings.TrimSpace(description),
		RequiredSkills:  o.skills,
		ExperienceLevel: o.level,
		Location:        o.location,
	}
	if err := validator.New().Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, fmt.Errorf("invalid job: %s is %s", strings.ToLower(ve[0].Field()), ve[0].Tag())
		}
		return nil, fmt.Errorf("invalid job: %w", err)
	}

	return &db.JobInput{
		Title:           req.Title,
		Company:         req.Company,
		CompanyWebsite:  req.CompanyWebsite,
		Description:     req.Description,
		RequiredSkills:  req.RequiredSkills,
		ExperienceLevel: req.ExperienceLevel,
		Location:        req.Location,
	}, nil
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	input, err := runOpts.jobInput()
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	count := runOpts.count
	if count <= 0 {
		count = cfg.Pipeline.InitialCount
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.close(shutdownCtx)
	}()

	return streamRun(ctx, a.store, a.events, a.runner, input, count, observability.NewPrinter(cmd.OutOrStdout()))
}

// streamRun creates the job, prints its events until the run ends and then prints a summary.
// It returns an error when the run reports pipeline_error.
func streamRun(ctx context.Context, store db.Store, broadcaster *events.Broadcaster, runner *pipeline.Runner,
	input *db.JobInput, count int, printer *observability.Printer) error {
	job, err := store.CreateJob(ctx, input)
	if err != nil {
		return err
	}
	printer.PrintJob(job)

	sub := broadcaster.Attach(job.ID)
	defer sub.Close()
	if _, err := runner.Submit(job.ID, count); err != nil {
		return err
	}

	var runErr error
	for {
		ev, err := sub.Next(ctx, 0)
		if errors.Is(err, events.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}

		printer.PrintEvent(ev)
		if ev.Type == events.TypePipelineError {
			runErr = fmt.Errorf("pipeline failed: %s", ev.Error)
		}
		if ev.Type.IsTerminal() {
			break
		}
	}
	runner.Wait()

	stats, err := store.GetJobStats(ctx, job.ID)
	if err != nil {
		return err
	}
	printer.PrintStats(stats)

	top, err := store.ListCandidatesByStatus(ctx, job.ID, db.CandidateStatusPending)
	if err != nil {
		return err
	}
	printer.PrintTopCandidates(top)

	return runErr
}
