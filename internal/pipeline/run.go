// Package pipeline drives a job's candidates through sourcing, matching and pitch pre-generation
// in batches, reporting progress as events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recruiter-agent/internal/agents"
	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Defaults for a pipeline run
const (
	DefaultBatchSize      = 5
	DefaultPitchThreshold = 75.0
	DefaultBatchPause     = 100 * time.Millisecond
)

var (
	// ErrEmptyBatch is returned when the sourcing agent produces no candidates for a batch
	ErrEmptyBatch = errors.New("sourcing agent returned no candidates")
	// ErrStagePanic wraps a panic raised by a stage adapter
	ErrStagePanic = errors.New("stage adapter panicked")
)

// Store is the persistence the orchestrator writes through
type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error)
	CreateCandidate(ctx context.Context, input *db.CandidateInput) (*db.Candidate, error)
	CreateMatch(ctx context.Context, input *db.MatchInput) (*db.Match, error)
	CreateOutreach(ctx context.Context, input *db.OutreachInput) (*db.Outreach, error)
}

// Emitter receives pipeline progress events
type Emitter interface {
	Emit(jobID uuid.UUID, e events.Event)
}

// Agents bundles the stage adapters a run calls
type Agents struct {
	Sourcer     agents.Sourcer
	Matcher     agents.Matcher
	PitchWriter agents.PitchWriter
}

// Recorder observes pipeline work, typically for metrics
type Recorder interface {
	StageCompleted(agent string, d time.Duration, err error)
	CandidatesSourced(n int)
	PitchGenerated(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) StageCompleted(string, time.Duration, error) {}
func (nopRecorder) CandidatesSourced(int)                       {}
func (nopRecorder) PitchGenerated(bool)                         {}

// Options holds configuration for running the pipeline
type Options struct {
	BatchSize      int
	PitchThreshold float64
	// PitchConcurrency bounds concurrent pitch generation within a batch; 0 means unbounded
	PitchConcurrency int
	BatchPause       time.Duration
}

// DefaultOptions returns the standard pipeline options
func DefaultOptions() Options {
	return Options{
		BatchSize:      DefaultBatchSize,
		PitchThreshold: DefaultPitchThreshold,
		BatchPause:     DefaultBatchPause,
	}
}

// Summary describes a completed run
type Summary struct {
	JobID    uuid.UUID
	Total    int
	Sourced  int
	Matched  int
	Pitches  int
	Batches  int
	Duration time.Duration
}

// Orchestrator runs the batch pipeline for one job at a time. It is safe for concurrent runs.
type Orchestrator struct {
	store    Store
	emitter  Emitter
	agents   Agents
	opts     Options
	logger   zerolog.Logger
	recorder Recorder
}

// NewOrchestrator creates an orchestrator. Zero-valued options fall back to defaults.
func NewOrchestrator(store Store, emitter Emitter, a Agents, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PitchThreshold <= 0 {
		opts.PitchThreshold = DefaultPitchThreshold
	}
	if opts.BatchPause < 0 {
		opts.BatchPause = 0
	}
	return &Orchestrator{
		store:    store,
		emitter:  emitter,
		agents:   a,
		opts:     opts,
		logger:   logger,
		recorder: nopRecorder{},
	}
}

// SetRecorder installs a recorder for stage and pitch observations
func (o *Orchestrator) SetRecorder(r Recorder) {
	if r != nil {
		o.recorder = r
	}
}

// Run sources total candidates for jobID in batches. A missing job is a silent no-op and
// returns (nil, nil). Any other failure is reported as a pipeline_error event and returned.
// A panicking stage adapter ends the run the same way, wrapped in ErrStagePanic.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, total int) (summary *Summary, err error) {
	logger := o.logger.With().Str("job_id", jobID.String()).Logger()
	if id, ok := runIDFromContext(ctx); ok {
		logger = logger.With().Str("run_id", id.String()).Logger()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
			o.fail(jobID, logger, err)
		}
	}()
	return o.run(ctx, jobID, total, logger)
}

func (o *Orchestrator) run(ctx context.Context, jobID uuid.UUID, total int, logger zerolog.Logger) (*Summary, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		o.fail(jobID, logger, fmt.Errorf("failed to load job: %w", err))
		return nil, err
	}
	if job == nil {
		logger.Warn().Msg("job not found, skipping pipeline")
		return nil, nil
	}

	start := time.Now()
	logger.Info().Str("title", job.Title).Int("total", total).Msg("starting pipeline")
	o.emit(jobID, events.Event{
		Type:    events.TypePipelineStart,
		Total:   total,
		Message: fmt.Sprintf("Starting pipeline for %d candidates...", total),
	})

	summary := &Summary{JobID: jobID, Total: total}
	brief := agents.JobBrief(job)

	for summary.Sourced < total {
		if err := o.runBatch(ctx, job, brief, summary, logger); err != nil {
			o.fail(jobID, logger, err)
			return summary, err
		}
		summary.Batches++

		if err := pause(ctx, o.opts.BatchPause); err != nil {
			o.fail(jobID, logger, err)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	logger.Info().
		Int("sourced", summary.Sourced).
		Int("matched", summary.Matched).
		Int("pitches", summary.Pitches).
		Dur("duration", summary.Duration).
		Msg("pipeline complete")
	o.emit(jobID, events.Event{
		Type:    events.TypePipelineComplete,
		Total:   total,
		Message: "All candidates ready for review",
	})
	return summary, nil
}

// runBatch sources, persists, ranks and pre-pitches one batch, advancing summary.
func (o *Orchestrator) runBatch(ctx context.Context, job *db.Job, brief types.JobBrief, summary *Summary, logger zerolog.Logger) error {
	total := summary.Total
	processed := summary.Sourced
	size := min(o.opts.BatchSize, total-processed)

	o.emit(job.ID, events.Event{
		Type:    events.TypeAgentStart,
		Agent:   events.AgentSourcing,
		Message: fmt.Sprintf("Sourcing batch %d–%d of %d...", processed+1, processed+size, total),
	})

	stageStart := time.Now()
	profiles, err := o.agents.Sourcer.GenerateCandidates(ctx, brief, size)
	if err == nil && len(profiles) == 0 {
		err = ErrEmptyBatch
	}
	o.recorder.StageCompleted(events.AgentSourcing, time.Since(stageStart), err)
	if err != nil {
		return fmt.Errorf("sourcing failed: %w", err)
	}
	if len(profiles) > size {
		profiles = profiles[:size]
	}

	candidates := make([]*db.Candidate, 0, len(profiles))
	for _, p := range profiles {
		c, err := o.store.CreateCandidate(ctx, agents.CandidateInput(job, p))
		if err != nil {
			return fmt.Errorf("failed to save candidate %q: %w", p.Name, err)
		}
		candidates = append(candidates, c)
	}
	o.recorder.CandidatesSourced(len(candidates))
	logger.Debug().Int("batch", summary.Batches+1).Int("candidates", len(candidates)).Msg("sourced batch")

	count := processed + len(candidates)
	o.emit(job.ID, events.Event{
		Type:    events.TypeAgentProgress,
		Agent:   events.AgentSourcing,
		Count:   count,
		Total:   total,
		Message: fmt.Sprintf("Sourced %d of %d candidates", count, total),
	})

	o.emit(job.ID, events.Event{
		Type:    events.TypeAgentStart,
		Agent:   events.AgentMatching,
		Message: fmt.Sprintf("Ranking %d candidates...", len(candidates)),
	})

	stageStart = time.Now()
	results, err := o.agents.Matcher.RankCandidates(ctx, brief, profiles)
	o.recorder.StageCompleted(events.AgentMatching, time.Since(stageStart), err)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	var selected []pitchTask
	matched := 0
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if r.CandidateIndex < 0 || r.CandidateIndex >= len(candidates) {
			logger.Warn().Int("candidate_index", r.CandidateIndex).Msg("discarding match for unknown candidate")
			continue
		}
		// a candidate is ranked once; later results for the same index are dropped
		if seen[r.CandidateIndex] {
			logger.Warn().Int("candidate_index", r.CandidateIndex).Msg("discarding duplicate match")
			continue
		}
		seen[r.CandidateIndex] = true
		c := candidates[r.CandidateIndex]
		if _, err := o.store.CreateMatch(ctx, &db.MatchInput{
			JobID:         job.ID,
			CandidateID:   c.ID,
			Score:         r.Score,
			KeyHighlights: r.KeyHighlights,
			FitReasoning:  r.FitReasoning,
			RankPosition:  r.RankPosition,
		}); err != nil {
			return fmt.Errorf("failed to save match for %q: %w", c.Name, err)
		}
		matched++
		if r.Score >= o.opts.PitchThreshold {
			selected = append(selected, pitchTask{candidate: c, profile: profiles[r.CandidateIndex], match: r})
		}
	}
	summary.Matched += matched

	o.emit(job.ID, events.Event{
		Type:    events.TypeAgentComplete,
		Agent:   events.AgentMatching,
		Count:   count,
		Total:   total,
		Message: fmt.Sprintf("Matched %d candidates in batch", matched),
	})

	if len(selected) > 0 {
		o.emit(job.ID, events.Event{
			Type:    events.TypeAgentStart,
			Agent:   events.AgentPitchWriter,
			Message: fmt.Sprintf("Pre-generating pitches for %d top candidates...", len(selected)),
		})

		stageStart = time.Now()
		written := o.pregeneratePitches(ctx, job, brief, selected, logger)
		o.recorder.StageCompleted(events.AgentPitchWriter, time.Since(stageStart), nil)
		summary.Pitches += written

		o.emit(job.ID, events.Event{
			Type:    events.TypeAgentComplete,
			Agent:   events.AgentPitchWriter,
			Count:   count,
			Total:   total,
			Message: fmt.Sprintf("Pitches ready for %d top candidates", written),
		})
	}

	summary.Sourced = count
	return nil
}

type pitchTask struct {
	candidate *db.Candidate
	profile   types.CandidateProfile
	match     types.MatchResult
}

// pregeneratePitches writes pitches for tasks concurrently and saves each as generated outreach.
// Failures are logged per candidate and never abort the batch. It returns the number saved.
func (o *Orchestrator) pregeneratePitches(ctx context.Context, job *db.Job, brief types.JobBrief, tasks []pitchTask, logger zerolog.Logger) int {
	saved := make([]bool, len(tasks))

	var g errgroup.Group
	if o.opts.PitchConcurrency > 0 {
		g.SetLimit(o.opts.PitchConcurrency)
	}
	for i, task := range tasks {
		g.Go(func() error {
			err := o.pregeneratePitch(ctx, job, brief, task)
			o.recorder.PitchGenerated(err == nil)
			if err != nil {
				logger.Error().Err(err).Str("candidate_id", task.candidate.ID.String()).Msg("pitch pre-generation failed")
				return nil
			}
			saved[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range saved {
		if ok {
			n++
		}
	}
	return n
}

func (o *Orchestrator) pregeneratePitch(ctx context.Context, job *db.Job, brief types.JobBrief, task pitchTask) (err error) {
	// runs on an errgroup goroutine, where an unrecovered panic would take the process down
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()

	pitch, err := o.agents.PitchWriter.CreatePitch(ctx, brief, task.profile, task.match)
	if err != nil {
		return err
	}
	_, err = o.store.CreateOutreach(ctx, &db.OutreachInput{
		JobID:          job.ID,
		CandidateID:    task.candidate.ID,
		Subject:        pitch.Subject,
		Body:           pitch.Body,
		DeliveryStatus: db.DeliveryStatusGenerated,
	})
	if err != nil {
		return fmt.Errorf("failed to save outreach: %w", err)
	}
	return nil
}

func (o *Orchestrator) fail(jobID uuid.UUID, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Msg("pipeline failed")
	o.emit(jobID, events.Event{
		Type:    events.TypePipelineError,
		Error:   err.Error(),
		Message: fmt.Sprintf("Pipeline failed: %v", err),
	})
}

func (o *Orchestrator) emit(jobID uuid.UUID, e events.Event) {
	if o.emitter != nil {
		o.emitter.Emit(jobID, e)
	}
}

// pause waits d, returning early with the context's error if ctx ends first
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
