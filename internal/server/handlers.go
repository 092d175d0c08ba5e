package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/recruiter-agent/internal/agents"
	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// CreateJobResponse represents the response for POST /jobs
type CreateJobResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// SourceMoreResponse represents the response for POST /jobs/{id}/source-more
type SourceMoreResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NextCandidateResponse represents the response for GET /jobs/{id}/candidates.
// Candidate is null once the review queue is empty.
type NextCandidateResponse struct {
	Candidate *db.Candidate `json:"candidate"`
	Match     *db.Match     `json:"match,omitempty"`
	Message   string        `json:"message,omitempty"`
	Stats     *db.JobStats  `json:"stats"`
}

// AcceptResponse represents the response for PUT /candidates/{id}/accept
type AcceptResponse struct {
	Status     string      `json:"status"`
	Pitch      types.Pitch `json:"pitch"`
	OutreachID uuid.UUID   `json:"outreach_id"`
}

// RejectResponse represents the response for PUT /candidates/{id}/reject
type RejectResponse struct {
	Status        string                 `json:"status"`
	NextCandidate *db.CandidateWithMatch `json:"next_candidate"`
	Message       string                 `json:"message,omitempty"`
}

// SendOutreachResponse represents the response for POST /outreach/send
type SendOutreachResponse struct {
	Status          string `json:"status"`
	DeliveryMessage string `json:"delivery_message"`
}

const (
	acceptDraftRetrieved = "draft_retrieved"
	acceptDraftCreated   = "draft_created"
	noMoreCandidates     = "No more candidates available"
)

// handleCreateJob persists a job and schedules its first sourcing run
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.CreateJobRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if !s.allow(w, r, ratelimit.ActionCreateJob) {
		return
	}

	job, err := s.store.CreateJob(r.Context(), &db.JobInput{
		Title:           req.Title,
		Company:         req.Company,
		CompanyWebsite:  req.CompanyWebsite,
		Description:     req.Description,
		RequiredSkills:  req.RequiredSkills,
		ExperienceLevel: req.ExperienceLevel,
		Location:        req.Location,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	runID, err := s.runner.Submit(job.ID, s.cfg.InitialCount)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("run_id", runID.String()).
		Int("count", s.cfg.InitialCount).
		Msg("job created")

	s.jsonResponse(w, http.StatusAccepted, CreateJobResponse{
		JobID:   job.ID,
		Status:  "processing",
		Message: "Job created. Generating candidates...",
	})
}

// handleGetJob returns a job record
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleSourceMore schedules a smaller additional run for an existing job
func (s *Server) handleSourceMore(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	runID, err := s.runner.Submit(job.ID, s.cfg.SourceMoreCount)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("run_id", runID.String()).
		Int("count", s.cfg.SourceMoreCount).
		Msg("sourcing more candidates")

	s.jsonResponse(w, http.StatusAccepted, SourceMoreResponse{
		Status:  "sourcing",
		Message: "Generating new candidates...",
	})
}

// handlePipelineEvents streams a job's pipeline events until a terminal event,
// the end of the subscription or the client going away.
func (s *Server) handlePipelineEvents(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := s.events.Attach(job.ID)
	defer sub.Close()
	sse.Open()

	logger := s.logger.With().Str("job_id", job.ID.String()).Logger()
	logger.Debug().Msg("event stream attached")
	defer logger.Debug().Msg("event stream detached")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	for {
		ev, err := sub.Next(ctx, s.cfg.KeepAlive)
		if errors.Is(err, events.ErrIdle) {
			if err := sse.WriteComment("keepalive"); err != nil {
				return
			}
			continue
		}
		if err != nil {
			return
		}

		if err := sse.WriteData(ev); err != nil {
			logger.Debug().Err(err).Msg("event stream write failed")
			return
		}
		if ev.Type.IsTerminal() {
			return
		}
	}
}

// handleNextCandidate returns the best pending candidate with its match and the job stats
func (s *Server) handleNextCandidate(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	next, err := s.store.GetNextCandidate(r.Context(), jobID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	stats, err := s.store.GetJobStats(r.Context(), jobID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if next == nil {
		s.jsonResponse(w, http.StatusOK, NextCandidateResponse{Message: noMoreCandidates, Stats: stats})
		return
	}
	s.jsonResponse(w, http.StatusOK, NextCandidateResponse{
		Candidate: &next.Candidate,
		Match:     &next.Match,
		Stats:     stats,
	})
}

// handleCandidatesByStatus lists a job's candidates in one status, best score first
func (s *Server) handleCandidatesByStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	status := chi.URLParam(r, "status")
	if !db.ValidCandidateStatus(status) {
		s.handleError(w, r, &ErrValidation{Field: "status", Message: "unknown candidate status " + status})
		return
	}

	list, err := s.store.ListCandidatesByStatus(r.Context(), jobID, status)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if list == nil {
		list = []db.CandidateWithMatch{}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleStats returns aggregate counts for a job
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	stats, err := s.store.GetJobStats(r.Context(), jobID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// handleAcceptCandidate accepts a candidate and returns a draft pitch, promoting a
// pre-generated one when the pipeline already wrote it.
func (s *Server) handleAcceptCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate, err := s.lookupCandidate(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	candidate, err = s.store.UpdateCandidateStatus(ctx, candidate.ID, db.CandidateStatusAccepted)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if candidate == nil {
		s.handleError(w, r, &ErrNotFound{Resource: "Candidate"})
		return
	}

	existing, err := s.store.GetOutreachByCandidate(ctx, candidate.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if existing != nil {
		if existing.DeliveryStatus == db.DeliveryStatusGenerated {
			if err := s.store.UpdateOutreachStatus(ctx, existing.ID, db.DeliveryStatusDraft, nil, nil); err != nil {
				s.handleError(w, r, err)
				return
			}
		}
		s.logger.Debug().Str("candidate_id", candidate.ID.String()).Msg("using pre-generated pitch")
		s.jsonResponse(w, http.StatusOK, AcceptResponse{
			Status:     acceptDraftRetrieved,
			Pitch:      types.Pitch{Subject: existing.Subject, Body: existing.Body},
			OutreachID: existing.ID,
		})
		return
	}

	job, err := s.store.GetJob(ctx, candidate.JobID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if job == nil {
		s.handleError(w, r, &ErrNotFound{Resource: "Job"})
		return
	}
	match, err := s.store.GetMatchByCandidate(ctx, candidate.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if match == nil {
		s.handleError(w, r, errors.New("match data not found for candidate "+candidate.ID.String()))
		return
	}

	s.logger.Info().Str("candidate_id", candidate.ID.String()).Msg("generating pitch on demand")
	pitch, err := s.pitchWriter.CreatePitch(ctx, agents.JobBrief(job), agents.ProfileFromCandidate(candidate), agents.ResultFromMatch(match))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	outreach, err := s.store.CreateOutreach(ctx, &db.OutreachInput{
		JobID:          job.ID,
		CandidateID:    candidate.ID,
		Subject:        pitch.Subject,
		Body:           pitch.Body,
		DeliveryStatus: db.DeliveryStatusDraft,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, AcceptResponse{
		Status:     acceptDraftCreated,
		Pitch:      *pitch,
		OutreachID: outreach.ID,
	})
}

// handleRejectCandidate rejects a candidate and returns the next one to review
func (s *Server) handleRejectCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate, err := s.lookupCandidate(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if _, err := s.store.UpdateCandidateStatus(ctx, candidate.ID, db.CandidateStatusRejected); err != nil {
		s.handleError(w, r, err)
		return
	}

	next, err := s.store.GetNextCandidate(ctx, candidate.JobID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := RejectResponse{Status: "success", NextCandidate: next}
	if next == nil {
		resp.Message = noMoreCandidates
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleSendOutreach saves the recruiter's edits to a draft and delivers it
func (s *Server) handleSendOutreach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req types.SendOutreachRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	outreach, err := s.store.GetOutreach(ctx, req.OutreachID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if outreach == nil {
		s.handleError(w, r, &ErrNotFound{Resource: "Outreach record"})
		return
	}

	candidate, err := s.store.GetCandidate(ctx, outreach.CandidateID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if candidate == nil {
		s.handleError(w, r, &ErrNotFound{Resource: "Candidate"})
		return
	}
	// Only accepted candidates may be contacted, so refuse before anything is delivered
	if !db.CanTransition(candidate.Status, db.CandidateStatusContacted) {
		s.handleError(w, r, &db.TransitionError{From: candidate.Status, To: db.CandidateStatusContacted})
		return
	}

	if err := s.store.UpdateOutreachContent(ctx, outreach.ID, req.Subject, req.Body); err != nil {
		s.handleError(w, r, err)
		return
	}

	ok, message := s.mailer.Send(ctx, candidate.Email, req.Subject, req.Body)
	logger := s.logger.With().
		Str("outreach_id", outreach.ID.String()).
		Str("candidate_id", candidate.ID.String()).
		Logger()

	if !ok {
		logger.Warn().Str("delivery_message", message).Msg("outreach delivery failed")
		if err := s.store.UpdateOutreachStatus(ctx, outreach.ID, db.DeliveryStatusFailed, nil, &message); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, SendOutreachResponse{Status: "failed", DeliveryMessage: message})
		return
	}

	sentAt := time.Now().UTC()
	if err := s.store.UpdateOutreachStatus(ctx, outreach.ID, db.DeliveryStatusSent, &sentAt, nil); err != nil {
		s.handleError(w, r, err)
		return
	}
	if _, err := s.store.UpdateCandidateStatus(ctx, candidate.ID, db.CandidateStatusContacted); err != nil {
		s.handleError(w, r, err)
		return
	}
	logger.Info().Msg("outreach sent")

	s.jsonResponse(w, http.StatusOK, SendOutreachResponse{Status: "success", DeliveryMessage: message})
}

// lookupJob loads the job named by the id path parameter
func (s *Server) lookupJob(r *http.Request) (*db.Job, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ErrNotFound{Resource: "Job"}
	}
	return job, nil
}

// lookupCandidate loads the candidate named by the id path parameter
func (s *Server) lookupCandidate(r *http.Request) (*db.Candidate, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	candidate, err := s.store.GetCandidate(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, &ErrNotFound{Resource: "Candidate"}
	}
	return candidate, nil
}
