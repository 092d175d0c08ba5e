package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for development and tests.
// It honours the same contract as DB, including the candidate lifecycle.
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[uuid.UUID]*Job
	candidates map[uuid.UUID]*Candidate
	matches    map[uuid.UUID]*Match // keyed by candidate ID
	outreach   map[uuid.UUID]*Outreach
	order      map[uuid.UUID]int64 // insertion sequence for candidates and outreach
	seq        int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:       make(map[uuid.UUID]*Job),
		candidates: make(map[uuid.UUID]*Candidate),
		matches:    make(map[uuid.UUID]*Match),
		outreach:   make(map[uuid.UUID]*Outreach),
		order:      make(map[uuid.UUID]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) nextSeq(id uuid.UUID) {
	s.seq++
	s.order[id] = s.seq
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

// CreateJob inserts a new job opening
func (s *MemoryStore) CreateJob(_ context.Context, input *JobInput) (*Job, error) {
	j := &Job{
		ID:              uuid.New(),
		Title:           input.Title,
		Company:         input.Company,
		CompanyWebsite:  input.CompanyWebsite,
		Description:     input.Description,
		RequiredSkills:  cloneStrings(input.RequiredSkills),
		ExperienceLevel: input.ExperienceLevel,
		Location:        input.Location,
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	out := *j
	return &out, nil
}

// GetJob retrieves a job by ID
func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *j
	return &out, nil
}

// CreateCandidate inserts a sourced candidate with status pending
func (s *MemoryStore) CreateCandidate(_ context.Context, input *CandidateInput) (*Candidate, error) {
	c := &Candidate{
		ID:              uuid.New(),
		JobID:           input.JobID,
		Name:            input.Name,
		CurrentRole:     input.CurrentRole,
		CurrentCompany:  input.CurrentCompany,
		YearsExperience: input.YearsExperience,
		Skills:          cloneStrings(input.Skills),
		Location:        input.Location,
		Email:           input.Email,
		LinkedInSummary: input.LinkedInSummary,
		LinkedInURL:     input.LinkedInURL,
		CompanyWebsite:  input.CompanyWebsite,
		Status:          CandidateStatusPending,
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	s.candidates[c.ID] = c
	s.nextSeq(c.ID)
	s.mu.Unlock()

	out := *c
	return &out, nil
}

// GetCandidate retrieves a candidate by ID
func (s *MemoryStore) GetCandidate(_ context.Context, id uuid.UUID) (*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

// UpdateCandidateStatus moves a candidate to status, enforcing the candidate lifecycle
func (s *MemoryStore) UpdateCandidateStatus(_ context.Context, id uuid.UUID, status string) (*Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, nil
	}
	if !CanTransition(c.Status, status) {
		return nil, &TransitionError{From: c.Status, To: status}
	}
	c.Status = status
	out := *c
	return &out, nil
}

// byScore orders candidates best score first, oldest first on ties
func (s *MemoryStore) byScore(list []CandidateWithMatch) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Match.Score != list[j].Match.Score {
			return list[i].Match.Score > list[j].Match.Score
		}
		return s.order[list[i].Candidate.ID] < s.order[list[j].Candidate.ID]
	})
}

func (s *MemoryStore) withStatus(jobID uuid.UUID, status string) []CandidateWithMatch {
	result := []CandidateWithMatch{}
	for _, c := range s.candidates {
		if c.JobID != jobID || c.Status != status {
			continue
		}
		m, ok := s.matches[c.ID]
		if !ok {
			continue
		}
		result = append(result, CandidateWithMatch{Candidate: *c, Match: *m})
	}
	s.byScore(result)
	return result
}

// GetNextCandidate returns the best-scoring pending candidate for a job
func (s *MemoryStore) GetNextCandidate(_ context.Context, jobID uuid.UUID) (*CandidateWithMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.withStatus(jobID, CandidateStatusPending)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ListCandidatesByStatus returns a job's candidates in a status joined with their matches, best score first
func (s *MemoryStore) ListCandidatesByStatus(_ context.Context, jobID uuid.UUID, status string) ([]CandidateWithMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.withStatus(jobID, status), nil
}

// CreateMatch stores the matching agent's evaluation of a candidate
func (s *MemoryStore) CreateMatch(_ context.Context, input *MatchInput) (*Match, error) {
	m := &Match{
		ID:            uuid.New(),
		JobID:         input.JobID,
		CandidateID:   input.CandidateID,
		Score:         input.Score,
		KeyHighlights: cloneStrings(input.KeyHighlights),
		FitReasoning:  input.FitReasoning,
		RankPosition:  input.RankPosition,
		CreatedAt:     s.now(),
	}

	s.mu.Lock()
	s.matches[m.CandidateID] = m
	s.mu.Unlock()

	out := *m
	return &out, nil
}

// GetMatchByCandidate retrieves the match for a candidate
func (s *MemoryStore) GetMatchByCandidate(_ context.Context, candidateID uuid.UUID) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[candidateID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

// CreateOutreach stores a pitch for a candidate
func (s *MemoryStore) CreateOutreach(_ context.Context, input *OutreachInput) (*Outreach, error) {
	status := input.DeliveryStatus
	if status == "" {
		status = DeliveryStatusGenerated
	}
	now := s.now()
	o := &Outreach{
		ID:             uuid.New(),
		JobID:          input.JobID,
		CandidateID:    input.CandidateID,
		Subject:        input.Subject,
		Body:           input.Body,
		DeliveryStatus: status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.outreach[o.ID] = o
	s.nextSeq(o.ID)
	s.mu.Unlock()

	out := *o
	return &out, nil
}

// GetOutreach retrieves an outreach record by ID
func (s *MemoryStore) GetOutreach(_ context.Context, id uuid.UUID) (*Outreach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outreach[id]
	if !ok {
		return nil, nil
	}
	out := *o
	return &out, nil
}

// GetOutreachByCandidate retrieves the most recent outreach record for a candidate
func (s *MemoryStore) GetOutreachByCandidate(_ context.Context, candidateID uuid.UUID) (*Outreach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Outreach
	for _, o := range s.outreach {
		if o.CandidateID != candidateID {
			continue
		}
		if latest == nil || s.order[o.ID] > s.order[latest.ID] {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// UpdateOutreachContent replaces the subject and body of an outreach record
func (s *MemoryStore) UpdateOutreachContent(_ context.Context, id uuid.UUID, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.outreach[id]; ok {
		o.Subject = subject
		o.Body = body
		o.UpdatedAt = s.now()
	}
	return nil
}

// UpdateOutreachStatus records a delivery status change
func (s *MemoryStore) UpdateOutreachStatus(_ context.Context, id uuid.UUID, status string, sentAt *time.Time, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.outreach[id]; ok {
		o.DeliveryStatus = status
		if sentAt != nil {
			t := *sentAt
			o.SentAt = &t
		}
		o.ErrorMessage = errorMessage
		o.UpdatedAt = s.now()
	}
	return nil
}

// GetJobStats aggregates candidate and outreach counts for a job
func (s *MemoryStore) GetJobStats(_ context.Context, jobID uuid.UUID) (*JobStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st JobStats
	for _, c := range s.candidates {
		if c.JobID != jobID {
			continue
		}
		st.TotalSourced++
		switch c.Status {
		case CandidateStatusPending:
			st.Pending++
		case CandidateStatusAccepted:
			st.Accepted++
		case CandidateStatusRejected:
			st.Rejected++
		case CandidateStatusContacted:
			st.Contacted++
		}
	}
	for _, o := range s.outreach {
		if o.JobID != jobID {
			continue
		}
		st.PitchesGenerated++
		switch o.DeliveryStatus {
		case DeliveryStatusSent:
			st.OutreachSent++
		case DeliveryStatusFailed:
			st.OutreachFailed++
		}
	}
	return &st, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() {}
