package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
)

var (
	_ events.Recorder      = (*Collector)(nil)
	_ pipeline.Recorder    = (*Collector)(nil)
	_ pipeline.RunObserver = (*Collector)(nil)
)

// scrape returns the collector's metrics in the text exposition format
func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	require.NotNil(t, c)
	assert.NotNil(t, c.Registry())

	// each collector has its own registry, so a second one must not panic on registration
	assert.NotPanics(t, func() { NewCollector() })
}

func TestRunMetrics(t *testing.T) {
	c := NewCollector()

	c.RunStarted()
	c.RunStarted()
	assert.Contains(t, scrape(t, c), "recruiter_pipeline_runs_in_flight 2\n")

	c.RunFinished(pipeline.OutcomeCompleted, 3*time.Second)
	c.RunFinished(pipeline.OutcomeFailed, time.Second)

	text := scrape(t, c)
	assert.Contains(t, text, "recruiter_pipeline_runs_in_flight 0\n")
	assert.Contains(t, text, "recruiter_pipeline_runs_started_total 2\n")
	assert.Contains(t, text, `recruiter_pipeline_runs_finished_total{outcome="completed"} 1`)
	assert.Contains(t, text, `recruiter_pipeline_runs_finished_total{outcome="failed"} 1`)
	assert.Contains(t, text, "recruiter_pipeline_run_duration_seconds_count 2\n")
}

func TestStageMetrics(t *testing.T) {
	c := NewCollector()

	c.StageCompleted(events.AgentSourcing, time.Second, nil)
	c.StageCompleted(events.AgentMatching, time.Second, errors.New("bad json"))
	c.CandidatesSourced(5)
	c.CandidatesSourced(3)
	c.PitchGenerated(true)
	c.PitchGenerated(false)
	c.PitchGenerated(true)

	text := scrape(t, c)
	assert.NotContains(t, text, `recruiter_pipeline_stage_errors_total{agent="sourcing"}`)
	assert.Contains(t, text, `recruiter_pipeline_stage_errors_total{agent="matching"} 1`)
	assert.Contains(t, text, `recruiter_pipeline_stage_duration_seconds_count{agent="sourcing"} 1`)
	assert.Contains(t, text, "recruiter_candidates_sourced_total 8\n")
	assert.Contains(t, text, `recruiter_pitches_pregenerated_total{result="ok"} 2`)
	assert.Contains(t, text, `recruiter_pitches_pregenerated_total{result="failed"} 1`)
}

func TestEventMetrics(t *testing.T) {
	c := NewCollector()

	c.EventEmitted(string(events.TypeAgentStart), true)
	c.EventEmitted(string(events.TypeAgentStart), false)
	c.SubscribersChanged(3)

	text := scrape(t, c)
	assert.Contains(t, text, `recruiter_events_emitted_total{delivered="true",type="agent_start"} 1`)
	assert.Contains(t, text, `recruiter_events_emitted_total{delivered="false",type="agent_start"} 1`)
	assert.Contains(t, text, "recruiter_event_subscribers 3\n")
}

func TestHTTPMetrics(t *testing.T) {
	c := NewCollector()
	c.RateLimited("create_job")
	c.ObserveRequest(http.MethodPost, "/jobs", http.StatusAccepted, 20*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	text := scrape(t, c)
	assert.Contains(t, text, `recruiter_rate_limited_total{action="create_job"} 1`)
	assert.Contains(t, text, `recruiter_http_requests_total{method="POST",route="/jobs",status="202"} 1`)
	assert.Contains(t, text, `recruiter_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}
