package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	mu    sync.Mutex
	pages map[string]string
	urls  []string
}

func (f *fakePages) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	text, ok := f.pages[url]
	if !ok {
		return nil, &fetch.Error{URL: url, Message: "HTTP 404"}
	}
	return &fetch.Result{URL: url, HTML: "<html></html>", Text: text}, nil
}

const highlightsResponse = `{"mission": "Make payments boring.", "products": ["Rails API", "Ledger"], "culture": ["Remote first"], "recent_news": []}`

func TestWebResearcher_Research(t *testing.T) {
	pages := &fakePages{pages: map[string]string{
		"https://acme.com/about": "We make payments boring.",
		"https://acme.com":       "Acme home page.",
	}}
	client := &fakeClient{responses: []string{highlightsResponse}}
	r := NewWebResearcher(pages, client, time.Hour, zerolog.Nop())

	notes, err := r.Research(context.Background(), "Acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Make payments boring.\nProducts: Rails API; Ledger\nCulture: Remote first", notes)

	assert.Equal(t, []string{"https://acme.com/about", "https://acme.com", "https://acme.com/careers"}, pages.urls)
	require.Equal(t, 1, client.calls())
	assert.Contains(t, client.prompts[0], "We make payments boring.")
	assert.Contains(t, client.prompts[0], "Acme home page.")
}

func TestWebResearcher_CachesNotes(t *testing.T) {
	pages := &fakePages{pages: map[string]string{"https://acme.com": "Home."}}
	client := &fakeClient{responses: []string{highlightsResponse}}
	r := NewWebResearcher(pages, client, time.Hour, zerolog.Nop())

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Research(context.Background(), "https://acme.com/jobs/123")
	require.NoError(t, err)
	_, err = r.Research(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls())

	now = now.Add(2 * time.Hour)
	_, err = r.Research(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls())
}

func TestWebResearcher_UnusableWebsite(t *testing.T) {
	pages := &fakePages{}
	client := &fakeClient{}
	r := NewWebResearcher(pages, client, time.Hour, zerolog.Nop())

	for _, website := range []string{"", "https://www.linkedin.com/company/acme", "ftp://acme.com"} {
		notes, err := r.Research(context.Background(), website)
		require.NoError(t, err, website)
		assert.Empty(t, notes, website)
	}
	assert.Empty(t, pages.urls)
	assert.Equal(t, 0, client.calls())
}

func TestWebResearcher_NoReadablePages(t *testing.T) {
	pages := &fakePages{pages: map[string]string{}}
	client := &fakeClient{}
	r := NewWebResearcher(pages, client, time.Hour, zerolog.Nop())

	_, err := r.Research(context.Background(), "acme.com")
	require.Error(t, err)
	var fetchErr *fetch.Error
	assert.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 0, client.calls())
}

func TestWebResearcher_WithoutModelUsesPageText(t *testing.T) {
	pages := &fakePages{pages: map[string]string{"https://acme.com/about": "About Acme."}}
	r := NewWebResearcher(pages, nil, time.Hour, zerolog.Nop())

	notes, err := r.Research(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "About Acme.", notes)
}

func TestWebResearcher_ModelFailure(t *testing.T) {
	pages := &fakePages{pages: map[string]string{"https://acme.com": "Home."}}
	client := &fakeClient{err: errors.New("unavailable")}
	r := NewWebResearcher(pages, client, time.Hour, zerolog.Nop())

	_, err := r.Research(context.Background(), "acme.com")
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
}

func TestFormatHighlights(t *testing.T) {
	assert.Empty(t, formatHighlights(companyHighlights{}))
	assert.Equal(t, "Recent news: Raised a Series A", formatHighlights(companyHighlights{RecentNews: []string{"Raised a Series A"}}))
}
