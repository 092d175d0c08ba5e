package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CompanyResearcher produces short notes about a hiring company for pitch personalisation
type CompanyResearcher interface {
	Research(ctx context.Context, website string) (string, error)
}

// PageFetcher retrieves a page and its readable text
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// maxResearchChars bounds how much site text is sent to the model
const maxResearchChars = 6000

// companyHighlights mirrors llm.CompanyHighlightsSchema
type companyHighlights struct {
	Mission    string   `json:"mission"`
	Products   []string `json:"products"`
	Culture    []string `json:"culture"`
	RecentNews []string `json:"recent_news"`
}

// WebResearcher reads a company's website and summarises it with a language model.
// Notes are cached per site and concurrent requests for one site share a single lookup.
type WebResearcher struct {
	fetcher PageFetcher
	client  llm.Client
	logger  zerolog.Logger
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	notes map[string]researchNote
}

type researchNote struct {
	text    string
	expires time.Time
}

// NewWebResearcher creates a researcher. client may be nil, in which case raw page text is used.
func NewWebResearcher(fetcher PageFetcher, client llm.Client, ttl time.Duration, logger zerolog.Logger) *WebResearcher {
	if ttl <= 0 {
		ttl = fetch.DefaultCacheTTL
	}
	return &WebResearcher{
		fetcher: fetcher,
		client:  client,
		logger:  logger.With().Str("component", "company_research").Logger(),
		ttl:     ttl,
		now:     time.Now,
		notes:   make(map[string]researchNote),
	}
}

// Research returns notes for website. An unusable website yields empty notes and no error.
func (r *WebResearcher) Research(ctx context.Context, website string) (string, error) {
	base, ok := fetch.NormalizeWebsite(website)
	if !ok {
		return "", nil
	}

	r.mu.Lock()
	if n, ok := r.notes[base]; ok && r.now().Before(n.expires) {
		r.mu.Unlock()
		return n.text, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(base, func() (any, error) {
		text, err := r.research(ctx, base)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.notes[base] = researchNote{text: text, expires: r.now().Add(r.ttl)}
		r.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *WebResearcher) research(ctx context.Context, base string) (string, error) {
	var pages []string
	var lastErr error
	for _, url := range fetch.ResearchPages(base) {
		result, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		text := result.Text
		if desc := fetch.MetaDescription(result.HTML); desc != "" {
			text = desc + "\n" + text
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("no readable pages on %s: %w", base, lastErr)
		}
		return "", nil
	}

	corpus := fetch.Truncate(strings.Join(pages, "\n\n"), maxResearchChars)
	if r.client == nil {
		return fetch.Truncate(corpus, 800), nil
	}

	prompt := llm.BuildExtractionPrompt(llm.CompanyHighlightsSchema(), corpus)
	text, err := r.client.GenerateJSON(ctx, prompt, llm.TierLite, llm.WithTemperature(0.1))
	if err != nil {
		return "", &APICallError{Agent: "company_research", Message: "model call failed", Cause: err}
	}

	var h companyHighlights
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &h); err != nil {
		return "", &ParseError{Agent: "company_research", Message: "failed to decode highlights", Cause: err}
	}

	notes := formatHighlights(h)
	r.logger.Debug().Str("website", base).Int("pages", len(pages)).Msg("researched company")
	return notes, nil
}

func formatHighlights(h companyHighlights) string {
	var sb strings.Builder
	if h.Mission != "" {
		sb.WriteString(h.Mission)
		sb.WriteString("\n")
	}
	section := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(items, "; "))
		sb.WriteString("\n")
	}
	section("Products", h.Products)
	section("Culture", h.Culture)
	section("Recent news", h.RecentNews)
	return strings.TrimSpace(sb.String())
}
