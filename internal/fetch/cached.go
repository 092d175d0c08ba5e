package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched page is reused.
const DefaultCacheTTL = 6 * time.Hour

// CachedFetcher wraps URL fetching with an in-memory cache keyed by URL.
// Failed fetches are cached too, so a dead site is not retried for every pitch.
type CachedFetcher struct {
	options  *Options
	renderer Renderer
	cacheTTL time.Duration
	now      func() time.Time
	fetch    func(ctx context.Context, url string, opts *Options) (*Result, error)

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *Result
	err     error
	expires time.Time
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL time.Duration
	Options  *Options
	// Renderer, when set, re-renders pages whose static HTML has too little text.
	Renderer Renderer
}

// NewCachedFetcher creates a new cached fetcher.
func NewCachedFetcher(config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = &CachedFetcherConfig{}
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	return &CachedFetcher{
		options:  config.Options,
		renderer: config.Renderer,
		cacheTTL: config.CacheTTL,
		now:      time.Now,
		fetch:    URL,
		entries:  make(map[string]cacheEntry),
	}
}

// Fetch retrieves a URL and extracts its main text, reusing a cached result within the TTL.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	f.mu.Lock()
	if e, ok := f.entries[urlStr]; ok && f.now().Before(e.expires) {
		f.mu.Unlock()
		return e.result, e.err
	}
	f.mu.Unlock()

	result, err := f.fetch(ctx, urlStr, f.options)
	if err == nil {
		result.Text, _ = ExtractMainText(result.HTML, CompanyPageSelectors())
		if f.renderer != nil && ShouldUseBrowser(result.Text) {
			if html, rerr := f.renderer.Render(ctx, urlStr); rerr == nil {
				if text, _ := ExtractMainText(html, CompanyPageSelectors()); len(text) > len(result.Text) {
					result.HTML = html
					result.Text = text
				}
			}
		}
	}

	// Cancellation says nothing about the page, so it is not remembered.
	if ctx.Err() == nil {
		f.mu.Lock()
		f.entries[urlStr] = cacheEntry{result: result, err: err, expires: f.now().Add(f.cacheTTL)}
		f.mu.Unlock()
	}

	return result, err
}

// Invalidate drops a URL from the cache, forcing a re-fetch on next request.
func (f *CachedFetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	delete(f.entries, urlStr)
	f.mu.Unlock()
}
