package fetch

import (
	"net/url"
	"strings"
)

// socialHosts are profile sites that are not a company's own website.
var socialHosts = []string{
	"linkedin.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"github.com",
}

// NormalizeWebsite turns a user-supplied company website into an absolute https URL
// with no path. It reports false for empty input, unparsable input and social profiles.
func NormalizeWebsite(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	for _, social := range socialHosts {
		if host == social || strings.HasSuffix(host, "."+social) {
			return "", false
		}
	}

	return u.Scheme + "://" + strings.ToLower(u.Host), true
}

// ResearchPages returns the pages of a company site worth reading before writing a pitch,
// most useful first.
func ResearchPages(base string) []string {
	base = strings.TrimSuffix(base, "/")
	return []string{
		base + "/about",
		base,
		base + "/careers",
	}
}
