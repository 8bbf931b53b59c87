// Package contentdiff extracts image URLs from rich-text dream content and
// computes the set differences the image lifecycle runs on.
package contentdiff

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Extractor pulls image URLs out of HTML content. Only URLs containing one of
// the configured domain substrings are kept, so third-party images embedded in
// content are never tracked.
type Extractor struct {
	domains []string
	logger  *slog.Logger
}

// NewExtractor creates an extractor limited to the given storage domain
// substrings. With no domains, every img src is accepted.
func NewExtractor(domains ...string) *Extractor {
	return &Extractor{domains: domains, logger: slog.Default()}
}

// WithLogger replaces the extractor's logger.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	e.logger = logger
	return e
}

// Extract returns the set of tracked image URLs referenced in content.
// Malformed markup degrades to an empty set; it never returns an error.
func (e *Extractor) Extract(content string) map[string]struct{} {
	urls := make(map[string]struct{})
	if content == "" {
		return urls
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		e.logger.Warn("failed to parse content, treating as image-free", "error", err)
		return urls
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key != "src" {
					continue
				}
				src := strings.TrimSpace(attr.Val)
				if src != "" && e.tracked(src) {
					urls[src] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return urls
}

// ExtractList returns Extract's result as a sorted slice.
func (e *Extractor) ExtractList(content string) []string {
	return sorted(e.Extract(content))
}

func (e *Extractor) tracked(url string) bool {
	if len(e.domains) == 0 {
		return true
	}
	for _, d := range e.domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

// FileKeyFromURL extracts the storage key from an access URL. Keys live under
// a "users/" prefix; URLs without one yield an empty key (best effort).
func FileKeyFromURL(url string) string {
	if i := strings.Index(url, "/users/"); i >= 0 {
		return url[i+1:]
	}
	return ""
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
