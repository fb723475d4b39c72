// Package enrich extracts contact details from business websites. It is
// best-effort: enrichment never fails a scrape, it only fills blanks.
package enrich

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Contact is the result of enriching one website. Absence is an empty
// string, never an error.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Enricher fetches a website and extracts an email and/or phone.
type Enricher interface {
	Enrich(ctx context.Context, websiteURL string) Contact
}

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 512 * 1024
	maxCacheSize   = 2048
)

// HTTPEnricher fetches pages with net/http and pattern-matches contact
// fields. A small cache avoids refetching the same website when one
// business shows up in multiple locations.
type HTTPEnricher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]Contact
}

// NewHTTPEnricher creates an HTTPEnricher with sensible defaults.
func NewHTTPEnricher() *HTTPEnricher {
	return &HTTPEnricher{
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cache: make(map[string]Contact),
	}
}

// WithTimeout overrides the per-fetch timeout.
func (e *HTTPEnricher) WithTimeout(d time.Duration) *HTTPEnricher {
	e.client.Timeout = d
	return e
}

// Enrich fetches the page and extracts contacts. Failures log at debug
// level and return a zero Contact.
func (e *HTTPEnricher) Enrich(ctx context.Context, websiteURL string) Contact {
	if websiteURL == "" {
		return Contact{}
	}
	if !strings.HasPrefix(websiteURL, "http://") && !strings.HasPrefix(websiteURL, "https://") {
		websiteURL = "https://" + websiteURL
	}

	e.mu.Lock()
	if c, ok := e.cache[websiteURL]; ok {
		e.mu.Unlock()
		return c
	}
	e.mu.Unlock()

	contact := e.fetch(ctx, websiteURL)

	e.mu.Lock()
	if len(e.cache) >= maxCacheSize {
		e.cache = make(map[string]Contact)
	}
	e.cache[websiteURL] = contact
	e.mu.Unlock()

	return contact
}

func (e *HTTPEnricher) fetch(ctx context.Context, websiteURL string) Contact {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		return Contact{}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LeadgenBot/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		zap.L().Debug("enrich: fetch failed", zap.String("url", websiteURL), zap.Error(err))
		return Contact{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		zap.L().Debug("enrich: bad status", zap.String("url", websiteURL), zap.Int("status", resp.StatusCode))
		return Contact{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Contact{}
	}

	return Extract(string(body))
}

var (
	mailtoRe = regexp.MustCompile(`(?i)mailto:([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	emailRe  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	telRe    = regexp.MustCompile(`(?i)tel:([+\d()\s.\-]{7,24})`)
	phoneRe  = regexp.MustCompile(`\+?\(?\d{1,4}\)?[\s.\-]?\(?\d{2,4}\)?[\s.\-]?\d{2,4}[\s.\-]?\d{2,6}`)
)

// assetSuffixes are false-positive "emails" from image srcsets and
// bundled javascript.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// Extract pulls the first plausible email and phone out of raw HTML.
// mailto: and tel: links win over free-text matches.
func Extract(html string) Contact {
	var c Contact

	if m := mailtoRe.FindStringSubmatch(html); len(m) > 1 {
		c.Email = strings.ToLower(m[1])
	} else {
		for _, cand := range emailRe.FindAllString(html, 10) {
			if isAssetEmail(cand) {
				continue
			}
			c.Email = strings.ToLower(cand)
			break
		}
	}

	if m := telRe.FindStringSubmatch(html); len(m) > 1 {
		if p := cleanPhone(m[1]); p != "" {
			c.Phone = p
		}
	}
	if c.Phone == "" {
		for _, cand := range phoneRe.FindAllString(html, 20) {
			if p := cleanPhone(cand); p != "" {
				c.Phone = p
				break
			}
		}
	}

	return c
}

func isAssetEmail(s string) bool {
	lower := strings.ToLower(s)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// cleanPhone validates a candidate and returns it trimmed, or "".
// Accepts 7–15 digits (ITU e.164 upper bound).
func cleanPhone(s string) string {
	s = strings.TrimSpace(s)
	digits := model.DigitsOnly(s)
	if len(digits) < 7 || len(digits) > 15 {
		return ""
	}
	return s
}
