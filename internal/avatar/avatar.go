// Package avatar validates member avatar URLs before they are stored.
package avatar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxSize is the largest avatar the probe accepts, in bytes.
const MaxSize = 8 * 1024 * 1024

var imageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// ValidateURL checks that raw is a well-formed absolute http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// Prober checks that an avatar URL actually serves an image. A zero value
// uses a default HTTP client with a short timeout.
type Prober struct {
	Client *http.Client
}

func (p *Prober) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Probe issues a HEAD request and verifies content type and size. URLs the
// server refuses to HEAD are accepted; the check is best-effort.
func (p *Prober) Probe(ctx context.Context, raw string) error {
	if err := ValidateURL(raw); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("avatar URL unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar URL returned status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !isImageType(ct) {
		return fmt.Errorf("avatar URL serves %s, not an image", ct)
	}
	if resp.ContentLength > MaxSize {
		return fmt.Errorf("avatar is %d bytes, limit is %d", resp.ContentLength, MaxSize)
	}
	return nil
}

func isImageType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	for _, t := range imageTypes {
		if ct == t {
			return true
		}
	}
	return false
}
