package avatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com/a.png",
		"http://cdn.example.com/avatars/123.jpg",
	}
	for _, raw := range valid {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", raw, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://example.com/a.png",
		"file:///etc/passwd",
		"https://",
	}
	for _, raw := range invalid {
		if err := ValidateURL(raw); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", raw)
		}
	}
}

func TestProbeAcceptsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &Prober{Client: srv.Client()}
	if err := p.Probe(context.Background(), srv.URL+"/a.png"); err != nil {
		t.Errorf("expected image probe to pass, got %v", err)
	}
}

func TestProbeRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &Prober{Client: srv.Client()}
	if err := p.Probe(context.Background(), srv.URL+"/index.html"); err == nil {
		t.Error("expected probe to reject text/html")
	}
}

func TestProbeRejectsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := &Prober{Client: srv.Client()}
	if err := p.Probe(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected probe to reject 404")
	}
}
