// Package healthring periodically probes the gateway's dependencies and
// keeps a short history per member for the status API.
package healthring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const historySize = 10

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type HealthCheckResult struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type MemberStatus struct {
	Name    string              `json:"name"`
	Status  string              `json:"status"`
	History []HealthCheckResult `json:"history"`
}

// HealthRing runs registered checks on a fixed interval.
type HealthRing struct {
	mu       sync.RWMutex
	statuses map[string]*MemberStatus
	checks   map[string]CheckFunc

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// New creates a HealthRing. Checks registered before Start are probed
// every interval.
func New(interval time.Duration, logger *slog.Logger) *HealthRing {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthRing{
		statuses: make(map[string]*MemberStatus),
		checks:   make(map[string]CheckFunc),
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Register adds a named dependency check.
func (h *HealthRing) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.statuses[name] = &MemberStatus{
		Name:    name,
		Status:  "unknown",
		History: make([]HealthCheckResult, 0, historySize),
	}
}

// Start probes all members once immediately, then on every interval tick.
func (h *HealthRing) Start() {
	h.performChecks()
	go h.runChecks()
}

func (h *HealthRing) runChecks() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.performChecks()
		}
	}
}

func (h *HealthRing) performChecks() {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	for name, check := range checks {
		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		err := check(ctx)
		cancel()

		res := HealthCheckResult{Timestamp: time.Now(), Success: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		h.record(name, res)
	}
}

func (h *HealthRing) record(name string, res HealthCheckResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status, ok := h.statuses[name]
	if !ok {
		return
	}
	status.Status = "up"
	if !res.Success {
		status.Status = "down"
	}
	status.History = append(status.History, res)
	if len(status.History) > historySize {
		status.History = status.History[1:]
	}
	h.logger.Debug("health check", "member", name, "status", status.Status)
}

// Status returns a snapshot of all member statuses.
func (h *HealthRing) Status() map[string]*MemberStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := make(map[string]*MemberStatus, len(h.statuses))
	for k, v := range h.statuses {
		cp := *v
		cp.History = append([]HealthCheckResult(nil), v.History...)
		m[k] = &cp
	}
	return m
}

// GetMemberStatus returns one member's status snapshot.
func (h *HealthRing) GetMemberStatus(name string) (*MemberStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.statuses[name]
	if !ok {
		return nil, fmt.Errorf("member not found")
	}
	cp := *s
	cp.History = append([]HealthCheckResult(nil), s.History...)
	return &cp, nil
}

// Healthy reports whether every member is up.
func (h *HealthRing) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.statuses {
		if s.Status == "down" {
			return false
		}
	}
	return true
}

// GetStatusHandler serves the full ring status as JSON.
func (h *HealthRing) GetStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Status()); err != nil {
			http.Error(w, "Encode error", http.StatusInternalServerError)
			return
		}
	}
}

// GetMemberHandler serves one member's status as JSON.
func (h *HealthRing) GetMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/v1/healthring/")
		if name == "" {
			http.Error(w, "Member name required", http.StatusBadRequest)
			return
		}
		member, err := h.GetMemberStatus(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(member); err != nil {
			http.Error(w, "Encode error", http.StatusInternalServerError)
			return
		}
	}
}

// Shutdown stops the check loop.
func (h *HealthRing) Shutdown() {
	h.cancel()
}
