// Package server exposes the gateway's HTTP API: health, metrics, and a
// small read-only view of the entity registry.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pluralhub/plural-gateway/internal/config"
	"github.com/pluralhub/plural-gateway/internal/healthring"
	"github.com/pluralhub/plural-gateway/internal/store"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	store      store.Store
	healthRing *healthring.HealthRing
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ServiceHealth represents a service health status
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// StatusResponse represents the full gateway status
type StatusResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Uptime    string          `json:"uptime"`
	Prefix    string          `json:"prefix"`
	Systems   int64           `json:"systems"`
	Members   int64           `json:"members"`
	Channels  map[string]bool `json:"channels"`
	Timestamp string          `json:"timestamp"`
}

// SystemResponse is the public view of a system
type SystemResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Members int    `json:"member_count"`
	Created string `json:"created"`
}

// MemberResponse is the public view of a member
type MemberResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Created   string `json:"created"`
}

// New creates a new HTTP server
func New(cfg *config.Config, st store.Store, hr *healthring.HealthRing, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		healthRing: hr,
		logger:     logger,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/status", s.statusHandler)
	mux.HandleFunc("/api/v1/systems/", s.systemsHandler)
	if hr != nil {
		mux.HandleFunc("/api/v1/healthring/status", hr.GetStatusHandler())
		mux.HandleFunc("/api/v1/healthring/", hr.GetMemberHandler())
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := map[string]ServiceHealth{
		"http": {Healthy: true, Message: "HTTP server running"},
	}
	overall := "healthy"

	if s.healthRing != nil {
		for name, ms := range s.healthRing.Status() {
			healthy := ms.Status != "down"
			msg := ""
			if !healthy {
				overall = "degraded"
				if len(ms.History) > 0 {
					msg = ms.History[len(ms.History)-1].Error
				}
			}
			services[name] = ServiceHealth{Healthy: healthy, Message: msg}
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    overall,
		Version:   "1.0.0",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}

// statusHandler handles full gateway status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	systems, members, err := s.store.Counts(r.Context())
	if err != nil {
		s.logger.Error("status counts failed", "error", err)
		http.Error(w, "Failed to read registry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Uptime:    time.Since(s.startTime).String(),
		Prefix:    s.cfg.Channels.CommandPrefix(),
		Systems:   systems,
		Members:   members,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Channels: map[string]bool{
			"telegram": s.cfg.Channels.Telegram.Enabled,
			"discord":  s.cfg.Channels.Discord.Enabled,
			"webchat":  s.cfg.Channels.WebChat.Enabled,
		},
	})
}

// systemsHandler serves /api/v1/systems/{hid} and
// /api/v1/systems/{hid}/members.
func (s *Server) systemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/systems/")
	hid, sub, _ := strings.Cut(rest, "/")
	if hid == "" {
		http.Error(w, "System ID required", http.StatusBadRequest)
		return
	}

	sys, err := s.store.SystemByHID(r.Context(), hid)
	if err != nil {
		s.logger.Error("system lookup failed", "hid", hid, "error", err)
		http.Error(w, "Failed to read registry", http.StatusInternalServerError)
		return
	}
	if sys == nil {
		http.Error(w, "System not found", http.StatusNotFound)
		return
	}

	members, err := s.store.MembersBySystem(r.Context(), sys.ID)
	if err != nil {
		s.logger.Error("member listing failed", "hid", hid, "error", err)
		http.Error(w, "Failed to read registry", http.StatusInternalServerError)
		return
	}

	switch sub {
	case "":
		writeJSON(w, http.StatusOK, SystemResponse{
			ID:      sys.HID,
			Name:    sys.Name,
			Tag:     sys.Tag,
			Members: len(members),
			Created: sys.Created.UTC().Format(time.RFC3339),
		})
	case "members":
		out := make([]MemberResponse, 0, len(members))
		for _, m := range members {
			out = append(out, MemberResponse{
				ID:        m.HID,
				Name:      m.Name,
				AvatarURL: m.AvatarURL,
				Created:   m.Created.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
