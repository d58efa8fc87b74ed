package healthring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegisterAndCheck(t *testing.T) {
	ring := New(time.Minute, nil)
	defer ring.Shutdown()

	ring.Register("good", func(context.Context) error { return nil })
	ring.Register("bad", func(context.Context) error { return errors.New("unreachable") })
	ring.performChecks()

	status := ring.Status()
	if status["good"].Status != "up" {
		t.Errorf("expected good to be up, got %s", status["good"].Status)
	}
	if status["bad"].Status != "down" {
		t.Errorf("expected bad to be down, got %s", status["bad"].Status)
	}
	if status["bad"].History[0].Error != "unreachable" {
		t.Errorf("expected error to be recorded, got %q", status["bad"].History[0].Error)
	}
	if ring.Healthy() {
		t.Error("expected ring with a down member to be unhealthy")
	}
}

func TestHistoryBounded(t *testing.T) {
	ring := New(time.Minute, nil)
	defer ring.Shutdown()

	ring.Register("svc", func(context.Context) error { return nil })
	for i := 0; i < historySize+5; i++ {
		ring.performChecks()
	}

	status, err := ring.GetMemberStatus("svc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.History) != historySize {
		t.Errorf("expected history capped at %d, got %d", historySize, len(status.History))
	}
}

func TestGetMemberStatusUnknown(t *testing.T) {
	ring := New(time.Minute, nil)
	defer ring.Shutdown()

	if _, err := ring.GetMemberStatus("nope"); err == nil {
		t.Error("expected error for unknown member")
	}
}

func TestStatusHandler(t *testing.T) {
	ring := New(time.Minute, nil)
	defer ring.Shutdown()

	ring.Register("redis", func(context.Context) error { return nil })
	ring.performChecks()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthring/status", nil)
	rec := httptest.NewRecorder()
	ring.GetStatusHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]*MemberStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["redis"] == nil || body["redis"].Status != "up" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestMemberHandler(t *testing.T) {
	ring := New(time.Minute, nil)
	defer ring.Shutdown()

	ring.Register("redis", func(context.Context) error { return nil })
	ring.performChecks()

	rec := httptest.NewRecorder()
	ring.GetMemberHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthring/redis", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ring.GetMemberHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthring/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown member, got %d", rec.Code)
	}
}
