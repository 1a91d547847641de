package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-event-streamer/internal/store"
	"github.com/i474232898/weather-event-streamer/internal/weather"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakePipeline records runs into a real MemoryStore.
type fakePipeline struct {
	*store.MemoryStore
	runErr error
	runIDs []string
}

func (p *fakePipeline) RunWithID(_ context.Context, runID string) (weather.RunRecord, error) {
	p.runIDs = append(p.runIDs, runID)
	rec := weather.RunRecord{ID: runID, Location: "Kolkata", StartedAt: t0, FinishedAt: t0, Degraded: []weather.Section{}}
	if p.runErr != nil {
		rec.Error = p.runErr.Error()
	} else {
		rec.Published = true
	}
	p.SaveRun(rec)
	return rec, p.runErr
}

func newApp(p Pipeline) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	RegisterRoutes(app, p)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestLatestRun(t *testing.T) {
	p := &fakePipeline{MemoryStore: store.NewMemoryStore(10, 0)}
	app := newApp(p)

	// No runs yet should return 404.
	if code, _ := do(t, app, http.MethodGet, "/api/v1/runs/latest"); code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, code)
	}

	p.SaveRun(weather.RunRecord{ID: "r-1", Location: "Kolkata", StartedAt: t0, Degraded: []weather.Section{}, Published: true})
	code, body := do(t, app, http.MethodGet, "/api/v1/runs/latest")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body["id"] != "r-1" || body["published"] != true {
		t.Errorf("unexpected run: %v", body)
	}
}

func TestRunHistoryValidation(t *testing.T) {
	app := newApp(&fakePipeline{MemoryStore: store.NewMemoryStore(10, 0)})

	tests := []struct {
		name   string
		target string
	}{
		{"missing bounds", "/api/v1/runs"},
		{"missing to", "/api/v1/runs?from=2024-06-01T00:00:00Z"},
		{"bad time format", "/api/v1/runs?from=yesterday&to=today"},
		{"inverted range", "/api/v1/runs?from=2024-06-02T00:00:00Z&to=2024-06-01T00:00:00Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code, _ := do(t, app, http.MethodGet, tc.target); code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
			}
		})
	}
}

func TestRunHistory(t *testing.T) {
	p := &fakePipeline{MemoryStore: store.NewMemoryStore(10, 0)}
	p.SaveRun(weather.RunRecord{ID: "r-1", StartedAt: t0, Degraded: []weather.Section{}})
	p.SaveRun(weather.RunRecord{ID: "r-2", StartedAt: t0.Add(30 * time.Second), Degraded: []weather.Section{}})
	app := newApp(p)

	// unix seconds and RFC3339 are both accepted
	code, body := do(t, app, http.MethodGet, "/api/v1/runs?from=1717243200&to=2024-06-01T12:00:10Z")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	runs, ok := body["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected one run in range, got %v", body["runs"])
	}

	if code, _ := do(t, app, http.MethodGet, "/api/v1/runs?from=2030-01-01T00:00:00Z&to=2030-01-02T00:00:00Z"); code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, code)
	}
}

func TestTriggerRun(t *testing.T) {
	t.Run("successful run returns its record", func(t *testing.T) {
		p := &fakePipeline{MemoryStore: store.NewMemoryStore(10, 0)}
		code, body := do(t, newApp(p), http.MethodPost, "/api/v1/runs")
		if code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, code)
		}
		if len(p.runIDs) != 1 || body["id"] != p.runIDs[0] {
			t.Errorf("expected generated run id in response, got %v", body)
		}
		if latest, err := p.GetLatest(); err != nil || latest.ID != p.runIDs[0] {
			t.Errorf("expected run to be recorded, got %+v, %v", latest, err)
		}
	})
	t.Run("failed run is a bad gateway", func(t *testing.T) {
		p := &fakePipeline{MemoryStore: store.NewMemoryStore(10, 0), runErr: errors.New("failed to publish to log: boom")}
		code, body := do(t, newApp(p), http.MethodPost, "/api/v1/runs")
		if code != http.StatusBadGateway {
			t.Fatalf("expected status %d, got %d", http.StatusBadGateway, code)
		}
		if body["message"] != "failed to publish to log: boom" {
			t.Errorf("unexpected message: %v", body["message"])
		}
	})
}
