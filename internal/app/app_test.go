package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-event-streamer/internal/config"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":2006,"message":"API key is invalid."}}`))
			return
		}
		switch r.URL.Path {
		case "/v1/current.json":
			_, _ = w.Write([]byte(`{"location": {"name": "Kolkata", "country": "India"}, "current": {"temp_c": 28.5}}`))
		case "/v1/forecast.json":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":9999,"message":"Internal application error."}}`))
		case "/v1/alerts.json":
			_, _ = w.Write([]byte(`{"alerts": {"alert": []}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loadConfig(t *testing.T, baseURL string) *config.AppConfig {
	t.Helper()
	t.Setenv("WEATHERSTREAM_WEATHER_BASE_URL", baseURL)
	t.Setenv("WEATHERSTREAM_SECRETS_BACKEND", "env")
	t.Setenv("WEATHERSTREAM_PUBLISHER_BACKEND", "log")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestNewService_EndToEnd(t *testing.T) {
	srv := newUpstream(t)
	t.Setenv("WEATHER_API_KEY", "test-key")
	cfg := loadConfig(t, srv.URL+"/v1/")

	buf := bytes.NewBuffer(nil)
	logger := log.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&log.JSONFormatter{})

	svc, history, err := NewService(cfg, log.NewEntry(logger))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	rec, err := svc.RunWithID(testContext(t), "run-1")
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if !rec.Published || len(rec.Degraded) != 1 || rec.Degraded[0] != "forecast" {
		t.Errorf("unexpected run record: %+v", rec)
	}
	if latest, err := history.GetLatest(); err != nil || latest.ID != "run-1" {
		t.Errorf("expected run to be recorded, got %+v, %v", latest, err)
	}

	var event map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var line map[string]any
		if json.Unmarshal(sc.Bytes(), &line) == nil && line["msg"] == "weather event" {
			event, _ = line["event"].(map[string]any)
		}
	}
	if event == nil {
		t.Fatalf("expected a published event in the log, got %s", buf.String())
	}
	if event["name"] != "Kolkata" || event["temp_c"] != 28.5 {
		t.Errorf("unexpected event: %v", event)
	}
	if fc, ok := event["forecast"].([]any); !ok || len(fc) != 0 {
		t.Errorf("expected empty forecast for a failed section, got %v", event["forecast"])
	}
}

func TestNewService_MissingSecret(t *testing.T) {
	srv := newUpstream(t)
	t.Setenv("WEATHER_API_KEY", "")
	cfg := loadConfig(t, srv.URL+"/v1/")

	logger := log.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	svc, history, err := NewService(cfg, log.NewEntry(logger))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	if err := svc.Run(testContext(t)); err == nil {
		t.Fatal("expected run to fail without an api key")
	}
	latest, err := history.GetLatest()
	if err != nil {
		t.Fatalf("expected failed run to be recorded: %v", err)
	}
	if latest.Published || latest.Error == "" {
		t.Errorf("unexpected run record: %+v", latest)
	}
}

func TestDestination(t *testing.T) {
	t.Setenv("WEATHERSTREAM_PUBLISHER_BACKEND", "kinesis")
	t.Setenv("WEATHERSTREAM_PUBLISHER_NAME", "weather")
	t.Setenv("WEATHERSTREAM_AWS_REGION", "eu-west-1")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	d := Destination(cfg)
	if d.Backend != "kinesis" || d.Name != "weather" || d.Region != "eu-west-1" || d.PartitionKey != "Kolkata" {
		t.Errorf("unexpected destination: %+v", d)
	}
}
