package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/i474232898/weather-event-streamer/internal/weather"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func run(id string, offset time.Duration) weather.RunRecord {
	return weather.RunRecord{ID: id, Location: "Kolkata", StartedAt: base.Add(offset), Degraded: []weather.Section{}}
}

func TestMemoryStore_GetLatest(t *testing.T) {
	s := NewMemoryStore(0, 0)
	if _, err := s.GetLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	s.SaveRun(run("a", 0))
	s.SaveRun(run("c", time.Minute))
	// started before c, finished after it
	s.SaveRun(run("b", 30*time.Second))

	got, err := s.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c" {
		t.Errorf("expected latest run c, got %s", got.ID)
	}

	all, err := s.GetRange(base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids string
	for _, r := range all {
		ids += r.ID
	}
	if ids != "abc" {
		t.Errorf("expected runs ordered by start time, got %s", ids)
	}
}

func TestMemoryStore_RetentionByCount(t *testing.T) {
	s := NewMemoryStore(3, 0)
	for i := 0; i < 5; i++ {
		s.SaveRun(run(fmt.Sprint(i), time.Duration(i)*time.Second))
	}

	all, err := s.GetRange(base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "2" || all[2].ID != "4" {
		t.Errorf("expected runs 2..4 to be kept, got %+v", all)
	}
}

func TestMemoryStore_RetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return base.Add(2 * time.Hour) }

	s.SaveRun(run("old", 0))
	s.SaveRun(run("recent", 90*time.Minute))

	all, err := s.GetRange(base, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 || all[0].ID != "recent" {
		t.Errorf("expected only the recent run, got %+v", all)
	}

	// the newest run survives even when it is itself stale
	s = NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return base.Add(5 * time.Hour) }
	s.SaveRun(run("stale", 0))
	if got, err := s.GetLatest(); err != nil || got.ID != "stale" {
		t.Errorf("expected stale run to be kept, got %+v, %v", got, err)
	}
}

func TestMemoryStore_GetRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	s.SaveRun(run("a", 0))
	s.SaveRun(run("b", time.Minute))
	s.SaveRun(run("c", 2*time.Minute))

	got, err := s.GetRange(base.Add(time.Minute), base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("expected b and c with inclusive bounds, got %+v", got)
	}

	if _, err := s.GetRange(base.Add(time.Hour), base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty range, got %v", err)
	}
}
