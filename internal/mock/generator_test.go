package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/config"
)

type recordingIngester struct {
	mu   sync.Mutex
	recs []*alert.Record
	err  error
}

func (r *recordingIngester) Ingest(_ context.Context, rec *alert.Record) (*alert.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.recs = append(r.recs, rec)
	return rec, nil
}

func (r *recordingIngester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

func TestTickEmitsValidAlerts(t *testing.T) {
	ing := &recordingIngester{}
	g := NewGenerator(ing, config.MockConfig{Threshold: 0.3}, nil)
	g.Seed(7)

	for i := 0; i < 60; i++ {
		g.Tick(context.Background())
	}

	if ing.count() == 0 {
		t.Fatal("expected at least one alert after 60 ticks")
	}
	for _, rec := range ing.recs {
		if rec.VehicleID == "" || rec.DashcamID == "" {
			t.Errorf("alert missing ids: %+v", rec)
		}
		if !rec.Severity.Valid() {
			t.Errorf("invalid severity %q", rec.Severity)
		}
		if rec.LaneDeviation < 0.3 {
			t.Errorf("deviation %.2f below threshold", rec.LaneDeviation)
		}
		if rec.Description == "" {
			t.Error("expected a description")
		}
	}
}

func TestDrowsyVehicleEventuallyDeparts(t *testing.T) {
	ing := &recordingIngester{}
	g := NewGenerator(ing, config.MockConfig{Threshold: 0.5}, nil)
	g.Seed(1)

	for i := 0; i < 40; i++ {
		g.Tick(context.Background())
	}
	for _, rec := range ing.recs {
		if rec.VehicleID == "bus-31" {
			return
		}
	}
	t.Fatal("drowsy vehicle never crossed the threshold")
}

func TestCorrectionAfterAlert(t *testing.T) {
	ing := &recordingIngester{}
	g := NewGenerator(ing, config.MockConfig{Threshold: 0.5}, nil)
	g.Seed(3)
	v := g.vehicles[2]
	v.offset = 2

	got := g.Tick(context.Background())
	if len(got) == 0 || got[len(got)-1].VehicleID != "bus-31" {
		t.Fatalf("expected bus-31 alert, got %+v", got)
	}
	if got[len(got)-1].Severity != alert.SeverityCritical {
		t.Errorf("severity = %s, want critical", got[len(got)-1].Severity)
	}
	if v.offset != 0 || v.cooldown != 3 {
		t.Errorf("offset=%v cooldown=%d after alert", v.offset, v.cooldown)
	}
}

func TestRejectedAlertsAreSkipped(t *testing.T) {
	ing := &recordingIngester{err: errors.New("rate")}
	g := NewGenerator(ing, config.MockConfig{Threshold: 0.5}, nil)
	g.vehicles[2].offset = 2

	if got := g.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("expected no accepted alerts, got %d", len(got))
	}
	if math.Abs(g.vehicles[2].offset) < 2 {
		t.Error("rejected alert should not reset the vehicle")
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		dev  float64
		want alert.Severity
	}{
		{0.5, alert.SeverityLow},
		{0.8, alert.SeverityMedium},
		{1.2, alert.SeverityHigh},
		{2.0, alert.SeverityCritical},
	}
	for _, tt := range tests {
		if got := severityFor(tt.dev); got != tt.want {
			t.Errorf("severityFor(%v) = %s, want %s", tt.dev, got, tt.want)
		}
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ing := &recordingIngester{}
	g := NewGenerator(ing, config.MockConfig{Interval: 5 * time.Millisecond, Threshold: 0.01}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	g.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for ing.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if ing.count() == 0 {
		t.Fatal("generator produced nothing")
	}
}
