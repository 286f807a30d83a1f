// Package mock simulates a small fleet of dashcam-equipped vehicles and
// feeds their lane departures into the alert server.
package mock

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/config"
)

// Ingester accepts generated alerts. *feed.Server satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, rec *alert.Record) (*alert.Record, error)
}

type mockVehicle struct {
	vehicleID string
	dashcamID string
	pattern   string
	lat, lon  float64
	heading   float64 // radians, used to move the position each tick
	offset    float64 // metres from lane centre, negative is left
	drift     float64 // metres per tick for the drowsy pattern
	cooldown  int     // ticks left before another alert may fire
}

type Generator struct {
	ingest    Ingester
	interval  time.Duration
	threshold float64
	rng       *rand.Rand
	log       logrus.FieldLogger
	vehicles  []*mockVehicle
	tick      int
}

func NewGenerator(ing Ingester, cfg config.MockConfig, log logrus.FieldLogger) *Generator {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Generator{
		ingest:    ing,
		interval:  interval,
		threshold: threshold,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log,
		vehicles: []*mockVehicle{
			{vehicleID: "truck-017", dashcamID: "cam-a1", pattern: "steady", lat: 52.5200, lon: 13.4050, heading: 0.3},
			{vehicleID: "van-204", dashcamID: "cam-b7", pattern: "weave", lat: 48.1372, lon: 11.5756, heading: 1.9},
			{vehicleID: "bus-31", dashcamID: "cam-c3", pattern: "drowsy", lat: 50.1109, lon: 8.6821, heading: 4.2, drift: 0.06},
		},
	}
}

// Seed makes the simulation deterministic.
func (g *Generator) Seed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// Start runs the simulation in the background until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// Tick advances every vehicle once and ingests an alert for each one that
// left its lane. It returns the accepted alerts.
func (g *Generator) Tick(ctx context.Context) []*alert.Record {
	g.tick++
	var out []*alert.Record
	for _, v := range g.vehicles {
		g.advance(v)
		if v.cooldown > 0 {
			v.cooldown--
			continue
		}
		if math.Abs(v.offset) < g.threshold {
			continue
		}

		rec := g.record(v)
		accepted, err := g.ingest.Ingest(ctx, rec)
		if err != nil {
			g.log.WithError(err).WithField("vehicle", v.vehicleID).Warn("mock alert rejected")
			continue
		}
		out = append(out, accepted)

		// The driver corrects after being warned.
		v.offset = 0
		v.cooldown = 3
	}
	return out
}

func (g *Generator) advance(v *mockVehicle) {
	switch v.pattern {
	case "steady":
		v.offset += g.rng.NormFloat64() * 0.15
	case "weave":
		v.offset = 0.8*math.Sin(float64(g.tick)/3) + g.rng.NormFloat64()*0.05
	case "drowsy":
		v.offset += v.drift + g.rng.NormFloat64()*0.02
	}

	const step = 0.0004
	v.lat += step * math.Cos(v.heading)
	v.lon += step * math.Sin(v.heading)
	v.heading += g.rng.NormFloat64() * 0.05
}

func (g *Generator) record(v *mockVehicle) *alert.Record {
	side := "right"
	if v.offset < 0 {
		side = "left"
	}
	dev := math.Abs(v.offset)
	return &alert.Record{
		DashcamID:     v.dashcamID,
		VehicleID:     v.vehicleID,
		Latitude:      v.lat,
		Longitude:     v.lon,
		LaneDeviation: math.Round(dev*100) / 100,
		Description:   fmt.Sprintf("%s drifted %.2f m %s of lane centre", v.vehicleID, dev, side),
		Severity:      severityFor(dev),
	}
}

func severityFor(dev float64) alert.Severity {
	switch {
	case dev >= 1.5:
		return alert.SeverityCritical
	case dev >= 1.0:
		return alert.SeverityHigh
	case dev >= 0.75:
		return alert.SeverityMedium
	default:
		return alert.SeverityLow
	}
}
