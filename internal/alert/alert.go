// Package alert defines the lane departure alert model shared by the feed
// server and the monitoring client, and the envelope both sides exchange.
package alert

import (
	"strings"
	"time"
)

// DefaultMessage is shown when an alert carries no description.
const DefaultMessage = "Lane departure detected"

// Severity grades how far a vehicle strayed from its lane.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Weight is the safety-score penalty for one alert of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 5
	case SeverityCritical:
		return 10
	}
	return 0
}

// Event is one inbound notification as seen by a monitoring client.
// Only Message is guaranteed; the rest is informational.
type Event struct {
	ID            string    `json:"id,omitempty"`
	Message       string    `json:"message"`
	VehicleID     string    `json:"vehicleId,omitempty"`
	Severity      Severity  `json:"severity,omitempty"`
	LaneDeviation float64   `json:"laneDeviation,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// ReceivedAt is stamped by the channel on arrival and never sent.
	ReceivedAt time.Time `json:"-"`
}

// Record is a dashcam lane departure alert as stored by the feed server.
type Record struct {
	ID            string    `json:"id"`
	DashcamID     string    `json:"dashcam_id" validate:"required"`
	VehicleID     string    `json:"vehicle_id" validate:"required"`
	Timestamp     time.Time `json:"timestamp"`
	Latitude      float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64   `json:"longitude" validate:"gte=-180,lte=180"`
	LaneDeviation float64   `json:"lane_deviation"`
	Description   string    `json:"description,omitempty"`
	Severity      Severity  `json:"severity" validate:"required,oneof=low medium high critical"`
}

// Message returns the text a client should display for r.
func (r *Record) Message() string {
	if d := strings.TrimSpace(r.Description); d != "" {
		return d
	}
	return DefaultMessage
}

// Event converts r into the payload published to monitoring clients.
func (r *Record) Event() Event {
	return Event{
		ID:            r.ID,
		Message:       r.Message(),
		VehicleID:     r.VehicleID,
		Severity:      r.Severity,
		LaneDeviation: r.LaneDeviation,
		Timestamp:     r.Timestamp,
	}
}
