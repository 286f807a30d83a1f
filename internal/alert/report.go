package alert

import "sort"

// SafetyReport summarises the alerts raised for one vehicle.
type SafetyReport struct {
	VehicleID       string           `json:"vehicle_id"`
	TotalAlerts     int              `json:"total_alerts"`
	AlertsSummary   map[Severity]int `json:"alerts_summary"`
	SafetyScore     float64          `json:"safety_score"`
	Recommendations string           `json:"recommendations"`
}

// BuildReport scores a vehicle from its alerts. The score starts at 100 and
// loses each alert's severity weight, floored at zero.
func BuildReport(vehicleID string, records []*Record) SafetyReport {
	rep := SafetyReport{
		VehicleID:     vehicleID,
		AlertsSummary: make(map[Severity]int),
	}
	penalty := 0
	for _, r := range records {
		if r.VehicleID != vehicleID {
			continue
		}
		rep.TotalAlerts++
		rep.AlertsSummary[r.Severity]++
		penalty += r.Severity.Weight()
	}
	rep.SafetyScore = float64(max(0, 100-penalty))
	rep.Recommendations = recommend(rep.SafetyScore)
	return rep
}

// BuildFleetReports returns one report per vehicle, ordered by vehicle ID.
func BuildFleetReports(records []*Record) []SafetyReport {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		if !seen[r.VehicleID] {
			seen[r.VehicleID] = true
			ids = append(ids, r.VehicleID)
		}
	}
	sort.Strings(ids)

	out := make([]SafetyReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, BuildReport(id, records))
	}
	return out
}

func recommend(score float64) string {
	switch {
	case score >= 90:
		return "No action needed."
	case score >= 70:
		return "Review lane keeping on long stretches."
	case score >= 40:
		return "Schedule a driver coaching session."
	default:
		return "Take the vehicle off rotation until the driver completes training."
	}
}
