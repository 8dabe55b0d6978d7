package quality

import "time"

// DashboardStats summarizes the issue store at one instant.
type DashboardStats struct {
	Total                 int            `json:"total"`
	Open                  int            `json:"open"`
	CreatedToday          int            `json:"createdToday"`
	AverageFixTimeMinutes float64        `json:"averageFixTimeMinutes"`
	ByStatus              map[Status]int `json:"byStatus"`
}

// ComputeDashboard aggregates issues without side effects. "Today" is the
// calendar day of now in now's location. Open counts everything not Approved.
func ComputeDashboard(issues []Issue, now time.Time) DashboardStats {
	stats := DashboardStats{ByStatus: make(map[Status]int, len(allStatuses))}
	for _, s := range allStatuses {
		stats.ByStatus[s] = 0
	}

	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	fixSum := 0
	fixCount := 0
	for _, issue := range issues {
		stats.Total++
		stats.ByStatus[issue.Status]++
		if issue.Status != StatusApproved {
			stats.Open++
		}

		created := issue.CreatedAt.In(loc)
		if !created.Before(dayStart) && created.Before(dayEnd) {
			stats.CreatedToday++
		}

		if issue.ActualFixTimeMinutes != nil {
			fixSum += *issue.ActualFixTimeMinutes
			fixCount++
		}
	}

	if fixCount > 0 {
		stats.AverageFixTimeMinutes = float64(fixSum) / float64(fixCount)
	}
	return stats
}
