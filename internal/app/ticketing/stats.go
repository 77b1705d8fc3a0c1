package ticketing

import (
	"math"

	"github.com/dalemusser/eventkey/internal/domain/models"
)

// Stats summarizes attendance for one or more events.
type Stats struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checkedIn"`
}

// ComputeStats counts tickets and checked-in tickets.
func ComputeStats(tickets []models.Ticket) Stats {
	st := Stats{Total: len(tickets)}
	for _, t := range tickets {
		if t.CheckedIn {
			st.CheckedIn++
		}
	}
	return st
}

// Rate is CheckedIn/Total, or 0 when there are no tickets.
func (s Stats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.CheckedIn) / float64(s.Total)
}

// Percent is Rate as a whole-number percentage, rounded half away from zero.
func (s Stats) Percent() int {
	return int(math.Round(s.Rate() * 100))
}

// Sum adds stats together.
func Sum(all ...Stats) Stats {
	var out Stats
	for _, s := range all {
		out.Total += s.Total
		out.CheckedIn += s.CheckedIn
	}
	return out
}
