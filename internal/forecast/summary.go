package forecast

import (
	"slices"

	"seatcast/internal/calendar"
	"seatcast/internal/optimizer"
)

// Point is one day of the derived chart series.
type Point struct {
	Date        string  `json:"date"`
	Attending   int     `json:"attending"`
	Cumulative  int     `json:"cumulative"`
	Utilization float64 `json:"utilization"`
}

// Summary aggregates a sequence for tables and charts.
type Summary struct {
	Days             int     `json:"days"`
	TotalInvited     int     `json:"total_invited"`
	TotalConfirmed   int     `json:"total_confirmed"`
	TotalDeclined    int     `json:"total_declined"`
	TotalAttending   int     `json:"total_attending"`
	MedianAttending  float64 `json:"median_attending"`
	MeanUtilization  float64 `json:"mean_utilization"`
	PeakUtilization  float64 `json:"peak_utilization"`
	OverCapacityDays int     `json:"over_capacity_days"`
	FallbackDays     int     `json:"fallback_days"`
	Points           []Point `json:"points"`
}

// Summarize derives cumulative attendance and room utilization
// (attending / MaxCapacity) for every day, plus totals.
func Summarize(seq Sequence, policy optimizer.CapacityPolicy) Summary {
	s := Summary{Days: len(seq), Points: make([]Point, 0, len(seq))}
	if len(seq) == 0 {
		return s
	}

	attending := make([]int, 0, len(seq))
	utilSum := 0.0
	for _, d := range seq {
		s.TotalInvited += d.Invited
		s.TotalConfirmed += d.Confirmed
		s.TotalDeclined += d.Declined
		s.TotalAttending += d.Attending
		attending = append(attending, d.Attending)

		u := 0.0
		if policy.MaxCapacity > 0 {
			u = float64(d.Attending) / policy.MaxCapacity
		}
		utilSum += u
		s.PeakUtilization = max(s.PeakUtilization, u)
		if float64(d.Attending) > policy.MaxCapacity {
			s.OverCapacityDays++
		}
		if d.Fallback {
			s.FallbackDays++
		}

		s.Points = append(s.Points, Point{
			Date:        d.Date.Format(calendar.DateLayout),
			Attending:   d.Attending,
			Cumulative:  s.TotalAttending,
			Utilization: u,
		})
	}
	s.MeanUtilization = utilSum / float64(len(seq))
	s.MedianAttending = median(attending)
	return s
}

func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
}
