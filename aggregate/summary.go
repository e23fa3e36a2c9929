package aggregate

import (
	"math"

	"commuteatlas/model"
)

// Summary describes one run's output for logging and the run history.
type Summary struct {
	Employees  int
	Matched    int
	Flagged    int
	AvgMiles   float64
	AvgMinutes float64
	MaxMiles   float64
	MaxMinutes float64
}

type SummaryAggregator struct {
	employees    int
	matched      int
	flagged      int
	totalMiles   float64
	totalMinutes float64
	maxMiles     float64
	maxMinutes   float64
}

func NewSummaryAggregator() *SummaryAggregator {
	return &SummaryAggregator{}
}

func (a *SummaryAggregator) Add(row model.CommuteRow) {
	if a == nil {
		return
	}
	a.employees++
	if row.Flagged {
		a.flagged++
		return
	}
	a.matched++
	a.totalMiles += row.Miles
	a.totalMinutes += row.Minutes
	a.maxMiles = math.Max(a.maxMiles, row.Miles)
	a.maxMinutes = math.Max(a.maxMinutes, row.Minutes)
}

func (a *SummaryAggregator) Result() Summary {
	if a == nil {
		return Summary{}
	}
	summary := Summary{
		Employees:  a.employees,
		Matched:    a.matched,
		Flagged:    a.flagged,
		MaxMiles:   a.maxMiles,
		MaxMinutes: a.maxMinutes,
	}
	if a.matched > 0 {
		summary.AvgMiles = a.totalMiles / float64(a.matched)
		summary.AvgMinutes = a.totalMinutes / float64(a.matched)
	}
	return summary
}

// Metrics flattens the summary for the run-history store. Averages are
// stored as hundredths to keep the column integral.
func (s Summary) Metrics() map[string]int64 {
	return map[string]int64{
		"employees":           int64(s.Employees),
		"matched":             int64(s.Matched),
		"flagged":             int64(s.Flagged),
		"avg_miles_hundredth": int64(math.Round(s.AvgMiles * 100)),
		"avg_mins_hundredth":  int64(math.Round(s.AvgMinutes * 100)),
	}
}
