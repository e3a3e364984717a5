package phases

import (
	"math"
	"time"

	"FuelPhases/internal/domain/models"
)

// DayLabel is one classified day fed to the IntervalBuilder.
type DayLabel struct {
	Date        time.Time
	Phase       models.Phase
	Correlation float64
	Lag         float64
	VolRatio    float64
}

type accumulator struct {
	phase    models.Phase
	start    time.Time
	end      time.Time
	count    int
	sumCorr  float64
	sumLag   float64
	sumRatio float64
}

func (a *accumulator) interval() models.PhaseInterval {
	n := float64(a.count)
	return models.PhaseInterval{
		Phase:          a.phase,
		StartDate:      a.start,
		EndDate:        a.end,
		DurationDays:   a.count,
		AvgCorrelation: a.sumCorr / n,
		AvgLag:         a.sumLag / n,
		AvgVolRatio:    a.sumRatio / n,
	}
}

// IntervalBuilder groups a chronological stream of labelled days into runs.
// It holds at most one open run; NONE runs are discarded when they close.
type IntervalBuilder struct {
	open *accumulator
	out  []models.PhaseInterval
}

// Add extends the open run or closes it and opens a new one.
func (b *IntervalBuilder) Add(d DayLabel) {
	if b.open == nil || b.open.phase != d.Phase {
		b.flush()
		b.open = &accumulator{phase: d.Phase, start: d.Date}
	}
	b.open.end = d.Date
	b.open.count++
	b.open.sumCorr += zeroIfNaN(d.Correlation)
	b.open.sumLag += zeroIfNaN(d.Lag)
	b.open.sumRatio += zeroIfNaN(d.VolRatio)
}

// Close flushes the open run and returns every non-NONE run in order.
func (b *IntervalBuilder) Close() []models.PhaseInterval {
	b.flush()
	out := b.out
	b.out = nil
	if out == nil {
		out = []models.PhaseInterval{}
	}
	return out
}

func (b *IntervalBuilder) flush() {
	if b.open == nil {
		return
	}
	if b.open.phase != models.PhaseNone {
		b.out = append(b.out, b.open.interval())
	}
	b.open = nil
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// GroupIntervals builds the raw runs of a labelled day sequence.
func GroupIntervals(days []DayLabel) []models.PhaseInterval {
	var b IntervalBuilder
	for _, d := range days {
		b.Add(d)
	}
	return b.Close()
}

// MergeIntervals joins an interval into its predecessor when both carry the
// same phase and the calendar gap between them is at most maxGap+1 days.
// Averages of merged intervals are duration-weighted.
func MergeIntervals(in []models.PhaseInterval, maxGap int) []models.PhaseInterval {
	out := make([]models.PhaseInterval, 0, len(in))
	for _, next := range in {
		if len(out) == 0 {
			out = append(out, next)
			continue
		}
		cur := &out[len(out)-1]
		if cur.Phase != next.Phase || daysBetween(cur.EndDate, next.StartDate) > maxGap+1 {
			out = append(out, next)
			continue
		}
		total := cur.DurationDays + next.DurationDays
		w1 := float64(cur.DurationDays) / float64(total)
		w2 := float64(next.DurationDays) / float64(total)
		cur.EndDate = next.EndDate
		cur.AvgCorrelation = cur.AvgCorrelation*w1 + next.AvgCorrelation*w2
		cur.AvgLag = cur.AvgLag*w1 + next.AvgLag*w2
		cur.AvgVolRatio = cur.AvgVolRatio*w1 + next.AvgVolRatio*w2
		cur.DurationDays = total
	}
	return out
}

// FilterIntervals drops intervals shorter than minDays.
func FilterIntervals(in []models.PhaseInterval, minDays int) []models.PhaseInterval {
	out := make([]models.PhaseInterval, 0, len(in))
	for _, p := range in {
		if p.DurationDays >= minDays {
			out = append(out, p)
		}
	}
	return out
}

// BuildIntervals groups, merges and filters in that order.
func BuildIntervals(days []DayLabel, maxGap, minDays int) []models.PhaseInterval {
	return FilterIntervals(MergeIntervals(GroupIntervals(days), maxGap), minDays)
}

func daysBetween(a, b time.Time) int {
	return int(dayNumber(b) - dayNumber(a))
}

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
