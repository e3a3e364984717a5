package phases

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelPhases/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func labels(start string, phases ...models.Phase) []DayLabel {
	d := day(start)
	out := make([]DayLabel, len(phases))
	for i, p := range phases {
		out[i] = DayLabel{Date: d.AddDate(0, 0, i), Phase: p, Correlation: 0.4, Lag: 2, VolRatio: 1.5}
	}
	return out
}

const (
	A = models.PhaseAsymmetry
	I = models.PhaseInternalFactors
	N = models.PhaseNone
)

func TestGroupIntervalsDropsNone(t *testing.T) {
	got := GroupIntervals(labels("2024-01-01", N, A, A, N, I, I, I))
	require.Len(t, got, 2)
	assert.Equal(t, A, got[0].Phase)
	assert.Equal(t, day("2024-01-02"), got[0].StartDate)
	assert.Equal(t, day("2024-01-03"), got[0].EndDate)
	assert.Equal(t, 2, got[0].DurationDays)
	assert.Equal(t, I, got[1].Phase)
	assert.Equal(t, 3, got[1].DurationDays)
	assert.InDelta(t, 0.4, got[1].AvgCorrelation, 1e-12)
}

func TestGroupIntervalsUndefinedMetricsCountAsZero(t *testing.T) {
	days := labels("2024-01-01", A, A)
	days[1].Correlation = math.NaN()
	days[1].Lag = math.NaN()
	got := GroupIntervals(days)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.2, got[0].AvgCorrelation, 1e-12)
	assert.InDelta(t, 1.0, got[0].AvgLag, 1e-12)
}

func TestGroupIntervalsEmpty(t *testing.T) {
	assert.Empty(t, GroupIntervals(nil))
	assert.NotNil(t, GroupIntervals(nil))
}

func interval(p models.Phase, start, end string, dur int, corr float64) models.PhaseInterval {
	return models.PhaseInterval{Phase: p, StartDate: day(start), EndDate: day(end), DurationDays: dur, AvgCorrelation: corr}
}

func TestMergeIntervalsGap(t *testing.T) {
	merged := MergeIntervals([]models.PhaseInterval{
		interval(A, "2024-02-27", "2024-03-01", 4, 0.2),
		interval(A, "2024-03-03", "2024-03-04", 2, 0.5),
	}, 2)
	require.Len(t, merged, 1)
	assert.Equal(t, day("2024-03-04"), merged[0].EndDate)
	assert.Equal(t, 6, merged[0].DurationDays)
	assert.InDelta(t, 0.3, merged[0].AvgCorrelation, 1e-12)

	apart := MergeIntervals([]models.PhaseInterval{
		interval(A, "2024-02-27", "2024-03-01", 4, 0.2),
		interval(A, "2024-03-05", "2024-03-06", 2, 0.5),
	}, 2)
	assert.Len(t, apart, 2)
}

func TestMergeIntervalsDifferentPhase(t *testing.T) {
	got := MergeIntervals([]models.PhaseInterval{
		interval(A, "2024-03-01", "2024-03-02", 2, 0),
		interval(I, "2024-03-03", "2024-03-04", 2, 0),
		interval(A, "2024-03-05", "2024-03-06", 2, 0),
	}, 2)
	assert.Len(t, got, 3)
}

func TestMergeIntervalsChains(t *testing.T) {
	got := MergeIntervals([]models.PhaseInterval{
		interval(I, "2024-03-01", "2024-03-02", 2, 0),
		interval(I, "2024-03-04", "2024-03-05", 2, 0),
		interval(I, "2024-03-07", "2024-03-08", 2, 0),
	}, 2)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].DurationDays)
	assert.Equal(t, day("2024-03-08"), got[0].EndDate)
}

func TestFilterIntervals(t *testing.T) {
	got := FilterIntervals([]models.PhaseInterval{
		interval(A, "2024-03-01", "2024-03-04", 4, 0),
		interval(A, "2024-04-01", "2024-04-05", 5, 0),
	}, 5)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].DurationDays)
}

func TestBuildIntervalsMergesBeforeFiltering(t *testing.T) {
	// Two 3-day runs separated by a 1-day gap survive only as one merged run.
	got := BuildIntervals(labels("2024-05-01", I, I, I, N, I, I, I), 2, 5)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].DurationDays)
	assert.Equal(t, day("2024-05-01"), got[0].StartDate)
	assert.Equal(t, day("2024-05-07"), got[0].EndDate)
}

func TestGroupIntervalsCountsRowsAcrossCalendarGaps(t *testing.T) {
	dates := []string{"2024-06-03", "2024-06-04", "2024-06-06", "2024-06-07", "2024-06-10", "2024-06-11"}
	days := make([]DayLabel, len(dates))
	for i, d := range dates {
		days[i] = DayLabel{Date: day(d), Phase: I, Correlation: 0.1, Lag: 1, VolRatio: 2.5}
	}

	got := GroupIntervals(days)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].DurationDays)
	assert.Equal(t, day("2024-06-03"), got[0].StartDate)
	assert.Equal(t, day("2024-06-11"), got[0].EndDate)
	span := int(got[0].EndDate.Sub(got[0].StartDate).Hours()/24) + 1
	assert.Less(t, got[0].DurationDays, span)

	// Still kept by the filter: duration counts rows, not calendar days.
	assert.Len(t, BuildIntervals(days, 2, 6), 1)
	assert.Empty(t, BuildIntervals(days, 2, 7))
}
