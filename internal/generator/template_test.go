package generator

import (
	"testing"
	"time"

	"alcyxob/run-coach/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMonday = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func TestTemplateWeekFillsSevenDays(t *testing.T) {
	proposals := TemplateWeek(3, 30, domain.PhaseBase, testMonday, 5)

	require.Len(t, proposals, 7)
	for i, p := range proposals {
		assert.Equal(t, i+1, p.DayOfWeek)
		assert.Equal(t, testMonday.AddDate(0, 0, i).Format(domain.DateLayout), p.Date)
		assert.Equal(t, 5, p.WeekNumber)
		assert.Equal(t, domain.PhaseBase, p.Phase)
	}

	var runs, rests int
	for _, p := range proposals {
		if p.SessionType == "Rest" {
			rests++
		} else {
			runs++
		}
	}
	assert.Equal(t, 3, runs)
	assert.Equal(t, 4, rests)
}

func TestTemplateWeekDistributesVolume(t *testing.T) {
	proposals := TemplateWeek(3, 30, domain.PhaseBase, testMonday, 1)

	var total float64
	var longest float64
	for _, p := range proposals {
		if p.Distance == nil {
			continue
		}
		total += *p.Distance
		if *p.Distance > longest {
			longest = *p.Distance
		}
	}
	// Rounding to 0.1 km per session keeps the total within a few hundred
	// meters of the target.
	assert.InDelta(t, 30, total, 0.3)
	// The long run carries the largest share.
	assert.Greater(t, longest, 30.0/3)
}

func TestTemplateWeekScalesVolumeByPhase(t *testing.T) {
	tests := []struct {
		phase domain.Phase
		want  float64
	}{
		{domain.PhaseBase, 40},
		{domain.PhasePeak, 44},
		{domain.PhaseTaper, 24},
		{domain.PhaseRaceWeek, 16},
		{domain.PhaseRecovery, 20},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			proposals := TemplateWeek(4, 40, tt.phase, testMonday, 1)
			var total float64
			for _, p := range proposals {
				if p.Distance != nil {
					total += *p.Distance
				}
			}
			assert.InDelta(t, tt.want, total, 0.3)
		})
	}
}

func TestTemplateWeekDefaultsAndClamps(t *testing.T) {
	// Zero frequency and volume fall back to a modest three-run week.
	proposals := TemplateWeek(0, 0, domain.PhaseBase, testMonday, 1)
	var runs int
	var total float64
	for _, p := range proposals {
		if p.SessionType != "Rest" {
			runs++
		}
		if p.Distance != nil {
			total += *p.Distance
		}
	}
	assert.Equal(t, 3, runs)
	assert.InDelta(t, 20, total, 0.3)

	// Frequencies above seven clamp to a run every day.
	proposals = TemplateWeek(9, 50, domain.PhaseBase, testMonday, 1)
	for _, p := range proposals {
		assert.NotEqual(t, "Rest", p.SessionType)
	}
}

func TestTemplateWeekIsDeterministic(t *testing.T) {
	a := TemplateWeek(5, 42, domain.PhaseBuild, testMonday, 3)
	b := TemplateWeek(5, 42, domain.PhaseBuild, testMonday, 3)
	assert.Equal(t, a, b)
}

func TestCleanProposals(t *testing.T) {
	d := 10.0
	proposals := []SessionProposal{
		{Date: "2024-06-11", SessionType: "Easy Run", Distance: &d, DayOfWeek: 9, WeekNumber: 99},
		{Date: "", SessionType: "Tempo Run"},
		{Date: "june 13th", SessionType: "Intervals"},
		{Date: "2024-06-16", SessionType: "Long Run"},
	}

	cleaned := CleanProposals(proposals, testMonday, 4, domain.PhaseBuild)

	require.Len(t, cleaned, 2)
	// Day-of-week, week number and phase are recomputed from the date, not
	// trusted from the generator.
	assert.Equal(t, 2, cleaned[0].DayOfWeek)
	assert.Equal(t, 4, cleaned[0].WeekNumber)
	assert.Equal(t, domain.PhaseBuild, cleaned[0].Phase)
	assert.Equal(t, 7, cleaned[1].DayOfWeek)
	assert.Equal(t, "2024-06-16", cleaned[1].Date)
}
