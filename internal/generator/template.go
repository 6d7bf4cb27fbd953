package generator

import (
	"alcyxob/run-coach/internal/domain"
	"math"
	"time"
)

// templateSlot fixes a day and session type with a relative distance weight.
type templateSlot struct {
	day    int // 1 (Mon) - 7 (Sun)
	typ    string
	weight float64
}

// weekLayouts maps run frequency to a fixed day layout. The long run weight
// is roughly double an easy run so the distribution resembles a coached week.
var weekLayouts = map[int][]templateSlot{
	1: {{6, "Long Run", 1.0}},
	2: {{2, "Easy Run", 1.0}, {6, "Long Run", 1.6}},
	3: {{2, "Easy Run", 1.0}, {4, "Tempo Run", 1.0}, {6, "Long Run", 1.8}},
	4: {{2, "Easy Run", 1.0}, {3, "Tempo Run", 1.0}, {5, "Easy Run", 1.0}, {7, "Long Run", 2.0}},
	5: {{1, "Easy Run", 1.0}, {2, "Intervals", 0.8}, {4, "Tempo Run", 1.0}, {6, "Easy Run", 1.0}, {7, "Long Run", 2.0}},
	6: {{1, "Easy Run", 1.0}, {2, "Intervals", 0.8}, {3, "Easy Run", 0.8}, {4, "Tempo Run", 1.0}, {6, "Easy Run", 1.0}, {7, "Long Run", 2.0}},
	7: {{1, "Easy Run", 1.0}, {2, "Intervals", 0.8}, {3, "Easy Run", 0.8}, {4, "Tempo Run", 1.0}, {5, "Easy Run", 0.8}, {6, "Easy Run", 1.0}, {7, "Long Run", 2.0}},
}

// phaseVolumeScale shrinks or grows the weekly volume target by phase.
var phaseVolumeScale = map[domain.Phase]float64{
	domain.PhaseBase:     1.0,
	domain.PhaseBuild:    1.0,
	domain.PhasePeak:     1.1,
	domain.PhaseTaper:    0.6,
	domain.PhaseRaceWeek: 0.4,
	domain.PhaseRecovery: 0.5,
}

// TemplateWeek builds a deterministic 7-day plan from frequency, weekly
// volume and phase alone. It is the fallback when the external generator
// fails, so it must always succeed.
func TemplateWeek(runsPerWeek int, weeklyVolumeKm float64, phase domain.Phase, weekMonday time.Time, weekNumber int) []SessionProposal {
	freq := runsPerWeek
	if freq < 1 {
		freq = 3
	}
	if freq > 7 {
		freq = 7
	}
	if weeklyVolumeKm <= 0 {
		weeklyVolumeKm = 20
	}

	scale, ok := phaseVolumeScale[phase]
	if !ok {
		scale = 1.0
	}
	volume := weeklyVolumeKm * scale

	layout := weekLayouts[freq]
	totalWeight := 0.0
	for _, slot := range layout {
		totalWeight += slot.weight
	}

	monday := domain.MondayOf(weekMonday)
	byDay := make(map[int]SessionProposal, 7)
	for _, slot := range layout {
		km := math.Round(volume*slot.weight/totalWeight*10) / 10
		distance := km
		byDay[slot.day] = SessionProposal{
			Date:        monday.AddDate(0, 0, slot.day-1).Format(domain.DateLayout),
			DayOfWeek:   slot.day,
			SessionType: slot.typ,
			Distance:    &distance,
			WeekNumber:  weekNumber,
			Phase:       phase,
		}
	}

	proposals := make([]SessionProposal, 0, 7)
	for day := 1; day <= 7; day++ {
		if p, ok := byDay[day]; ok {
			proposals = append(proposals, p)
			continue
		}
		proposals = append(proposals, SessionProposal{
			Date:        monday.AddDate(0, 0, day-1).Format(domain.DateLayout),
			DayOfWeek:   day,
			SessionType: "Rest",
			WeekNumber:  weekNumber,
			Phase:       phase,
		})
	}
	return proposals
}
