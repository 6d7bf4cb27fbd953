package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAutomatedAppendsSummary(t *testing.T) {
	f := &TrainingFeedback{FeedbackSummary: "prefers morning runs"}

	f.MergeAutomated("knee felt sore on intervals", nil, nil)

	assert.Equal(t, "prefers morning runs\n\nknee felt sore on intervals", f.FeedbackSummary)
}

func TestMergeAutomatedEmptySummaryKeepsExisting(t *testing.T) {
	f := &TrainingFeedback{FeedbackSummary: "prefers morning runs"}

	f.MergeAutomated("", []string{"trail routes"}, nil)

	assert.Equal(t, "prefers morning runs", f.FeedbackSummary)
	assert.Equal(t, []string{"trail routes"}, f.Prefers)
}

func TestMergeAutomatedUnionsLists(t *testing.T) {
	f := &TrainingFeedback{
		Prefers:        []string{"morning runs", "trail routes"},
		StrugglingWith: []string{"intervals"},
	}

	f.MergeAutomated("summary",
		[]string{"trail routes", "long runs", ""},
		[]string{"intervals", "hills"})

	// Earlier entries keep their position; duplicates and empties are dropped.
	assert.Equal(t, []string{"morning runs", "trail routes", "long runs"}, f.Prefers)
	assert.Equal(t, []string{"intervals", "hills"}, f.StrugglingWith)
}

func TestInteracted(t *testing.T) {
	tests := []struct {
		name    string
		session TrainingSession
		want    bool
	}{
		{"untouched", TrainingSession{Status: StatusNotCompleted}, false},
		{"completed", TrainingSession{Status: StatusCompleted}, true},
		{"skipped", TrainingSession{Status: StatusSkipped}, true},
		{"notes only", TrainingSession{Status: StatusNotCompleted, PostSessionNotes: "felt great"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Interacted())
		})
	}
}
