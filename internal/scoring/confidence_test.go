package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeConfidence_Empty(t *testing.T) {
	c := ComputeConfidence(Snapshot{})
	assert.Zero(t, c.Overall)
	assert.Equal(t, LevelLow, c.Level)
}

func TestComputeConfidence_FullRunIsHigh(t *testing.T) {
	c := ComputeConfidence(Snapshot{
		CompanyFound:       true,
		CompanyConfidence:  0.9,
		CompanyPageFound:   true,
		ConnectionCount:    5,
		VerifiedCount:      2,
		DecisionMakerCount: 1,
		SearchConfidence:   0.7,
		NewsCount:          5,
		CalendarsFound:     4,
		CalendarCurrent:    true,
	})
	assert.GreaterOrEqual(t, c.Overall, 0.7)
	assert.Equal(t, LevelHigh, c.Level)
}

func TestConnectionConfidence_Blend(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{"nothing", Snapshot{}, 0},
		{"raw only", Snapshot{ConnectionCount: 2, SearchConfidence: 0.5}, 0.5},
		{"verified bonus", Snapshot{ConnectionCount: 2, SearchConfidence: 0.5, VerifiedCount: 1}, 0.7},
		{"all bonuses", Snapshot{ConnectionCount: 2, SearchConfidence: 0.5, VerifiedCount: 1, DecisionMakerCount: 1, CompanyPageFound: true}, 0.95},
		{"clamped", Snapshot{ConnectionCount: 2, SearchConfidence: 0.9, VerifiedCount: 1, DecisionMakerCount: 1, CompanyPageFound: true}, 1.0},
		{"page only", Snapshot{CompanyPageFound: true}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, connectionConfidence(tt.snap), 0.001)
		})
	}
}

func TestCalendarConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, calendarConfidence(Snapshot{CalendarsFound: 1}), 0.001)
	assert.InDelta(t, 0.4, calendarConfidence(Snapshot{CalendarsFound: 1, CalendarCurrent: true}), 0.001)
	assert.InDelta(t, 1.0, calendarConfidence(Snapshot{CalendarsFound: 5, CalendarCurrent: true}), 0.001)
}

func TestNewsConfidence(t *testing.T) {
	assert.Zero(t, newsConfidence(Snapshot{}))
	assert.InDelta(t, 0.4, newsConfidence(Snapshot{NewsCount: 2}), 0.001)
	assert.InDelta(t, 1.0, newsConfidence(Snapshot{NewsCount: 9}), 0.001)
}

func TestConfidenceLevel(t *testing.T) {
	assert.Equal(t, LevelHigh, ConfidenceLevel(0.7))
	assert.Equal(t, LevelMedium, ConfidenceLevel(0.4))
	assert.Equal(t, LevelMedium, ConfidenceLevel(0.69))
	assert.Equal(t, LevelLow, ConfidenceLevel(0.39))
}

func TestComputeConfidence_Idempotent(t *testing.T) {
	s := Snapshot{CompanyFound: true, CompanyConfidence: 0.6, ConnectionCount: 1, SearchConfidence: 0.4}
	assert.Equal(t, ComputeConfidence(s), ComputeConfidence(s))
}
