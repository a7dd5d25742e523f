package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinayojana/internal/intake"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestSynthesize_ClassicGridScenario(t *testing.T) {
	rec := intake.AnswerRecord{
		Template:      strPtr("Classic Grid (simple rows & columns)"),
		PeriodsPerDay: intPtr(4),
		Subjects:      []string{"Math", "Physics"},
		MorningBreak:  intPtr(15),
		LunchBreak:    intPtr(0),
	}

	s := Synthesize(rec, intake.NewRand(1), testNow)

	require.Len(t, s.Structure, 6)
	for _, day := range Days() {
		row, ok := s.Structure[day]
		require.True(t, ok, day)
		require.Len(t, row, 4)
		assert.Equal(t, LabelMorningBreak, row["Period 3"])
		for period, label := range row {
			assert.NotEqual(t, LabelLunchBreak, label, "%s %s", day, period)
			if period != "Period 3" {
				assert.Contains(t, []string{"Math", "Physics"}, label)
			}
		}
	}
	assert.Equal(t, StatusPendingApproval, s.Metadata.Status)
	assert.Equal(t, testNow, s.Metadata.CreatedAt)
	assert.Equal(t, []string{"Period 1", "Period 2", "Period 3", "Period 4"}, s.Metadata.Periods)
	assert.Equal(t, Days(), s.Metadata.Days)
}

func TestSynthesize_DefaultsWhenUnset(t *testing.T) {
	s := Synthesize(intake.AnswerRecord{}, intake.NewRand(3), testNow)

	require.Len(t, s.Structure, 6)
	for _, row := range s.Structure {
		require.Len(t, row, DefaultPeriodsPerDay)
		for _, label := range row {
			assert.Contains(t, DefaultSubjects(), label)
		}
	}
}

func TestSynthesize_LunchBreak(t *testing.T) {
	rec := intake.AnswerRecord{
		PeriodsPerDay: intPtr(6),
		Subjects:      []string{"Math"},
		MorningBreak:  intPtr(10),
		LunchBreak:    intPtr(45),
	}
	s := Synthesize(rec, intake.NewRand(5), testNow)

	for _, day := range Days() {
		assert.Equal(t, LabelMorningBreak, s.Structure[day]["Period 3"])
		assert.Equal(t, LabelLunchBreak, s.Structure[day]["Period 5"])
		assert.Equal(t, "Math", s.Structure[day]["Period 1"])
	}
}

func TestSynthesize_SubstringBreakRule(t *testing.T) {
	rec := intake.AnswerRecord{
		PeriodsPerDay: intPtr(15),
		Subjects:      []string{"Math"},
		MorningBreak:  intPtr(10),
		LunchBreak:    intPtr(30),
	}
	s := Synthesize(rec, intake.NewRand(5), testNow)

	monday := s.Structure["Monday"]
	assert.Equal(t, LabelMorningBreak, monday["Period 13"])
	// "Period 15" 同时含 "5"，但不含 "3"
	assert.Equal(t, LabelLunchBreak, monday["Period 15"])
	assert.Equal(t, "Math", monday["Period 14"])
}

func TestSynthesize_ReproducibleWithSeed(t *testing.T) {
	rec := intake.AnswerRecord{Subjects: []string{"A", "B", "C", "D", "E"}}
	a := Synthesize(rec, intake.NewRand(99), testNow)
	b := Synthesize(rec, intake.NewRand(99), testNow)
	assert.Equal(t, a, b)
}

func TestSynthesize_MetadataIsCopy(t *testing.T) {
	rec := intake.AnswerRecord{Subjects: []string{"Math"}}
	s := Synthesize(rec, intake.NewRand(1), testNow)
	rec.Subjects[0] = "Changed"
	assert.Equal(t, "Math", s.Metadata.Subjects[0])
}

func TestPeriodLabels(t *testing.T) {
	assert.Equal(t, []string{"Period 1", "Period 2"}, PeriodLabels(2))
	assert.Len(t, PeriodLabels(0), DefaultPeriodsPerDay)
	assert.Len(t, PeriodLabels(-1), DefaultPeriodsPerDay)
}

func TestSchedule_Table(t *testing.T) {
	rec := intake.AnswerRecord{PeriodsPerDay: intPtr(2), Subjects: []string{"Math"}}
	s := Synthesize(rec, intake.NewRand(1), testNow)

	table := s.Table()
	require.Len(t, table, 3)
	assert.Equal(t, append([]string{"Time/Day"}, Days()...), table[0])
	assert.Equal(t, "Period 1", table[1][0])
	assert.Equal(t, "Math", table[2][6])
}
