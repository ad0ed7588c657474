package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func cleanInput() ScoreInput {
	printed := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	return ScoreInput{
		Lines: []MachineLine{
			{MachineID: "m1", MoneyIn: d("100.00"), NetRevenue: d("40.00")},
			{MachineID: "m2", MoneyIn: d("200.00"), NetRevenue: d("60.00")},
		},
		ClaimedTotal:    d("100.00"),
		RecomputedTotal: d("100.00"),
		PrintedAt:       printed,
		PrevPrintedAt:   printed.Add(-24 * time.Hour),
		KnownMachines:   []string{"m1", "m2"},
	}
}

func TestScorePerfectReport(t *testing.T) {
	score, anomalies := NewScorer().Score(cleanInput())

	assert.Equal(t, 100, score)
	assert.Empty(t, anomalies)
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer()
	in := cleanInput()

	s1, a1 := s.Score(in)
	s2, a2 := s.Score(in)

	assert.Equal(t, s1, s2)
	assert.Equal(t, a1, a2)
}

func TestScoreMissingMachines(t *testing.T) {
	in := cleanInput()
	in.KnownMachines = []string{"m1", "m2", "m3", "m4"}

	score, anomalies := NewScorer().Score(in)

	// 2 of 4 machines present: half the completeness weight.
	assert.Equal(t, 100-weightCompleteness/2, score)
	assert.Contains(t, anomalies[0], "missing 2 of 4 known machines")
}

func TestScoreUnknownFleetGetsFullCompleteness(t *testing.T) {
	in := cleanInput()
	in.KnownMachines = nil

	score, anomalies := NewScorer().Score(in)

	assert.Equal(t, 100, score)
	assert.Empty(t, anomalies)
}

func TestScoreClaimedTotalMismatch(t *testing.T) {
	in := cleanInput()
	in.ClaimedTotal = d("105.00")

	score, anomalies := NewScorer().Score(in)

	assert.Equal(t, 100-weightConsistency, score)
	assert.Contains(t, anomalies[0], "105.00")
	assert.Contains(t, anomalies[0], "100.00")
}

func TestScoreMismatchWithinEpsilonPasses(t *testing.T) {
	in := cleanInput()
	in.ClaimedTotal = d("100.01")

	score, anomalies := NewScorer().Score(in)

	assert.Equal(t, 100, score)
	assert.Empty(t, anomalies)
}

func TestScoreTimingOutsideWindow(t *testing.T) {
	in := cleanInput()
	in.PrevPrintedAt = in.PrintedAt.Add(-40 * time.Hour)

	score, anomalies := NewScorer().Score(in)

	assert.Equal(t, 100-weightTiming, score)
	assert.Contains(t, anomalies[0], "40.0h")
}

func TestScoreFirstReportSkipsTiming(t *testing.T) {
	in := cleanInput()
	in.PrevPrintedAt = time.Time{}

	score, _ := NewScorer().Score(in)

	assert.Equal(t, 100, score)
}

func TestScoreNegativeMoneyField(t *testing.T) {
	in := cleanInput()
	in.Lines[0].NetRevenue = d("-5.00")
	in.RecomputedTotal = d("55.00")
	in.ClaimedTotal = d("55.00")

	score, anomalies := NewScorer().Score(in)

	assert.Equal(t, 100-weightNonNegativity, score)
	assert.Contains(t, anomalies[0], "m1")
}

func TestScoreEveryDeductionHasAReason(t *testing.T) {
	in := cleanInput()
	in.KnownMachines = []string{"m1", "m2", "m3"}
	in.ClaimedTotal = d("999.00")
	in.PrevPrintedAt = in.PrintedAt.Add(-2 * time.Hour)
	in.Lines[1].MoneyIn = d("-1.00")

	score, anomalies := NewScorer().Score(in)

	assert.Less(t, score, 100)
	assert.Len(t, anomalies, 4)
}

func TestScoreCustomWindow(t *testing.T) {
	in := cleanInput()
	in.PrevPrintedAt = in.PrintedAt.Add(-10 * time.Hour)

	score, _ := NewScorerWithWindow(8*time.Hour, 12*time.Hour).Score(in)

	assert.Equal(t, 100, score)
}
