package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Scoring weights. Stable by contract: operators compare scores across days,
// so reweighting is a breaking change to the dashboard's trust signal.
//
//	completeness     40  fraction of the venue's known machines present
//	consistency      25  hardware-claimed total matches recomputed sum within a cent
//	timing           20  gap since the venue's previous report inside the expected window
//	non-negativity   15  no negative money field on any machine line
const (
	weightCompleteness  = 40
	weightConsistency   = 25
	weightTiming        = 20
	weightNonNegativity = 15
)

// consistencyEpsilon is the tolerance between the hardware-claimed total and
// the server-recomputed sum of machine lines.
var consistencyEpsilon = decimal.NewFromFloat(0.01)

// ScoreInput carries everything the scorer needs about one report.
type ScoreInput struct {
	Lines           []MachineLine
	ClaimedTotal    decimal.Decimal // total printed by the hardware
	RecomputedTotal decimal.Decimal // server-side sum of line net revenue
	PrintedAt       time.Time
	PrevPrintedAt   time.Time // zero if the venue has no earlier report
	KnownMachines   []string  // from venue config; empty means unknown fleet
}

// Scorer computes a 0-100 data-quality score and anomaly list for a report.
// Pure and deterministic: identical input always yields identical output.
type Scorer struct {
	windowMin time.Duration
	windowMax time.Duration
}

// NewScorer creates a scorer with the default 20-28h daily reporting window.
func NewScorer() *Scorer {
	return &Scorer{windowMin: 20 * time.Hour, windowMax: 28 * time.Hour}
}

// NewScorerWithWindow creates a scorer with a custom reporting window.
func NewScorerWithWindow(min, max time.Duration) *Scorer {
	return &Scorer{windowMin: min, windowMax: max}
}

// Score evaluates one report. Every deducted point is explained by an anomaly
// reason, so any score below 100 carries at least one reason and a score
// below the review floor can never be silently low.
func (s *Scorer) Score(in ScoreInput) (int, []string) {
	score := 0
	var anomalies []string

	score += s.scoreCompleteness(in, &anomalies)
	score += s.scoreConsistency(in, &anomalies)
	score += s.scoreTiming(in, &anomalies)
	score += s.scoreNonNegativity(in, &anomalies)

	return score, anomalies
}

func (s *Scorer) scoreCompleteness(in ScoreInput, anomalies *[]string) int {
	// Without a configured machine list there is nothing to compare against.
	if len(in.KnownMachines) == 0 {
		return weightCompleteness
	}

	present := make(map[string]bool, len(in.Lines))
	for _, line := range in.Lines {
		present[line.MachineID] = true
	}

	missing := 0
	for _, id := range in.KnownMachines {
		if !present[id] {
			missing++
		}
	}

	if missing == 0 {
		return weightCompleteness
	}

	known := len(in.KnownMachines)
	*anomalies = append(*anomalies,
		fmt.Sprintf("missing %d of %d known machines", missing, known))

	return weightCompleteness * (known - missing) / known
}

func (s *Scorer) scoreConsistency(in ScoreInput, anomalies *[]string) int {
	diff := in.ClaimedTotal.Sub(in.RecomputedTotal).Abs()
	if diff.LessThanOrEqual(consistencyEpsilon) {
		return weightConsistency
	}

	*anomalies = append(*anomalies,
		fmt.Sprintf("hardware total %s disagrees with machine line sum %s",
			in.ClaimedTotal.StringFixed(2), in.RecomputedTotal.StringFixed(2)))
	return 0
}

func (s *Scorer) scoreTiming(in ScoreInput, anomalies *[]string) int {
	// First report for a venue has no gap to judge.
	if in.PrevPrintedAt.IsZero() {
		return weightTiming
	}

	gap := in.PrintedAt.Sub(in.PrevPrintedAt)
	if gap >= s.windowMin && gap <= s.windowMax {
		return weightTiming
	}

	*anomalies = append(*anomalies,
		fmt.Sprintf("gap since previous report is %.1fh, expected %.0f-%.0fh",
			gap.Hours(), s.windowMin.Hours(), s.windowMax.Hours()))
	return 0
}

func (s *Scorer) scoreNonNegativity(in ScoreInput, anomalies *[]string) int {
	negative := 0
	for _, line := range in.Lines {
		if line.MoneyIn.IsNegative() || line.NetRevenue.IsNegative() {
			negative++
			*anomalies = append(*anomalies,
				fmt.Sprintf("machine %s reports a negative money field", line.MachineID))
		}
	}

	if negative > 0 {
		return 0
	}
	return weightNonNegativity
}
