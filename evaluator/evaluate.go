package evaluator

// Outcome is the terminal verdict a tick's evaluation may produce.
type Outcome int

const (
	None Outcome = iota
	Victory
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Victory:
		return "Victory"
	case Loss:
		return "Loss"
	}
	return "None"
}

// Conditions bundles one side's weights and threshold.
type Conditions struct {
	Weights   Weights
	Threshold float64
}

// DefaultVictory and DefaultLoss are the evaluator's out-of-the-box
// condition sets (DESIGN.md Open Question #3), overridable per scenario.
func DefaultVictory() Conditions {
	return Conditions{Weights: DefaultVictoryWeights(), Threshold: DefaultVictoryThreshold}
}

func DefaultLoss() Conditions {
	return Conditions{Weights: DefaultLossWeights(), Threshold: DefaultLossThreshold}
}

// Evaluate checks both condition sets against the same aggregated window
// and returns the terminal Outcome, or None if neither crosses its
// threshold. Victory takes precedence when both fire the same tick (P10,
// "a documented tie-break").
func Evaluate(s Stats, victory, loss Conditions) Outcome {
	victoryFires := Score(victory.Weights, s) >= victory.Threshold
	lossFires := Score(loss.Weights, s) >= loss.Threshold

	switch {
	case victoryFires:
		return Victory
	case lossFires:
		return Loss
	default:
		return None
	}
}
