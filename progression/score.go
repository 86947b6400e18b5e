package progression

// Classification values for the three-way progress outcome.
const (
	ClassificationImproving = "melhora"
	ClassificationStable    = "estavel"
	ClassificationWorsening = "piora"
)

// HealingScoreResult is the deterministic reduction of a delta block.
// Derived only; it is persisted solely as part of a Comparison.
type HealingScoreResult struct {
	AreaChangePercent        float64 `json:"areaChangePercent"`
	HealingScore             float64 `json:"healingScore"`
	TissueImprovementPercent float64 `json:"tissueImprovementPercent"`
	Classification           string  `json:"classification"`
}

// ComputeHealingScore reduces a delta block to a bounded healing score and a
// three-way progress classification. The reduction is a weighted heuristic,
// not a calibrated clinical model, and must stay a pure function of its
// input: identical delta blocks always yield identical scores, which the
// generated reports rely on for clinical auditability.
//
// Starting from a neutral baseline of 50, a shrinking area adds twice its
// magnitude and a growing area subtracts it, edema direction contributes
// ±15, texture direction ±10, and the result is clamped to [0,100].
// Scores above 60 classify as melhora, below 40 as piora, otherwise estavel.
func ComputeHealingScore(deltas DeltaBlock) HealingScoreResult {
	score := 50.0

	if deltas.AreaDeltaPercent < 0 {
		score += 2 * -deltas.AreaDeltaPercent
	} else {
		score -= 2 * deltas.AreaDeltaPercent
	}

	switch deltas.EdemaDirection {
	case DirectionImproving:
		score += 15
	case DirectionWorsening:
		score -= 15
	}

	switch deltas.TextureDirection {
	case DirectionImproving:
		score += 10
	case DirectionWorsening:
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	classification := ClassificationStable
	if score > 60 {
		classification = ClassificationImproving
	} else if score < 40 {
		classification = ClassificationWorsening
	}

	return HealingScoreResult{
		AreaChangePercent:        deltas.AreaDeltaPercent,
		HealingScore:             score,
		TissueImprovementPercent: score,
		Classification:           classification,
	}
}
