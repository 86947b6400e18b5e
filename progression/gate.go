package progression

import "fmt"

// GateResult is the outcome of the acquisition-quality check over a pair of
// analyses. A failed gate is a normal, frequent outcome, not an error: the
// pipeline stops, nothing is persisted, and the caller receives the alert.
type GateResult struct {
	Passed bool   `json:"passed"`
	Alert  string `json:"alert,omitempty"`
}

func imageQualityOK(q QualityAssessment) bool {
	return q.Lighting == LightingAdequate && q.Focus == FocusSharp
}

// EvaluateQualityGate passes only when both images were captured with
// adequate lighting and sharp focus. Deltas computed over poorly lit or
// blurred images are numerically meaningless, so the pipeline refuses to
// score them instead of scoring and caveating.
func EvaluateQualityGate(earlier, later ImageAnalysis) GateResult {
	if imageQualityOK(earlier.Quality) && imageQualityOK(later.Quality) {
		return GateResult{Passed: true}
	}

	return GateResult{
		Passed: false,
		Alert: fmt.Sprintf(
			"Qualidade de aquisição insuficiente para comparação (imagem 1: iluminação %q, foco %q; imagem 2: iluminação %q, foco %q). Recapture as imagens com iluminação adequada e foco nítido.",
			earlier.Quality.Lighting, earlier.Quality.Focus,
			later.Quality.Lighting, later.Quality.Focus,
		),
	}
}
