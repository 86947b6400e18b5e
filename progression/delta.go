package progression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Direction is the tagged progression direction of one delta dimension.
// Structured inputs (ordinal grades) produce it directly; free-text inputs
// fall back to keyword classification.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionWorsening Direction = "worsening"
	DirectionNeutral   Direction = "neutral"
)

// Keyword stocks used to classify free-text delta descriptions coming from
// the narrative-influenced upstream. Matching is case-insensitive.
var (
	edemaImprovingWords   = []string{"redução", "diminuição"}
	edemaWorseningWords   = []string{"aumento"}
	textureImprovingWords = []string{"melhora", "melhor"}
	textureWorseningWords = []string{"piora"}

	hyperpigmentationWords = []string{"hiperpigment", "marrom", "castanh", "escur"}
	erythemaWords          = []string{"eritema", "vermelh", "rubor"}
)

// NarrativeDeltas carries optional free-text delta descriptions from the
// upstream narrative, used only when structured values are unavailable.
type NarrativeDeltas struct {
	Area    string `json:"area,omitempty"`
	Edema   string `json:"edema,omitempty"`
	Texture string `json:"texture,omitempty"`
}

// DeltaBlock is the signed/categorical difference between two analyses.
// Every field degrades to a neutral/zero contribution when its inputs are
// missing or unparseable; warnings record what degraded. The block never
// carries an error: the upstream producer is best-effort and
// natural-language influenced, so leniency here is deliberate.
type DeltaBlock struct {
	AreaDeltaPercent float64 `json:"areaDeltaPercent"`

	HyperpigmentationDelta float64  `json:"hyperpigmentationDelta"`
	ErythemaDelta          float64  `json:"erythemaDelta"`
	NewColors              []string `json:"newColors,omitempty"`

	EdemaTransition string    `json:"edemaTransition"`
	EdemaDirection  Direction `json:"edemaDirection"`

	TextureDescription string    `json:"textureDescription"`
	TextureDirection   Direction `json:"textureDirection"`

	Warnings []string `json:"warnings,omitempty"`
}

// ParseSignedMagnitude extracts the first signed numeric token from a
// free-text magnitude such as "+2.5 cm²" or "-5%". The second return value
// reports whether a token was found; callers treat a missed parse as a zero
// delta with a warning, never as an error.
func ParseSignedMagnitude(text string) (float64, bool) {
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		start := i
		if r == '+' || r == '-' {
			if i+1 >= len(runes) || !unicode.IsDigit(runes[i+1]) {
				continue
			}
			i++
		} else if !unicode.IsDigit(r) {
			continue
		}

		// Consume digits and at most one decimal separator. The upstream
		// narrative uses both "." and "," as decimal marks.
		end := i
		seenSeparator := false
		for end < len(runes) {
			c := runes[end]
			if unicode.IsDigit(c) {
				end++
				continue
			}
			if (c == '.' || c == ',') && !seenSeparator && end+1 < len(runes) && unicode.IsDigit(runes[end+1]) {
				seenSeparator = true
				end++
				continue
			}
			break
		}

		token := strings.ReplaceAll(string(runes[start:end]), ",", ".")
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

func classifyTextDirection(text string, improving, worsening []string) Direction {
	lowered := strings.ToLower(text)
	for _, w := range improving {
		if strings.Contains(lowered, w) {
			return DirectionImproving
		}
	}
	for _, w := range worsening {
		if strings.Contains(lowered, w) {
			return DirectionWorsening
		}
	}
	return DirectionNeutral
}

func matchesAny(label string, words []string) bool {
	lowered := strings.ToLower(label)
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// colorClassPercent sums the area percentage of dominant colors whose label
// matches the given keyword class.
func colorClassPercent(analysis ColorimetricAnalysis, words []string) float64 {
	var total float64
	for _, dc := range analysis.DominantColors {
		if matchesAny(dc.Color, words) {
			total += dc.AreaPercent
		}
	}
	return total
}

// newColorLabels returns labels present only in the later analysis. They are
// surfaced as a "new coloration" note rather than folded into a delta.
func newColorLabels(earlier, later ColorimetricAnalysis) []string {
	known := make(map[string]struct{}, len(earlier.DominantColors))
	for _, dc := range earlier.DominantColors {
		known[strings.ToLower(strings.TrimSpace(dc.Color))] = struct{}{}
	}

	var fresh []string
	for _, dc := range later.DominantColors {
		key := strings.ToLower(strings.TrimSpace(dc.Color))
		if _, ok := known[key]; !ok {
			fresh = append(fresh, dc.Color)
		}
	}
	return fresh
}

// edemaOrdinal maps an edema grade onto the ordinal severity scale.
// Unknown grades return -1.
func edemaOrdinal(grade string) int {
	switch grade {
	case EdemaAbsent:
		return 0
	case EdemaMild:
		return 1
	case EdemaModerate:
		return 2
	case EdemaSevere:
		return 3
	}
	return -1
}

func areaDelta(earlier, later ImageAnalysis, narrative NarrativeDeltas, warnings *[]string) float64 {
	if earlier.Dimensional.TotalAffectedArea > 0 {
		e := earlier.Dimensional.TotalAffectedArea
		l := later.Dimensional.TotalAffectedArea
		return (l - e) / e * 100
	}

	if narrative.Area != "" {
		if value, ok := ParseSignedMagnitude(narrative.Area); ok {
			return value
		}
		*warnings = append(*warnings, fmt.Sprintf("área: magnitude não numérica %q, delta assumido como 0", narrative.Area))
		return 0
	}

	*warnings = append(*warnings, "área: sem medida dimensional nem magnitude narrativa, delta assumido como 0")
	return 0
}

func edemaDelta(earlier, later ImageAnalysis, narrative NarrativeDeltas) (string, Direction) {
	from := edemaOrdinal(earlier.Texture.Edema)
	to := edemaOrdinal(later.Texture.Edema)

	if from >= 0 && to >= 0 {
		transition := fmt.Sprintf("de %s para %s", earlier.Texture.Edema, later.Texture.Edema)
		switch {
		case to < from:
			return transition, DirectionImproving
		case to > from:
			return transition, DirectionWorsening
		default:
			return transition, DirectionNeutral
		}
	}

	// Legacy path: grade vocabulary unknown, classify the narrative text.
	if narrative.Edema != "" {
		return narrative.Edema, classifyTextDirection(narrative.Edema, edemaImprovingWords, edemaWorseningWords)
	}
	return fmt.Sprintf("de %s para %s", earlier.Texture.Edema, later.Texture.Edema), DirectionNeutral
}

func textureDelta(earlier, later ImageAnalysis, narrative NarrativeDeltas) (string, Direction) {
	if narrative.Texture != "" {
		return narrative.Texture, classifyTextDirection(narrative.Texture, textureImprovingWords, textureWorseningWords)
	}

	if earlier.Texture == later.Texture {
		return "sem alteração de textura", DirectionNeutral
	}

	description := fmt.Sprintf(
		"descamação %s para %s, brilho %s para %s, bordas %s para %s",
		earlier.Texture.Scaling, later.Texture.Scaling,
		earlier.Texture.Sheen, later.Texture.Sheen,
		earlier.Texture.Edges, later.Texture.Edges,
	)
	return description, classifyTextDirection(description, textureImprovingWords, textureWorseningWords)
}

// ComputeDeltas produces the signed and categorical deltas between an
// earlier and a later analysis of the same wound. The narrative deltas are
// the legacy free-text fallback for fields the structured analyses cannot
// answer.
func ComputeDeltas(earlier, later ImageAnalysis, narrative NarrativeDeltas) DeltaBlock {
	var warnings []string

	block := DeltaBlock{
		AreaDeltaPercent:       areaDelta(earlier, later, narrative, &warnings),
		HyperpigmentationDelta: colorClassPercent(later.Colorimetric, hyperpigmentationWords) - colorClassPercent(earlier.Colorimetric, hyperpigmentationWords),
		ErythemaDelta:          colorClassPercent(later.Colorimetric, erythemaWords) - colorClassPercent(earlier.Colorimetric, erythemaWords),
		NewColors:              newColorLabels(earlier.Colorimetric, later.Colorimetric),
	}

	block.EdemaTransition, block.EdemaDirection = edemaDelta(earlier, later, narrative)
	block.TextureDescription, block.TextureDirection = textureDelta(earlier, later, narrative)
	block.Warnings = warnings

	return block
}
