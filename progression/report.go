package progression

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ReportDeltas is the human-readable delta block of the report model.
type ReportDeltas struct {
	Area              string `json:"area"`
	Hyperpigmentation string `json:"hyperpigmentation"`
	Erythema          string `json:"erythema"`
	NewColors         string `json:"newColors,omitempty"`
	Edema             string `json:"edema"`
	Texture           string `json:"texture"`
}

// Report is the structured comparison report model consumed by the
// rendering collaborator.
type Report struct {
	Period         string             `json:"period"`
	Interval       string             `json:"interval"`
	QualityWarning string             `json:"qualityWarning,omitempty"`
	Deltas         ReportDeltas       `json:"deltas"`
	Score          HealingScoreResult `json:"score"`
	Summary        string             `json:"summary"`

	// Full normalized analyses and raw delta block travel with the report so
	// the renderer and reviewers can drill into the source numbers.
	EarlierAnalysis ImageAnalysis `json:"earlierAnalysis"`
	LaterAnalysis   ImageAnalysis `json:"laterAnalysis"`
	RawDeltas       DeltaBlock    `json:"rawDeltas"`
}

// SummaryRequest is the structured bundle handed to the narrative
// collaborator. The assembler performs no natural-language generation
// itself; it only builds this request and places the returned text into the
// report model.
type SummaryRequest struct {
	Period   string             `json:"period"`
	Interval string             `json:"interval"`
	Earlier  ImageAnalysis      `json:"earlier"`
	Later    ImageAnalysis      `json:"later"`
	Deltas   DeltaBlock         `json:"deltas"`
	Score    HealingScoreResult `json:"score"`
}

// Summarizer generates the narrative evolution summary for a report bundle.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// FormatInterval renders the elapsed time between two captures the way the
// reports phrase it ("48 horas", "12 dias").
func FormatInterval(earlier, later time.Time) string {
	elapsed := later.Sub(earlier)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	hours := int(elapsed.Hours())
	if hours < 72 {
		return fmt.Sprintf("%d horas", hours)
	}
	return fmt.Sprintf("%d dias", hours/24)
}

// FormatPeriod renders the analysis period from the two capture timestamps.
func FormatPeriod(earlier, later time.Time) string {
	const layout = "02/01/2006 15:04"
	return fmt.Sprintf("%s a %s", earlier.Format(layout), later.Format(layout))
}

// qualityInconsistencyWarning flags acquisition differences that passed the
// gate but still weaken the comparison (inconsistent background, missing
// reference scale). Empty when the pair is consistent.
func qualityInconsistencyWarning(earlier, later ImageAnalysis) string {
	var notes []string
	if earlier.Quality.Background != later.Quality.Background {
		notes = append(notes, "fundo inconsistente entre as imagens")
	}
	if earlier.Quality.ReferenceScalePresent != "Sim" || later.Quality.ReferenceScalePresent != "Sim" {
		notes = append(notes, "escala de referência ausente em pelo menos uma imagem")
	}
	if len(notes) == 0 {
		return ""
	}
	return "Atenção: " + strings.Join(notes, "; ") + "."
}

func formatSignedPercent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

func formatReportDeltas(deltas DeltaBlock) ReportDeltas {
	return ReportDeltas{
		Area:              formatSignedPercent(deltas.AreaDeltaPercent),
		Hyperpigmentation: formatSignedPercent(deltas.HyperpigmentationDelta),
		Erythema:          formatSignedPercent(deltas.ErythemaDelta),
		NewColors:         strings.Join(deltas.NewColors, ", "),
		Edema:             deltas.EdemaTransition,
		Texture:           deltas.TextureDescription,
	}
}

// AssembleReport combines the two analyses, the delta block and the healing
// score into the report model, fetching the narrative summary from the
// collaborator. A collaborator failure aborts assembly; the caller persists
// nothing in that case.
func AssembleReport(ctx context.Context, summarizer Summarizer, earlier, later ImageAnalysis, deltas DeltaBlock, score HealingScoreResult) (Report, error) {
	report := Report{
		Period:          FormatPeriod(earlier.CapturedAt, later.CapturedAt),
		Interval:        FormatInterval(earlier.CapturedAt, later.CapturedAt),
		QualityWarning:  qualityInconsistencyWarning(earlier, later),
		Deltas:          formatReportDeltas(deltas),
		Score:           score,
		EarlierAnalysis: earlier,
		LaterAnalysis:   later,
		RawDeltas:       deltas,
	}

	summary, err := summarizer.Summarize(ctx, SummaryRequest{
		Period:   report.Period,
		Interval: report.Interval,
		Earlier:  earlier,
		Later:    later,
		Deltas:   deltas,
		Score:    score,
	})
	if err != nil {
		return Report{}, fmt.Errorf("narrative summary generation failed: %w", err)
	}
	report.Summary = summary

	return report, nil
}
