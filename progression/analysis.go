// Package progression implements the wound progression comparison and
// scoring pipeline: it normalizes the per-image analysis documents returned
// by the vision collaborator, gates pairs on acquisition quality, computes
// signed deltas across dimensional, colorimetric and textural metrics,
// reduces the deltas to a bounded healing score, and assembles the
// comparative report model.
package progression

import (
	"errors"
	"time"
)

// ErrMalformedAnalysis is returned when a required sub-object is missing
// from an ingested analysis document. Not retried; callers surface it as
// "cannot proceed, re-submit images".
var ErrMalformedAnalysis = errors.New("malformed analysis document")

// Acquisition-quality vocabulary of the vision collaborator. Values are
// Portuguese because that is the upstream wire contract.
const (
	LightingAdequate = "Adequada"
	FocusSharp       = "Nítido"
)

// Edema severity grades, ordered from absent to severe.
const (
	EdemaAbsent   = "Ausente"
	EdemaMild     = "Leve"
	EdemaModerate = "Moderado"
	EdemaSevere   = "Grave"
)

// QualityAssessment describes the acquisition conditions of one image.
type QualityAssessment struct {
	Lighting              string `json:"lighting"`
	Focus                 string `json:"focus"`
	Background            string `json:"background"`
	ReferenceScalePresent string `json:"referenceScalePresent"`
}

// LesionDimensions carries the principal lesion's width and length when the
// collaborator could measure them.
type LesionDimensions struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// DimensionalAnalysis holds the measured affected area for one image.
type DimensionalAnalysis struct {
	Unit              string            `json:"unit"`
	TotalAffectedArea float64           `json:"totalAffectedArea"`
	PrincipalLesion   *LesionDimensions `json:"principalLesion,omitempty"`
}

// DominantColor is one entry of the colorimetric analysis.
type DominantColor struct {
	Color       string  `json:"color"`
	Hex         string  `json:"hex"`
	AreaPercent float64 `json:"areaPercent"`
}

// ColorimetricAnalysis lists the dominant colors of the wound region.
// Area percentages are individually bounded to [0,100] but are not required
// to sum to 100: color bands may overlap. This is a documented tolerance of
// the upstream producer, not a defect.
type ColorimetricAnalysis struct {
	DominantColors []DominantColor `json:"dominantColors"`
}

// ColorBand is one bucket of the color histogram.
type ColorBand struct {
	Band         string  `json:"band"`
	PixelPercent float64 `json:"pixelPercent"`
}

// HistogramAnalysis carries the color-band pixel distribution.
type HistogramAnalysis struct {
	ColorBands []ColorBand `json:"colorBands"`
}

// TextureAssessment describes surface features of the wound.
type TextureAssessment struct {
	Edema            string `json:"edema"`
	Scaling          string `json:"scaling"`
	Sheen            string `json:"sheen"`
	HasDiscontinuity string `json:"hasDiscontinuity"`
	Edges            string `json:"edges"`
}

// ImageAnalysisDocument is the raw structured document returned by the
// vision collaborator for a single image. Sub-objects are pointers so
// ingestion can tell absent from zero-valued.
type ImageAnalysisDocument struct {
	Quality      *QualityAssessment    `json:"quality"`
	Dimensional  *DimensionalAnalysis  `json:"dimensional"`
	Colorimetric *ColorimetricAnalysis `json:"colorimetric"`
	Histogram    *HistogramAnalysis    `json:"histogram"`
	Texture      *TextureAssessment    `json:"texture"`
}

// ImageMetadata is caller-supplied context for one analyzed image.
type ImageMetadata struct {
	ImageID    string    `json:"imageId"`
	CapturedAt time.Time `json:"capturedAt"`
}

// ImageAnalysis is a normalized analysis: all sub-objects present, all
// percentages coerced into their declared ranges.
type ImageAnalysis struct {
	ImageID      string               `json:"imageId"`
	CapturedAt   time.Time            `json:"capturedAt"`
	Quality      QualityAssessment    `json:"quality"`
	Dimensional  DimensionalAnalysis  `json:"dimensional"`
	Colorimetric ColorimetricAnalysis `json:"colorimetric"`
	Histogram    HistogramAnalysis    `json:"histogram"`
	Texture      TextureAssessment    `json:"texture"`
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NormalizeAnalysis validates and normalizes a raw collaborator document.
// The quality and dimensional sub-objects are load-bearing for the quality
// gate and delta computation, so their absence fails with
// ErrMalformedAnalysis. Colorimetric, histogram and texture blocks are
// likewise required to be present; their numeric fields are coerced into
// [0,100]. Pure transform: it never calls the collaborator itself.
func NormalizeAnalysis(doc ImageAnalysisDocument, meta ImageMetadata) (ImageAnalysis, error) {
	if doc.Quality == nil {
		return ImageAnalysis{}, errors.Join(ErrMalformedAnalysis, errors.New("missing quality assessment"))
	}
	if doc.Dimensional == nil {
		return ImageAnalysis{}, errors.Join(ErrMalformedAnalysis, errors.New("missing dimensional analysis"))
	}
	if doc.Colorimetric == nil {
		return ImageAnalysis{}, errors.Join(ErrMalformedAnalysis, errors.New("missing colorimetric analysis"))
	}
	if doc.Histogram == nil {
		return ImageAnalysis{}, errors.Join(ErrMalformedAnalysis, errors.New("missing histogram analysis"))
	}
	if doc.Texture == nil {
		return ImageAnalysis{}, errors.Join(ErrMalformedAnalysis, errors.New("missing texture assessment"))
	}

	normalized := ImageAnalysis{
		ImageID:     meta.ImageID,
		CapturedAt:  meta.CapturedAt,
		Quality:     *doc.Quality,
		Dimensional: *doc.Dimensional,
		Texture:     *doc.Texture,
	}

	if normalized.Dimensional.TotalAffectedArea < 0 {
		normalized.Dimensional.TotalAffectedArea = 0
	}

	normalized.Colorimetric.DominantColors = make([]DominantColor, 0, len(doc.Colorimetric.DominantColors))
	for _, dc := range doc.Colorimetric.DominantColors {
		dc.AreaPercent = clampPercent(dc.AreaPercent)
		normalized.Colorimetric.DominantColors = append(normalized.Colorimetric.DominantColors, dc)
	}

	normalized.Histogram.ColorBands = make([]ColorBand, 0, len(doc.Histogram.ColorBands))
	for _, cb := range doc.Histogram.ColorBands {
		cb.PixelPercent = clampPercent(cb.PixelPercent)
		normalized.Histogram.ColorBands = append(normalized.Histogram.ColorBands, cb)
	}

	return normalized, nil
}
