package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress classification values emitted by the healing score reduction.
// These are part of the report contract consumed by the rendering
// collaborator and are kept in the upstream vocabulary.
const (
	ProgressImproving = "melhora"
	ProgressStable    = "estavel"
	ProgressWorsening = "piora"
)

// Comparison is the persisted output of one successful pipeline run over a
// pair of image analyses. It is created once per run and immutable after
// creation; newer comparisons supersede it rather than mutate it.
type Comparison struct {
	gorm.Model
	ComparisonID    string `json:"comparison_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID          uint   `json:"user_id" gorm:"index;not null"`
	PatientUniqueID string `json:"patient_unique_id" gorm:"type:varchar(36);index"`

	// Source references: evaluation ids when comparing stored evaluations,
	// otherwise raw image ids supplied by the caller.
	EarlierRef string `json:"earlier_ref" gorm:"not null"`
	LaterRef   string `json:"later_ref" gorm:"not null"`

	// Scalar score fields are duplicated out of the report document so
	// dashboards can query progression without unpacking JSON.
	AreaChangePercent float64 `json:"area_change_percent"`
	HealingScore      float64 `json:"healing_score"`
	Classification    string  `json:"classification" gorm:"type:varchar(16);index"`

	// Report holds the full structured report model handed to the rendering
	// collaborator, including both normalized analyses and the delta block.
	Report datatypes.JSON `json:"report" gorm:"type:json"`
}
