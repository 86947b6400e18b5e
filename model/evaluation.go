package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store-level lookup failures, surfaced verbatim to callers.
var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
)

// Evaluation is one wound assessment event. The (PatientUniqueID,
// EvaluationVersion) pair is immutable after creation: it is the stable
// reference comparisons point to. Versions per patient form a contiguous
// sequence starting at 1, enforced by the composite unique index plus
// transactional assignment.
//
// The clinical fields follow the TIMERS mnemonic (Tissue,
// Infection/Inflammation, Moisture, Edge, Repair, Social factors) of the
// anamnesis protocol.
type Evaluation struct {
	gorm.Model
	EvaluationID      string    `json:"evaluation_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	PatientUniqueID   string    `json:"patient_unique_id" gorm:"type:varchar(36);uniqueIndex:idx_patient_version;not null"`
	EvaluationVersion int       `json:"evaluation_version" gorm:"uniqueIndex:idx_patient_version;not null"`
	CapturedAt        time.Time `json:"captured_at"`

	// Demographic snapshot, carried over from the previous evaluation on follow-ups.
	PatientName   string `json:"patient_name" gorm:"not null"`
	BirthDate     string `json:"birth_date"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Profession    string `json:"profession"`
	MaritalStatus string `json:"marital_status"`

	// S - social / self-care, carried over on follow-ups.
	ActivityLevel     string `json:"activity_level"`
	SocialSupport     string `json:"social_support"`
	NutritionalStatus string `json:"nutritional_status"`
	Smoker            bool   `json:"smoker"`
	AlcoholUse        bool   `json:"alcohol_use"`

	// Clinical history, carried over on follow-ups. Comorbidities and
	// medications are tag->detail maps instead of flat boolean columns so the
	// schema stays extensible without field sprawl.
	TreatmentGoal  string         `json:"treatment_goal"`
	HealingHistory string         `json:"healing_history"`
	Allergies      string         `json:"allergies"`
	Comorbidities  datatypes.JSON `json:"comorbidities" gorm:"type:json"`
	Medications    datatypes.JSON `json:"medications" gorm:"type:json"`

	// T - tissue. Wound-specific, reset on follow-ups.
	WoundLocation      string  `json:"wound_location"`
	WoundEtiology      string  `json:"wound_etiology"`
	EvolutionTime      string  `json:"evolution_time"`
	WoundWidthCm       float64 `json:"wound_width_cm"`
	WoundLengthCm      float64 `json:"wound_length_cm"`
	WoundDepthCm       float64 `json:"wound_depth_cm"`
	GranulationPercent float64 `json:"granulation_percent"`
	EpithelialPercent  float64 `json:"epithelial_percent"`
	SloughPercent      float64 `json:"slough_percent"`
	NecrosisPercent    float64 `json:"necrosis_percent"`
	WoundImageRef      string  `json:"wound_image_ref"`

	// I - infection/inflammation. Reset on follow-ups.
	PainScale      int    `json:"pain_scale"`
	InfectionSigns string `json:"infection_signs"`

	// M - moisture. Reset on follow-ups.
	ExudateAmount      string `json:"exudate_amount"`
	ExudateType        string `json:"exudate_type"`
	ExudateConsistency string `json:"exudate_consistency"`

	// E - edge. Reset on follow-ups.
	EdgeCharacteristics string `json:"edge_characteristics"`
	PerilesionalSkin    string `json:"perilesional_skin"`

	// R - repair.
	Notes                   string `json:"notes"`
	ResponsibleProfessional string `json:"responsible_professional"`
}

// LatestEvaluation returns the highest-version evaluation for a patient.
// Returns ErrPatientNotFound when the patient has no evaluations.
func LatestEvaluation(db *gorm.DB, patientUniqueID string) (Evaluation, error) {
	var eval Evaluation
	err := db.Where("patient_unique_id = ?", patientUniqueID).
		Order("evaluation_version DESC").
		First(&eval).Error
	if err == gorm.ErrRecordNotFound {
		return Evaluation{}, ErrPatientNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}

// EvaluationByID looks up an evaluation by its globally unique evaluation id.
func EvaluationByID(db *gorm.DB, evaluationID string) (Evaluation, error) {
	var eval Evaluation
	err := db.Where("evaluation_id = ?", evaluationID).First(&eval).Error
	if err == gorm.ErrRecordNotFound {
		return Evaluation{}, ErrEvaluationNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}
