package endpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type createEvaluationRequest struct {
	PatientName   string `json:"patient_name" binding:"required" example:"Maria da Silva"`
	BirthDate     string `json:"birth_date" example:"1954-07-02"`
	Phone         string `json:"phone" example:"11987654321"`
	Email         string `json:"email" example:"maria@example.com"`
	Profession    string `json:"profession" example:"Aposentada"`
	MaritalStatus string `json:"marital_status" example:"Viúva"`

	ActivityLevel     string `json:"activity_level" example:"Acamada"`
	SocialSupport     string `json:"social_support" example:"Cuidadora em tempo integral"`
	NutritionalStatus string `json:"nutritional_status" example:"Desnutrição leve"`
	Smoker            bool   `json:"smoker"`
	AlcoholUse        bool   `json:"alcohol_use"`

	TreatmentGoal  string            `json:"treatment_goal" example:"Cicatrização completa"`
	HealingHistory string            `json:"healing_history"`
	Allergies      string            `json:"allergies"`
	Comorbidities  map[string]string `json:"comorbidities" example:"dmii:insulinodependente,has:controlada"`
	Medications    map[string]string `json:"medications" example:"insulina:NPH 10UI"`

	woundFields
}

// woundFields are the wound-specific (TIMERS T/I/M/E) fields of an
// evaluation. They are never carried over between versions.
type woundFields struct {
	WoundLocation       string  `json:"wound_location" example:"Região sacral"`
	WoundEtiology       string  `json:"wound_etiology" example:"Úlcera de pressão"`
	EvolutionTime       string  `json:"evolution_time" example:"3 semanas"`
	WoundWidthCm        float64 `json:"wound_width_cm" example:"3.5"`
	WoundLengthCm       float64 `json:"wound_length_cm" example:"4.2"`
	WoundDepthCm        float64 `json:"wound_depth_cm" example:"0.8"`
	GranulationPercent  float64 `json:"granulation_percent" example:"60"`
	EpithelialPercent   float64 `json:"epithelial_percent" example:"10"`
	SloughPercent       float64 `json:"slough_percent" example:"30"`
	NecrosisPercent     float64 `json:"necrosis_percent" example:"0"`
	WoundImageRef       string  `json:"wound_image_ref"`
	PainScale           int     `json:"pain_scale" example:"4"`
	InfectionSigns      string  `json:"infection_signs"`
	ExudateAmount       string  `json:"exudate_amount" example:"Moderado"`
	ExudateType         string  `json:"exudate_type" example:"Serossanguinolento"`
	ExudateConsistency  string  `json:"exudate_consistency"`
	EdgeCharacteristics string  `json:"edge_characteristics" example:"Definidas"`
	PerilesionalSkin    string  `json:"perilesional_skin" example:"Levemente eritematosa"`
	Notes               string  `json:"notes"`

	ResponsibleProfessional string `json:"responsible_professional" example:"Enf. Joana Pereira"`
}

func tagMapToJSON(m map[string]string) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

func applyWoundFields(eval *model.Evaluation, wf woundFields) {
	eval.WoundLocation = wf.WoundLocation
	eval.WoundEtiology = wf.WoundEtiology
	eval.EvolutionTime = wf.EvolutionTime
	eval.WoundWidthCm = wf.WoundWidthCm
	eval.WoundLengthCm = wf.WoundLengthCm
	eval.WoundDepthCm = wf.WoundDepthCm
	eval.GranulationPercent = wf.GranulationPercent
	eval.EpithelialPercent = wf.EpithelialPercent
	eval.SloughPercent = wf.SloughPercent
	eval.NecrosisPercent = wf.NecrosisPercent
	eval.WoundImageRef = wf.WoundImageRef
	eval.PainScale = wf.PainScale
	eval.InfectionSigns = wf.InfectionSigns
	eval.ExudateAmount = wf.ExudateAmount
	eval.ExudateType = wf.ExudateType
	eval.ExudateConsistency = wf.ExudateConsistency
	eval.EdgeCharacteristics = wf.EdgeCharacteristics
	eval.PerilesionalSkin = wf.PerilesionalSkin
	eval.Notes = wf.Notes
	eval.ResponsibleProfessional = wf.ResponsibleProfessional
}

// CreateFirstEvaluation godoc
// @Summary      Create the first evaluation for a new patient
// @Description  Registers a new patient and their first wound evaluation (version 1)
// @Tags         Evaluation
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createEvaluationRequest true "Evaluation information"
// @Success      200 {object} util.APIResponse{data=model.Evaluation} "Evaluation created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /evaluation [post]
func CreateFirstEvaluation(c *gin.Context) {
	var req createEvaluationRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	req.PatientName = util.NormalizeName(req.PatientName)
	if req.PatientName == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Evaluation payload is missing required fields",
			Err: fmt.Errorf("patient_name is required"),
		})
		return
	}

	patientUniqueID := uuid.NewString()
	eval := model.Evaluation{
		EvaluationID:      uuid.NewString(),
		PatientUniqueID:   patientUniqueID,
		EvaluationVersion: 1,
		CapturedAt:        time.Now(),
		PatientName:       req.PatientName,
		BirthDate:         req.BirthDate,
		Phone:             req.Phone,
		Email:             req.Email,
		Profession:        req.Profession,
		MaritalStatus:     req.MaritalStatus,
		ActivityLevel:     req.ActivityLevel,
		SocialSupport:     req.SocialSupport,
		NutritionalStatus: req.NutritionalStatus,
		Smoker:            req.Smoker,
		AlcoholUse:        req.AlcoholUse,
		TreatmentGoal:     req.TreatmentGoal,
		HealingHistory:    req.HealingHistory,
		Allergies:         req.Allergies,
		Comorbidities:     tagMapToJSON(req.Comorbidities),
		Medications:       tagMapToJSON(req.Medications),
	}
	applyWoundFields(&eval, req.woundFields)

	err := db.Transaction(func(tx *gorm.DB) error {
		patient := model.Patient{
			PatientUniqueID: patientUniqueID,
			FullName:        req.PatientName,
			BirthDate:       req.BirthDate,
			Phone:           req.Phone,
			Email:           req.Email,
			Profession:      req.Profession,
			MaritalStatus:   req.MaritalStatus,
		}
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}
		return tx.Create(&eval).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create evaluation", Err: err})
		return
	}

	util.PatientNameCacheSet(patientUniqueID, req.PatientName)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Evaluation created",
		Data: eval,
	})
}

type followUpRequest struct {
	woundFields
}

// buildFollowUpEvaluation copies the demographic, social and
// clinical-history fields from the previous evaluation and resets the
// wound-specific fields from the request.
func buildFollowUpEvaluation(prev model.Evaluation, req followUpRequest) model.Evaluation {
	eval := model.Evaluation{
		EvaluationID:      uuid.NewString(),
		PatientUniqueID:   prev.PatientUniqueID,
		EvaluationVersion: prev.EvaluationVersion + 1,
		CapturedAt:        time.Now(),
		PatientName:       prev.PatientName,
		BirthDate:         prev.BirthDate,
		Phone:             prev.Phone,
		Email:             prev.Email,
		Profession:        prev.Profession,
		MaritalStatus:     prev.MaritalStatus,
		ActivityLevel:     prev.ActivityLevel,
		SocialSupport:     prev.SocialSupport,
		NutritionalStatus: prev.NutritionalStatus,
		Smoker:            prev.Smoker,
		AlcoholUse:        prev.AlcoholUse,
		TreatmentGoal:     prev.TreatmentGoal,
		HealingHistory:    prev.HealingHistory,
		Allergies:         prev.Allergies,
		Comorbidities:     prev.Comorbidities,
		Medications:       prev.Medications,
	}
	applyWoundFields(&eval, req.woundFields)
	return eval
}

// CreateFollowUpEvaluation godoc
// @Summary      Create a follow-up evaluation for an existing patient
// @Description  Assigns the next version, carries over demographic and history fields, resets wound-specific fields
// @Tags         Evaluation
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        patientId path string true "Patient unique ID"
// @Param        request body followUpRequest true "Wound-specific fields for the new evaluation"
// @Success      200 {object} util.APIResponse{data=model.Evaluation} "Follow-up evaluation created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/{patientId}/evaluation [post]
func CreateFollowUpEvaluation(c *gin.Context) {
	patientUniqueID := c.Param("patientId")
	if patientUniqueID == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing patient ID",
			Err: fmt.Errorf("patient ID is required"),
		})
		return
	}

	var req followUpRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var eval model.Evaluation
	// Version assignment happens inside the transaction so the max-version
	// read and the insert are atomic; the composite unique index on
	// (patient_unique_id, evaluation_version) rejects the loser of a race
	// instead of letting a duplicate version through.
	err := db.Transaction(func(tx *gorm.DB) error {
		prev, err := model.LatestEvaluation(tx, patientUniqueID)
		if err != nil {
			return err
		}
		eval = buildFollowUpEvaluation(prev, req)
		return tx.Create(&eval).Error
	})
	if err == model.ErrPatientNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create follow-up evaluation", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Follow-up evaluation created",
		Data: eval,
	})
}

// GetEvaluationHistory godoc
// @Summary      Get a patient's evaluation history
// @Description  Returns all evaluations of a patient ascending by version; empty list when the patient is unknown
// @Tags         Evaluation
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        patientId path string true "Patient unique ID"
// @Success      200 {object} util.APIResponse{data=object} "History retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/{patientId}/evaluation [get]
func GetEvaluationHistory(c *gin.Context) {
	patientUniqueID := c.Param("patientId")

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var evals []model.Evaluation
	if err := db.Where("patient_unique_id = ?", patientUniqueID).
		Order("evaluation_version ASC").
		Find(&evals).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve evaluation history", Err: err})
		return
	}

	// An unknown patient yields an empty history, not an error.
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Evaluation history retrieved",
		Data: map[string]interface{}{
			"total":       len(evals),
			"evaluations": evals,
		},
	})
}

// GetEvaluation godoc
// @Summary      Get one evaluation
// @Description  Fetches a single evaluation by its globally unique id
// @Tags         Evaluation
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        evaluationId path string true "Evaluation ID"
// @Success      200 {object} util.APIResponse{data=model.Evaluation} "Evaluation retrieved"
// @Failure      404 {object} util.APIResponse "Evaluation not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /evaluation/{evaluationId} [get]
func GetEvaluation(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	eval, err := model.EvaluationByID(db, c.Param("evaluationId"))
	if err == model.ErrEvaluationNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Evaluation not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve evaluation", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Evaluation retrieved",
		Data: eval,
	})
}

// updateEvaluationRequest uses pointer fields so the handler can tell an
// omitted field from an explicit zero. Sending "necrosis_percent": 0 or
// "notes": "" corrects the stored value; leaving the key out keeps it.
type updateEvaluationRequest struct {
	WoundLocation           *string           `json:"wound_location"`
	WoundEtiology           *string           `json:"wound_etiology"`
	EvolutionTime           *string           `json:"evolution_time"`
	WoundWidthCm            *float64          `json:"wound_width_cm"`
	WoundLengthCm           *float64          `json:"wound_length_cm"`
	WoundDepthCm            *float64          `json:"wound_depth_cm"`
	GranulationPercent      *float64          `json:"granulation_percent"`
	EpithelialPercent       *float64          `json:"epithelial_percent"`
	SloughPercent           *float64          `json:"slough_percent"`
	NecrosisPercent         *float64          `json:"necrosis_percent"`
	WoundImageRef           *string           `json:"wound_image_ref"`
	PainScale               *int              `json:"pain_scale"`
	InfectionSigns          *string           `json:"infection_signs"`
	ExudateAmount           *string           `json:"exudate_amount"`
	ExudateType             *string           `json:"exudate_type"`
	ExudateConsistency      *string           `json:"exudate_consistency"`
	EdgeCharacteristics     *string           `json:"edge_characteristics"`
	PerilesionalSkin        *string           `json:"perilesional_skin"`
	Notes                   *string           `json:"notes"`
	ResponsibleProfessional *string           `json:"responsible_professional"`
	ActivityLevel           *string           `json:"activity_level"`
	SocialSupport           *string           `json:"social_support"`
	NutritionalStatus       *string           `json:"nutritional_status"`
	TreatmentGoal           *string           `json:"treatment_goal"`
	HealingHistory          *string           `json:"healing_history"`
	Allergies               *string           `json:"allergies"`
	Comorbidities           map[string]string `json:"comorbidities"`
	Medications             map[string]string `json:"medications"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// mergeEvaluationUpdate applies the fields present in the request to the
// stored evaluation. Identity fields (evaluation id, patient id, version)
// are never touched: they are the stable reference comparisons point to.
func mergeEvaluationUpdate(eval *model.Evaluation, req updateEvaluationRequest) {
	setString(&eval.WoundLocation, req.WoundLocation)
	setString(&eval.WoundEtiology, req.WoundEtiology)
	setString(&eval.EvolutionTime, req.EvolutionTime)
	setFloat(&eval.WoundWidthCm, req.WoundWidthCm)
	setFloat(&eval.WoundLengthCm, req.WoundLengthCm)
	setFloat(&eval.WoundDepthCm, req.WoundDepthCm)
	setFloat(&eval.GranulationPercent, req.GranulationPercent)
	setFloat(&eval.EpithelialPercent, req.EpithelialPercent)
	setFloat(&eval.SloughPercent, req.SloughPercent)
	setFloat(&eval.NecrosisPercent, req.NecrosisPercent)
	setString(&eval.WoundImageRef, req.WoundImageRef)
	if req.PainScale != nil {
		eval.PainScale = *req.PainScale
	}
	setString(&eval.InfectionSigns, req.InfectionSigns)
	setString(&eval.ExudateAmount, req.ExudateAmount)
	setString(&eval.ExudateType, req.ExudateType)
	setString(&eval.ExudateConsistency, req.ExudateConsistency)
	setString(&eval.EdgeCharacteristics, req.EdgeCharacteristics)
	setString(&eval.PerilesionalSkin, req.PerilesionalSkin)
	setString(&eval.Notes, req.Notes)
	setString(&eval.ResponsibleProfessional, req.ResponsibleProfessional)
	setString(&eval.ActivityLevel, req.ActivityLevel)
	setString(&eval.SocialSupport, req.SocialSupport)
	setString(&eval.NutritionalStatus, req.NutritionalStatus)
	setString(&eval.TreatmentGoal, req.TreatmentGoal)
	setString(&eval.HealingHistory, req.HealingHistory)
	setString(&eval.Allergies, req.Allergies)
	if len(req.Comorbidities) > 0 {
		eval.Comorbidities = tagMapToJSON(req.Comorbidities)
	}
	if len(req.Medications) > 0 {
		eval.Medications = tagMapToJSON(req.Medications)
	}
}

// UpdateEvaluation godoc
// @Summary      Update an evaluation's clinical fields
// @Description  In-place update of clinical fields; version and ids are immutable
// @Tags         Evaluation
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        evaluationId path string true "Evaluation ID"
// @Param        request body updateEvaluationRequest true "Fields to update"
// @Success      200 {object} util.APIResponse{data=model.Evaluation} "Evaluation updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Evaluation not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /evaluation/{evaluationId} [patch]
func UpdateEvaluation(c *gin.Context) {
	evaluationID := c.Param("evaluationId")
	if evaluationID == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing evaluation ID",
			Err: fmt.Errorf("evaluation ID is required"),
		})
		return
	}

	var req updateEvaluationRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	eval, err := model.EvaluationByID(db, evaluationID)
	if err == model.ErrEvaluationNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Evaluation not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve evaluation", Err: err})
		return
	}

	mergeEvaluationUpdate(&eval, req)

	if err := db.Save(&eval).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update evaluation", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Evaluation updated",
		Data: eval,
	})
}
