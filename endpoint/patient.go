package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/util"
)

// patientSummary is one row of the patient list: the registry entry plus
// the latest evaluation's version and wound snapshot.
type patientSummary struct {
	model.Patient
	LatestVersion  int    `json:"latest_version"`
	WoundLocation  string `json:"wound_location"`
	WoundEtiology  string `json:"wound_etiology"`
	LastEvaluation string `json:"last_evaluation_id"`
}

// ListPatients godoc
// @Summary      List patients with their latest evaluation
// @Description  Returns registered patients, optionally filtered by name keyword, each with their latest evaluation snapshot
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        keyword query string false "Name filter (substring match)"
// @Param        limit query int false "Page size (default 20, max 100)"
// @Param        offset query int false "Page offset"
// @Success      200 {object} util.APIResponse "Patients retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient [get]
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	limit, offset := parseListParams(c)

	query := db.Model(&model.Patient{}).Order("full_name ASC")
	if keyword := c.Query("keyword"); keyword != "" {
		query = query.Where("full_name LIKE ?", "%"+keyword+"%")
	}

	var patients []model.Patient
	if err := query.Limit(limit).Offset(offset).Find(&patients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	summaries := make([]patientSummary, 0, len(patients))
	for _, patient := range patients {
		summary := patientSummary{Patient: patient}
		latest, err := model.LatestEvaluation(db, patient.PatientUniqueID)
		if err == nil {
			summary.LatestVersion = latest.EvaluationVersion
			summary.WoundLocation = latest.WoundLocation
			summary.WoundEtiology = latest.WoundEtiology
			summary.LastEvaluation = latest.EvaluationID
		}
		summaries = append(summaries, summary)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patients retrieved",
		Data: map[string]interface{}{
			"total":    len(summaries),
			"patients": summaries,
		},
	})
}
