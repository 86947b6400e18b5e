package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healplus/wound-care-api/config"
	"github.com/healplus/wound-care-api/gemini"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/progression"
	"github.com/healplus/wound-care-api/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analyzer is the slice of the AI collaborator the comparison pipeline
// needs. Tests substitute a stub via SetAIClient.
type Analyzer interface {
	progression.Summarizer
	AnalyzeImage(ctx context.Context, input gemini.ImageInput) (progression.ImageAnalysisDocument, error)
}

var aiClient Analyzer

// SetAIClient installs the AI collaborator client used by the comparison
// handlers. Called once from main at startup and from tests.
func SetAIClient(client Analyzer) {
	aiClient = client
}

type comparisonImage struct {
	ImageDataURI string    `json:"image_data_uri"`
	CapturedAt   time.Time `json:"captured_at"`
}

type runComparisonRequest struct {
	// Either a pair of stored evaluation ids or a pair of raw images.
	// Evaluation ids take precedence when both are present.
	EarlierEvaluationID string `json:"earlier_evaluation_id"`
	LaterEvaluationID   string `json:"later_evaluation_id"`

	EarlierImage *comparisonImage `json:"earlier_image"`
	LaterImage   *comparisonImage `json:"later_image"`

	// Free-text delta descriptions, used only as fallback when the
	// structured analyses cannot answer a delta dimension.
	NarrativeDeltas progression.NarrativeDeltas `json:"narrative_deltas"`
}

// comparisonInput is one resolved side of the pair: what to send to the
// vision collaborator plus the reference stored on the Comparison row.
type comparisonInput struct {
	Ref          string
	ImageDataURI string
	CapturedAt   time.Time
}

func resolveEvaluationInput(db *gorm.DB, evaluationID string) (comparisonInput, string, error) {
	eval, err := model.EvaluationByID(db, evaluationID)
	if err != nil {
		return comparisonInput{}, "", err
	}
	if eval.WoundImageRef == "" {
		return comparisonInput{}, "", fmt.Errorf("evaluation %s has no wound image", evaluationID)
	}
	input := comparisonInput{
		Ref:          eval.EvaluationID,
		ImageDataURI: eval.WoundImageRef,
		CapturedAt:   eval.CapturedAt,
	}
	return input, eval.PatientUniqueID, nil
}

// resolveComparisonInputs turns the request into an ordered input pair and
// the patient the comparison belongs to (empty for raw-image runs). Both
// evaluations of a stored pair must belong to the same patient.
func resolveComparisonInputs(db *gorm.DB, req runComparisonRequest) (earlier, later comparisonInput, patientUniqueID string, err error) {
	if req.EarlierEvaluationID != "" && req.LaterEvaluationID != "" {
		var earlierPatient, laterPatient string
		earlier, earlierPatient, err = resolveEvaluationInput(db, req.EarlierEvaluationID)
		if err != nil {
			return
		}
		later, laterPatient, err = resolveEvaluationInput(db, req.LaterEvaluationID)
		if err != nil {
			return
		}
		if earlierPatient != laterPatient {
			err = fmt.Errorf("evaluations belong to different patients")
			return
		}
		patientUniqueID = earlierPatient
	} else if req.EarlierImage != nil && req.LaterImage != nil {
		earlier = comparisonInput{
			Ref:          uuid.NewString(),
			ImageDataURI: req.EarlierImage.ImageDataURI,
			CapturedAt:   req.EarlierImage.CapturedAt,
		}
		later = comparisonInput{
			Ref:          uuid.NewString(),
			ImageDataURI: req.LaterImage.ImageDataURI,
			CapturedAt:   req.LaterImage.CapturedAt,
		}
	} else {
		err = fmt.Errorf("provide either two evaluation ids or two images")
		return
	}

	// Temporal order comes from the capture timestamps, not from which
	// request slot the caller filled.
	if later.CapturedAt.Before(earlier.CapturedAt) {
		earlier, later = later, earlier
	}
	return
}

func analyzeInput(ctx context.Context, input comparisonInput) (progression.ImageAnalysis, error) {
	doc, err := aiClient.AnalyzeImage(ctx, gemini.ImageInput{
		ImageDataURI: input.ImageDataURI,
		Metadata: progression.ImageMetadata{
			ImageID:    input.Ref,
			CapturedAt: input.CapturedAt,
		},
	})
	if err != nil {
		return progression.ImageAnalysis{}, err
	}
	return progression.NormalizeAnalysis(doc, progression.ImageMetadata{
		ImageID:    input.Ref,
		CapturedAt: input.CapturedAt,
	})
}

// RunComparison godoc
// @Summary      Run the wound progression comparison pipeline
// @Description  Analyzes two wound images, gates on acquisition quality, computes deltas and healing score, and persists the comparative report
// @Tags         Comparison
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body runComparisonRequest true "Comparison inputs"
// @Success      200 {object} util.APIResponse "Comparison completed or quality gate failed"
// @Failure      400 {object} util.APIResponse "Invalid request or malformed analysis"
// @Failure      404 {object} util.APIResponse "Evaluation not found"
// @Failure      500 {object} util.APIResponse "Server or AI collaborator error"
// @Router       /comparison [post]
func RunComparison(c *gin.Context) {
	var req runComparisonRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	if aiClient == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "AI collaborator not configured",
			Err: fmt.Errorf("ai client is nil"),
		})
		return
	}

	earlier, later, patientUniqueID, err := resolveComparisonInputs(db, req)
	if err == model.ErrEvaluationNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Evaluation not found", Err: err})
		return
	}
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid comparison inputs", Err: err})
		return
	}

	timeout := config.LoadConfig().AITimeout()
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	earlierAnalysis, ok := analyzeInputOrRespond(c, ctx, earlier)
	if !ok {
		return
	}
	laterAnalysis, ok := analyzeInputOrRespond(c, ctx, later)
	if !ok {
		return
	}

	finishComparison(c, ctx, db, userID, patientUniqueID, earlier, later, earlierAnalysis, laterAnalysis, req.NarrativeDeltas)
}

func analyzeInputOrRespond(c *gin.Context, ctx context.Context, input comparisonInput) (progression.ImageAnalysis, bool) {
	analysis, err := analyzeInput(ctx, input)
	if err == nil {
		return analysis, true
	}

	if errors.Is(err, progression.ErrMalformedAnalysis) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Analysis document incomplete, re-submit the images",
			Err: err,
		})
	} else {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Image analysis failed, try again",
			Err: err,
		})
	}
	return progression.ImageAnalysis{}, false
}

// finishComparison runs the deterministic stages after both analyses are
// normalized: quality gate, deltas, score, report assembly and persistence.
func finishComparison(
	c *gin.Context,
	ctx context.Context,
	db *gorm.DB,
	userID uint,
	patientUniqueID string,
	earlier, later comparisonInput,
	earlierAnalysis, laterAnalysis progression.ImageAnalysis,
	narrative progression.NarrativeDeltas,
) {
	gate := progression.EvaluateQualityGate(earlierAnalysis, laterAnalysis)
	if !gate.Passed {
		// A failed gate is a normal outcome: report it, persist nothing.
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg: "Quality gate failed",
			Data: map[string]interface{}{
				"gate_passed": false,
				"alert":       gate.Alert,
			},
		})
		return
	}

	deltas := progression.ComputeDeltas(earlierAnalysis, laterAnalysis, narrative)
	score := progression.ComputeHealingScore(deltas)

	report, err := progression.AssembleReport(ctx, aiClient, earlierAnalysis, laterAnalysis, deltas, score)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Analysis failed, try again",
			Err: err,
		})
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to encode report", Err: err})
		return
	}

	comparison := model.Comparison{
		ComparisonID:      uuid.NewString(),
		UserID:            userID,
		PatientUniqueID:   patientUniqueID,
		EarlierRef:        earlier.Ref,
		LaterRef:          later.Ref,
		AreaChangePercent: score.AreaChangePercent,
		HealingScore:      score.HealingScore,
		Classification:    score.Classification,
		Report:            datatypes.JSON(reportJSON),
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&comparison).Error
	}); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to persist comparison", Err: err})
		return
	}

	util.LogComparisonRun(userID, comparison.ComparisonID, score.Classification, c.ClientIP())
	util.LogDeltaParseWarnings(comparison.ComparisonID, deltas.Warnings)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Comparison completed",
		Data: map[string]interface{}{
			"gate_passed": true,
			"comparison":  comparison,
			"report":      report,
		},
	})
}

// comparisonListItem decorates a stored comparison with the patient name
// for list views.
type comparisonListItem struct {
	model.Comparison
	PatientName string `json:"patient_name,omitempty"`
}

// ListComparisons godoc
// @Summary      List the requesting user's comparisons
// @Description  Returns stored comparisons newest first, decorated with patient names
// @Tags         Comparison
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Page size (default 20, max 100)"
// @Param        offset query int false "Page offset"
// @Success      200 {object} util.APIResponse "Comparisons retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /comparison [get]
func ListComparisons(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	limit, offset := parseListParams(c)

	var comparisons []model.Comparison
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comparisons).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve comparisons", Err: err})
		return
	}

	items := make([]comparisonListItem, 0, len(comparisons))
	for _, comparison := range comparisons {
		item := comparisonListItem{Comparison: comparison}
		if comparison.PatientUniqueID != "" {
			item.PatientName = util.GetPatientName(db, comparison.PatientUniqueID)
		}
		items = append(items, item)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Comparisons retrieved",
		Data: map[string]interface{}{
			"total":       len(items),
			"comparisons": items,
		},
	})
}

// GetComparison godoc
// @Summary      Get one comparison with its full report
// @Tags         Comparison
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        comparisonId path string true "Comparison ID"
// @Success      200 {object} util.APIResponse{data=model.Comparison} "Comparison retrieved"
// @Failure      404 {object} util.APIResponse "Comparison not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /comparison/{comparisonId} [get]
func GetComparison(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var comparison model.Comparison
	err := db.Where("comparison_id = ?", c.Param("comparisonId")).First(&comparison).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Comparison not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve comparison", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Comparison retrieved",
		Data: comparison,
	})
}
