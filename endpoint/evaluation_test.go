package endpoint_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/healplus/wound-care-api/model"
	"github.com/stretchr/testify/assert"
)

type evaluationData struct {
	EvaluationID      string            `json:"evaluation_id"`
	PatientUniqueID   string            `json:"patient_unique_id"`
	EvaluationVersion int               `json:"evaluation_version"`
	PatientName       string            `json:"patient_name"`
	NutritionalStatus string            `json:"nutritional_status"`
	WoundLocation     string            `json:"wound_location"`
	PainScale         int               `json:"pain_scale"`
	Comorbidities     map[string]string `json:"comorbidities"`
}

func parseEvaluation(t *testing.T, raw json.RawMessage) evaluationData {
	var data evaluationData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse evaluation data failed: %v", err)
	}
	return data
}

func createFirstEvaluation(t *testing.T, r http.Handler, token string, patientName string) evaluationData {
	body := map[string]interface{}{
		"patient_name":       patientName,
		"birth_date":         "1954-07-02",
		"nutritional_status": "Desnutrição leve",
		"comorbidities":      map[string]string{"dmii": "insulinodependente"},
		"wound_location":     "Região sacral",
		"wound_etiology":     "Úlcera de pressão",
		"pain_scale":         4,
	}
	b, _ := json.Marshal(body)
	rr, _ := doRequest(r, "POST", "/evaluation", b, map[string]string{"session-token": token})
	if rr.Code != http.StatusOK {
		t.Fatalf("create evaluation returned %d: %s", rr.Code, rr.Body.String())
	}
	return parseEvaluation(t, ParseAPIResp(t, rr).Data)
}

func createFollowUp(t *testing.T, r http.Handler, token, patientUniqueID string, body map[string]interface{}) (int, evaluationData) {
	b, _ := json.Marshal(body)
	path := fmt.Sprintf("/patient/%s/evaluation", patientUniqueID)
	rr, _ := doRequest(r, "POST", path, b, map[string]string{"session-token": token})
	if rr.Code != http.StatusOK {
		return rr.Code, evaluationData{}
	}
	return rr.Code, parseEvaluation(t, ParseAPIResp(t, rr).Data)
}

func TestCreateFirstEvaluation(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana@clinica.com", Password: "pass1234"})

	eval := createFirstEvaluation(t, r, token, "Maria da Silva")

	assert.Equal(t, 1, eval.EvaluationVersion)
	assert.NotEmpty(t, eval.EvaluationID)
	assert.NotEmpty(t, eval.PatientUniqueID)
	assert.Equal(t, "Maria da Silva", eval.PatientName)
	assert.Equal(t, "Região sacral", eval.WoundLocation)
	assert.Equal(t, "insulinodependente", eval.Comorbidities["dmii"])
}

func TestCreateFirstEvaluationRequiresName(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana2@clinica.com", Password: "pass1234"})

	body := map[string]interface{}{"wound_location": "Região sacral"}
	b, _ := json.Marshal(body)
	rr, _ := doRequest(r, "POST", "/evaluation", b, map[string]string{"session-token": token})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFollowUpVersioningAndInheritance(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana3@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")

	code, followUp := createFollowUp(t, r, token, first.PatientUniqueID, map[string]interface{}{
		"wound_location": "Região sacral",
		"pain_scale":     2,
	})
	assert.Equal(t, http.StatusOK, code)

	// Version advances and identity stays with the patient.
	assert.Equal(t, 2, followUp.EvaluationVersion)
	assert.Equal(t, first.PatientUniqueID, followUp.PatientUniqueID)
	assert.NotEqual(t, first.EvaluationID, followUp.EvaluationID)

	// Demographic and history fields carry over; wound fields come from the request.
	assert.Equal(t, "Maria da Silva", followUp.PatientName)
	assert.Equal(t, "Desnutrição leve", followUp.NutritionalStatus)
	assert.Equal(t, "insulinodependente", followUp.Comorbidities["dmii"])
	assert.Equal(t, 2, followUp.PainScale)

	// A third evaluation keeps the sequence contiguous.
	code, third := createFollowUp(t, r, token, first.PatientUniqueID, map[string]interface{}{"pain_scale": 1})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, third.EvaluationVersion)
}

func TestFollowUpResetsWoundFields(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana4@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")
	assert.Equal(t, 4, first.PainScale)

	// The follow-up request omits pain_scale, so it resets instead of inheriting.
	code, followUp := createFollowUp(t, r, token, first.PatientUniqueID, map[string]interface{}{
		"wound_location": "Região sacral",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, followUp.PainScale)
}

func TestFollowUpUnknownPatient(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana5@clinica.com", Password: "pass1234"})

	code, _ := createFollowUp(t, r, token, "does-not-exist", map[string]interface{}{"pain_scale": 1})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetEvaluationHistory(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana6@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")
	createFollowUp(t, r, token, first.PatientUniqueID, map[string]interface{}{"pain_scale": 2})
	createFollowUp(t, r, token, first.PatientUniqueID, map[string]interface{}{"pain_scale": 1})

	path := fmt.Sprintf("/patient/%s/evaluation", first.PatientUniqueID)
	rr, _ := doRequest(r, "GET", path, nil, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	var data struct {
		Total       int              `json:"total"`
		Evaluations []evaluationData `json:"evaluations"`
	}
	assert.NoError(t, json.Unmarshal(ParseAPIResp(t, rr).Data, &data))
	assert.Equal(t, 3, data.Total)
	for i, eval := range data.Evaluations {
		assert.Equal(t, i+1, eval.EvaluationVersion)
	}
}

func TestGetEvaluationHistoryUnknownPatientIsEmpty(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana7@clinica.com", Password: "pass1234"})

	rr, _ := doRequest(r, "GET", "/patient/unknown/evaluation", nil, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	data := ParseDataToMap(t, ParseAPIResp(t, rr).Data)
	assert.Equal(t, float64(0), data["total"])
}

func TestUpdateEvaluation(t *testing.T) {
	r, db, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana8@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")

	body := map[string]interface{}{
		"pain_scale":     7,
		"notes":          "Paciente relata mais dor",
		"exudate_amount": "Abundante",
	}
	b, _ := json.Marshal(body)
	rr, _ := doRequest(r, "PATCH", "/evaluation/"+first.EvaluationID, b, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	updated := parseEvaluation(t, ParseAPIResp(t, rr).Data)
	assert.Equal(t, 7, updated.PainScale)

	// Identity and version columns never change on update.
	var stored model.Evaluation
	assert.NoError(t, db.Where("evaluation_id = ?", first.EvaluationID).First(&stored).Error)
	assert.Equal(t, first.PatientUniqueID, stored.PatientUniqueID)
	assert.Equal(t, 1, stored.EvaluationVersion)
	assert.Equal(t, "Abundante", stored.ExudateAmount)
	// Untouched fields keep their values.
	assert.Equal(t, "Região sacral", stored.WoundLocation)
}

func TestUpdateEvaluationExplicitZeroCorrection(t *testing.T) {
	r, db, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana12@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")

	// Record a wrong necrosis reading and a note.
	b, _ := json.Marshal(map[string]interface{}{
		"necrosis_percent": 30.0,
		"notes":            "Leito com necrose",
	})
	rr, _ := doRequest(r, "PATCH", "/evaluation/"+first.EvaluationID, b, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Correct the reading back to zero and clear the note. Fields present
	// in the body apply even when the value is the zero value.
	b, _ = json.Marshal(map[string]interface{}{
		"necrosis_percent": 0.0,
		"notes":            "",
	})
	rr, _ = doRequest(r, "PATCH", "/evaluation/"+first.EvaluationID, b, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	var stored model.Evaluation
	assert.NoError(t, db.Where("evaluation_id = ?", first.EvaluationID).First(&stored).Error)
	assert.Equal(t, 0.0, stored.NecrosisPercent)
	assert.Equal(t, "", stored.Notes)
	// Fields omitted from both updates keep their values.
	assert.Equal(t, 4, stored.PainScale)
}

func TestUpdateEvaluationNotFound(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana9@clinica.com", Password: "pass1234"})

	b, _ := json.Marshal(map[string]interface{}{"pain_scale": 7})
	rr, _ := doRequest(r, "PATCH", "/evaluation/missing-id", b, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetEvaluation(t *testing.T) {
	r, _, token, _ := SetupServerWithUser(t, SignupCreds{Name: "Enf. Joana", Email: "joana10@clinica.com", Password: "pass1234"})

	first := createFirstEvaluation(t, r, token, "Maria da Silva")

	rr, _ := doRequest(r, "GET", "/evaluation/"+first.EvaluationID, nil, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusOK, rr.Code)

	found := parseEvaluation(t, ParseAPIResp(t, rr).Data)
	assert.Equal(t, first.EvaluationID, found.EvaluationID)

	rr, _ = doRequest(r, "GET", "/evaluation/missing-id", nil, map[string]string{"session-token": token})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEvaluationRequiresAuthentication(t *testing.T) {
	r, _, cleanup := SetupTestServer(t)
	t.Cleanup(cleanup)

	b, _ := json.Marshal(map[string]interface{}{"patient_name": "Maria"})
	rr, _ := doRequest(r, "POST", "/evaluation", b, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
