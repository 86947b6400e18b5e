package endpoint_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/healplus/wound-care-api/config"
	"github.com/healplus/wound-care-api/endpoint"
	"github.com/healplus/wound-care-api/gemini"
	"github.com/healplus/wound-care-api/middleware"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/progression"
	"gorm.io/gorm"
)

// apiResp mirrors the standard response envelope.
type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// SetupTestServer initializes DB, migrates models, seeds roles and returns a Gin router
// and a cleanup function that drops tables. It calls t.Fatalf on fatal errors.
func SetupTestServer(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	db, err := config.ConnectDatabase()
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}

	testModels := []interface{}{
		&model.Patient{}, &model.Evaluation{}, &model.Comparison{},
		&model.User{}, &model.Session{}, &model.Role{}, &model.SecurityLog{},
	}

	if err := db.AutoMigrate(testModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	if err := model.SeedRoles(db); err != nil {
		t.Fatalf("seeding roles failed: %v", err)
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))

	// Public routes used by tests
	r.POST("/signup", endpoint.Signup)
	r.POST("/login", endpoint.Login)

	// Protected routes used by tests
	auth := r.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.POST("/logout", endpoint.Logout)
		auth.GET("/token/validate", endpoint.ValidateToken)

		auth.GET("/patient", endpoint.ListPatients)

		auth.POST("/evaluation", endpoint.CreateFirstEvaluation)
		auth.POST("/patient/:patientId/evaluation", endpoint.CreateFollowUpEvaluation)
		auth.GET("/patient/:patientId/evaluation", endpoint.GetEvaluationHistory)
		auth.GET("/evaluation/:evaluationId", endpoint.GetEvaluation)
		auth.PATCH("/evaluation/:evaluationId", endpoint.UpdateEvaluation)

		auth.POST("/comparison", endpoint.RunComparison)
		auth.GET("/comparison", endpoint.ListComparisons)
		auth.GET("/comparison/:comparisonId", endpoint.GetComparison)
	}

	cleanup := func() {
		if err := db.Migrator().DropTable(testModels...); err != nil {
			t.Errorf("failed to drop tables during cleanup: %v", err)
		}
	}

	return r, db, cleanup
}

// doRequest performs an HTTP request against the router and returns the recorder.
func doRequest(r http.Handler, method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr, nil
}

// SignupCreds describes a professional account created for a test.
type SignupCreds struct {
	Name     string
	Email    string
	Password string
}

// CreateAndLoginUser signs up and logs in a user, returning session token and user id.
// It fails the test on error.
func CreateAndLoginUser(t *testing.T, r http.Handler, creds SignupCreds) (string, uint) {
	signupBody := map[string]string{"name": creds.Name, "email": creds.Email, "password": creds.Password}
	b, _ := json.Marshal(signupBody)
	rr, err := doRequest(r, "POST", "/signup", b, nil)
	if err != nil {
		t.Fatalf("signup %s failed: %v", creds.Email, err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("signup %s returned non-200: %d %s", creds.Email, rr.Code, rr.Body.String())
	}

	var signupResp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &signupResp); err != nil {
		t.Fatalf("decode signup resp failed: %v", err)
	}
	var signupData struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(signupResp.Data, &signupData); err != nil {
		t.Fatalf("parse signup data failed: %v", err)
	}

	loginBody := map[string]string{"email": creds.Email, "password": creds.Password}
	b, _ = json.Marshal(loginBody)
	rr, err = doRequest(r, "POST", "/login", b, nil)
	if err != nil {
		t.Fatalf("login %s failed: %v", creds.Email, err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s returned non-200: %d %s", creds.Email, rr.Code, rr.Body.String())
	}

	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login resp failed: %v", err)
	}
	var data struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("parse login data failed: %v", err)
	}
	return data.SessionToken, signupData.ID
}

// SetupServerWithUser initializes the server and returns a logged-in user session.
func SetupServerWithUser(t *testing.T, creds SignupCreds) (*gin.Engine, *gorm.DB, string, uint) {
	r, db, cleanup := SetupTestServer(t)
	t.Cleanup(cleanup)

	token, userID := CreateAndLoginUser(t, r, creds)
	return r, db, token, userID
}

// ParseAPIResp decodes a standard API response from a ResponseRecorder.
// It fails the test on decoding error.
func ParseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// ParseDataToMap unmarshals an API response Data field into a map[string]interface{}.
// It fails the test on error.
func ParseDataToMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse data failed: %v", err)
	}
	return data
}

// stubAIClient is a test double for the AI collaborator. Analysis documents
// are served per image id; the summary is fixed.
type stubAIClient struct {
	docs       map[string]progression.ImageAnalysisDocument
	defaultDoc progression.ImageAnalysisDocument
	summary    string
	analyzeErr error
	summaryErr error
	calls      int
}

func (s *stubAIClient) AnalyzeImage(_ context.Context, input gemini.ImageInput) (progression.ImageAnalysisDocument, error) {
	s.calls++
	if s.analyzeErr != nil {
		return progression.ImageAnalysisDocument{}, s.analyzeErr
	}
	if doc, ok := s.docs[input.Metadata.ImageID]; ok {
		return doc, nil
	}
	return s.defaultDoc, nil
}

func (s *stubAIClient) Summarize(_ context.Context, _ progression.SummaryRequest) (string, error) {
	if s.summaryErr != nil {
		return "", s.summaryErr
	}
	return s.summary, nil
}

// goodAnalysisDocument builds a complete analysis document passing the
// quality gate, with the given affected area and edema grade.
func goodAnalysisDocument(area float64, edema string) progression.ImageAnalysisDocument {
	return progression.ImageAnalysisDocument{
		Quality: &progression.QualityAssessment{
			Lighting:              progression.LightingAdequate,
			Focus:                 progression.FocusSharp,
			Background:            "Neutro",
			ReferenceScalePresent: "Sim",
		},
		Dimensional: &progression.DimensionalAnalysis{Unit: "cm²", TotalAffectedArea: area},
		Colorimetric: &progression.ColorimetricAnalysis{DominantColors: []progression.DominantColor{
			{Color: "Vermelho", Hex: "#aa2222", AreaPercent: 45},
		}},
		Histogram: &progression.HistogramAnalysis{ColorBands: []progression.ColorBand{
			{Band: "Vermelho", PixelPercent: 52},
		}},
		Texture: &progression.TextureAssessment{Edema: edema, Scaling: "Ausente"},
	}
}

// installStubAI registers a stub AI client for the duration of a test.
func installStubAI(t *testing.T, stub *stubAIClient) {
	t.Helper()
	endpoint.SetAIClient(stub)
	t.Cleanup(func() { endpoint.SetAIClient(nil) })
}
