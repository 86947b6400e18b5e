// Package gemini is the HTTP client for the external vision/narrative
// collaborator. The model is consumed as a black box: one call returns a
// structured analysis document for an image, another returns the narrative
// evolution summary for a report bundle.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healplus/wound-care-api/progression"
)

// ErrAICollaborator wraps network, timeout and non-2xx failures from the
// external collaborator. Calls are not retried automatically; callers
// surface a generic "analysis failed, try again" message and persist
// nothing.
var ErrAICollaborator = errors.New("external AI collaborator failure")

// ImageInput is one image submitted for analysis. The image travels as a
// data URI ("data:<mimetype>;base64,<encoded>"), matching the upstream
// contract.
type ImageInput struct {
	ImageDataURI string                    `json:"imageDataUri"`
	Metadata     progression.ImageMetadata `json:"metadata"`
}

// Client talks to the configured vision and narrative endpoints. The
// request timeout is owned by this client because the upstream service
// defines none; a timeout surfaces as ErrAICollaborator.
type Client struct {
	visionURL    string
	narrativeURL string
	apiKey       string
	httpClient   *http.Client
}

// NewClient builds a collaborator client. timeout bounds every call,
// including the blocking analysis request; zero falls back to 60s.
func NewClient(visionURL, narrativeURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		visionURL:    visionURL,
		narrativeURL: narrativeURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(ctx context.Context, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrAICollaborator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrAICollaborator, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAICollaborator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrAICollaborator, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrAICollaborator, err)
	}
	return nil
}

// AnalyzeImage submits one image and returns the raw structured analysis
// document. The document is validated and normalized downstream by
// progression.NormalizeAnalysis; this call does no validation of its own.
func (c *Client) AnalyzeImage(ctx context.Context, input ImageInput) (progression.ImageAnalysisDocument, error) {
	var doc progression.ImageAnalysisDocument
	if err := c.post(ctx, c.visionURL, input, &doc); err != nil {
		return progression.ImageAnalysisDocument{}, err
	}
	return doc, nil
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarize generates the narrative evolution summary for a report bundle.
func (c *Client) Summarize(ctx context.Context, req progression.SummaryRequest) (string, error) {
	var resp summaryResponse
	if err := c.post(ctx, c.narrativeURL, req, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
