package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"challan-service/internal/domain/challan"
)

// Client talks to the sidecar vision service over HTTP. It implements
// Camera, Vision and OCR against the service's JSON API.
type Client struct {
	baseURL    string
	cameraID   string
	httpClient *http.Client
}

// NewClient creates a vision service client. timeout bounds each
// individual request.
func NewClient(baseURL, cameraID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		cameraID: cameraID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

type captureResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

type regionsRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

type regionsResponse struct {
	Regions []challan.Region `json:"regions"`
}

type ocrRequest struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Data   string         `json:"data"`
	Region challan.Region `json:"region"`
}

type ocrResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Probe checks the vision service health endpoint and that the camera
// stream is reachable.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/cameras/%s/health", c.baseURL, c.cameraID), nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("camera %s unavailable, status %d", c.cameraID, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("camera %s reported status %q", c.cameraID, health.Status)
	}
	return nil
}

// Capture grabs one frame from the camera stream.
func (c *Client) Capture(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/cameras/%s/frame", c.baseURL, c.cameraID), nil)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to build capture request: %w", err)
	}

	var out captureResponse
	if err := c.do(req, &out); err != nil {
		return Frame{}, err
	}

	data, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame data: %w", err)
	}
	return Frame{Width: out.Width, Height: out.Height, Data: data}, nil
}

// ExtractRegions submits a frame for contour extraction and returns
// the raw candidate regions. Geometric filtering is the caller's job.
func (c *Client) ExtractRegions(ctx context.Context, frame Frame) ([]challan.Region, error) {
	body, err := json.Marshal(regionsRequest{
		Width:  frame.Width,
		Height: frame.Height,
		Data:   base64.StdEncoding.EncodeToString(frame.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode regions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/v1/regions", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build regions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out regionsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Regions, nil
}

// RecognizeText runs OCR over one region of a frame.
func (c *Client) RecognizeText(ctx context.Context, frame Frame, region challan.Region) (string, float64, error) {
	body, err := json.Marshal(ocrRequest{
		Width:  frame.Width,
		Height: frame.Height,
		Data:   base64.StdEncoding.EncodeToString(frame.Data),
		Region: region,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/v1/ocr", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out ocrResponse
	if err := c.do(req, &out); err != nil {
		return "", 0, err
	}
	return out.Text, out.Confidence, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vision service returned status %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode vision service response: %w", err)
	}
	return nil
}
