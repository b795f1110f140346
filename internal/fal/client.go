package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Status is the remote job status reported by the fal queue.
type Status string

const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further transition occurs from this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

type Client struct {
	queueBaseURL string
	restBaseURL  string
	model        string
	apiKey       string
	httpClient   *http.Client
}

// GenerateRequest is the submit payload for the image-to-video model.
type GenerateRequest struct {
	Prompt         string  `json:"prompt"`
	ImageURL       string  `json:"image_url"`
	Duration       string  `json:"duration,omitempty"`
	AspectRatio    string  `json:"aspect_ratio,omitempty"`
	CFGScale       float64 `json:"cfg_scale,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
}

// StatusSnapshot combines the queue status with, on completion, the
// materialized result so callers only deal with one fetch.
type StatusSnapshot struct {
	RequestID string
	Status    Status
	VideoURL  string
	Error     string
}

type initiateUploadResponse struct {
	FileURL   string `json:"file_url"`
	UploadURL string `json:"upload_url"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type resultResponse struct {
	Data struct {
		Video struct {
			URL string `json:"url"`
		} `json:"video"`
	} `json:"data"`
}

func NewClient(queueBaseURL, restBaseURL, apiKey, model string) *Client {
	return &Client{
		queueBaseURL: strings.TrimSuffix(queueBaseURL, "/"),
		restBaseURL:  strings.TrimSuffix(restBaseURL, "/"),
		model:        strings.Trim(model, "/"),
		apiKey:       apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload stores a binary asset in fal storage and returns the URL at which
// it becomes externally fetchable. The storage API hands out a temporary
// upload link first; the asset bytes are then PUT directly to that link.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no file data provided")
	}
	if fileName == "" {
		fileName = "captured-image.jpg"
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	initBody, err := json.Marshal(map[string]string{
		"content_type": contentType,
		"file_name":    fileName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	initURL := c.restBaseURL + "/storage/upload/initiate"
	req, err := http.NewRequestWithContext(ctx, "POST", initURL, bytes.NewBuffer(initBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to initiate upload: status %d, body: %s", resp.StatusCode, string(body))
	}

	var init initiateUploadResponse
	if err := json.Unmarshal(body, &init); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	if init.UploadURL == "" || init.FileURL == "" {
		return "", fmt.Errorf("upload link missing in response, body: %s", string(body))
	}

	putReq, err := http.NewRequestWithContext(ctx, "PUT", init.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	putReq.Header.Set("Content-Type", contentType)

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode != http.StatusOK && putResp.StatusCode != http.StatusNoContent {
		putBody, _ := io.ReadAll(putResp.Body)
		return "", fmt.Errorf("failed to upload file: status %d, body: %s", putResp.StatusCode, string(putBody))
	}

	return init.FileURL, nil
}

// Submit enqueues a generation job and returns the request id used for
// subsequent status polls. Missing prompt or image URL fails before any
// network call. An optional webhook URL may be registered; completion is
// still detected by polling.
func (c *Client) Submit(ctx context.Context, genReq GenerateRequest, webhookURL string) (string, error) {
	if strings.TrimSpace(genReq.Prompt) == "" {
		return "", fmt.Errorf("missing required field: prompt")
	}
	if genReq.ImageURL == "" {
		return "", fmt.Errorf("missing required field: image_url")
	}

	if genReq.Duration == "" {
		genReq.Duration = "5"
	}
	if genReq.AspectRatio == "" {
		genReq.AspectRatio = "16:9"
	}
	if genReq.CFGScale == 0 {
		genReq.CFGScale = 0.5
	}
	if genReq.NegativePrompt == "" {
		genReq.NegativePrompt = "blur, distort, and low quality"
	}

	jsonData, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	submitURL := c.queueBaseURL + "/" + c.model
	if webhookURL != "" {
		submitURL += "?fal_webhook=" + url.QueryEscape(webhookURL)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", submitURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("failed to submit job: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result submitResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	if result.RequestID == "" {
		return "", fmt.Errorf("request_id is empty in response, body: %s", string(body))
	}

	return result.RequestID, nil
}

// FetchStatus returns the remote status for a submitted job. The queue API
// separates status from result; when the job has completed this also fetches
// the result payload and folds the video URL into the snapshot.
func (c *Client) FetchStatus(ctx context.Context, requestID string) (*StatusSnapshot, error) {
	if requestID == "" {
		return nil, fmt.Errorf("missing request_id")
	}

	statusURL := c.queueBaseURL + "/" + c.model + "/requests/" + requestID + "/status"
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get job status: status %d, body: %s", resp.StatusCode, string(body))
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	snapshot := &StatusSnapshot{
		RequestID: requestID,
		Status:    Status(status.Status),
		Error:     status.Error,
	}

	if snapshot.Status != StatusCompleted {
		return snapshot, nil
	}

	result, err := c.fetchResult(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if result.Data.Video.URL == "" {
		return nil, fmt.Errorf("result payload missing video url for request %s", requestID)
	}
	snapshot.VideoURL = result.Data.Video.URL

	return snapshot, nil
}

func (c *Client) fetchResult(ctx context.Context, requestID string) (*resultResponse, error) {
	resultURL := c.queueBaseURL + "/" + c.model + "/requests/" + requestID
	req, err := http.NewRequestWithContext(ctx, "GET", resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get job result: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result resultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}
