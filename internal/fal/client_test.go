package fal_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"camvid-backend/internal/fal"
)

const testModel = "fal-ai/kling-video/v2.1/pro/image-to-video"

func TestClient_Upload(t *testing.T) {
	var uploaded []byte
	var initiateAuth, putContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/storage/upload/initiate":
			initiateAuth = r.Header.Get("Authorization")
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "image/jpeg", req["content_type"])
			assert.Equal(t, "captured-image.jpg", req["file_name"])
			fmt.Fprintf(w, `{"file_url": "https://cdn.test/file.jpg", "upload_url": "http://%s/put"}`, r.Host)
		case "/put":
			assert.Equal(t, "PUT", r.Method)
			putContentType = r.Header.Get("Content-Type")
			uploaded, _ = io.ReadAll(r.Body)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	url, err := client.Upload(context.Background(), []byte("jpeg-bytes"), "image/jpeg", "captured-image.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.test/file.jpg", url)
	assert.Equal(t, []byte("jpeg-bytes"), uploaded)
	assert.Equal(t, "Key test-key", initiateAuth)
	assert.Equal(t, "image/jpeg", putContentType)
}

func TestClient_Upload_EmptyData(t *testing.T) {
	client := fal.NewClient("http://unused.test", "http://unused.test", "test-key", testModel)

	_, err := client.Upload(context.Background(), nil, "image/jpeg", "a.jpg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no file data")
}

func TestClient_Upload_InitiateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	_, err := client.Upload(context.Background(), []byte("jpeg-bytes"), "", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "storage unavailable")
}

func TestClient_Submit(t *testing.T) {
	var gotPath, gotWebhook, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWebhook = r.URL.Query().Get("fal_webhook")
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"request_id": "req-123"}`)
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	requestID, err := client.Submit(context.Background(), fal.GenerateRequest{
		Prompt:   "a dog running",
		ImageURL: "https://cdn.test/file.jpg",
	}, "https://app.test/api/v1/webhooks/fal")
	assert.NoError(t, err)
	assert.Equal(t, "req-123", requestID)
	assert.Equal(t, "/"+testModel, gotPath)
	assert.Equal(t, "https://app.test/api/v1/webhooks/fal", gotWebhook)
	assert.Equal(t, "Key test-key", gotAuth)

	// Defaults fill in unset generation params.
	assert.Equal(t, "a dog running", gotBody["prompt"])
	assert.Equal(t, "https://cdn.test/file.jpg", gotBody["image_url"])
	assert.Equal(t, "5", gotBody["duration"])
	assert.Equal(t, "16:9", gotBody["aspect_ratio"])
	assert.Equal(t, 0.5, gotBody["cfg_scale"])
	assert.Equal(t, "blur, distort, and low quality", gotBody["negative_prompt"])
}

func TestClient_Submit_ValidationBeforeNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	_, err := client.Submit(context.Background(), fal.GenerateRequest{ImageURL: "https://x/a.jpg"}, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")

	_, err = client.Submit(context.Background(), fal.GenerateRequest{Prompt: "  "}, "")
	assert.Error(t, err)

	assert.Equal(t, 0, requests)
}

func TestClient_FetchStatus_InProgress(t *testing.T) {
	resultCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testModel + "/requests/req-123/status":
			fmt.Fprint(w, `{"status": "IN_PROGRESS"}`)
		case "/" + testModel + "/requests/req-123":
			resultCalls++
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	snapshot, err := client.FetchStatus(context.Background(), "req-123")
	assert.NoError(t, err)
	assert.Equal(t, fal.StatusInProgress, snapshot.Status)
	assert.Empty(t, snapshot.VideoURL)
	assert.Equal(t, 0, resultCalls, "non-terminal status must not fetch the result")
}

func TestClient_FetchStatus_CompletedFoldsResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testModel + "/requests/req-123/status":
			fmt.Fprint(w, `{"status": "COMPLETED"}`)
		case "/" + testModel + "/requests/req-123":
			fmt.Fprint(w, `{"data": {"video": {"url": "https://cdn.test/video.mp4"}}}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	snapshot, err := client.FetchStatus(context.Background(), "req-123")
	assert.NoError(t, err)
	assert.Equal(t, fal.StatusCompleted, snapshot.Status)
	assert.Equal(t, "https://cdn.test/video.mp4", snapshot.VideoURL)
}

func TestClient_FetchStatus_CompletedMissingVideoURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testModel + "/requests/req-123/status":
			fmt.Fprint(w, `{"status": "COMPLETED"}`)
		default:
			fmt.Fprint(w, `{"data": {}}`)
		}
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	_, err := client.FetchStatus(context.Background(), "req-123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing video url")
}

func TestClient_FetchStatus_Failed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "FAILED", "error": "content policy violation"}`)
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, server.URL, "test-key", testModel)

	snapshot, err := client.FetchStatus(context.Background(), "req-123")
	assert.NoError(t, err)
	assert.Equal(t, fal.StatusFailed, snapshot.Status)
	assert.Equal(t, "content policy violation", snapshot.Error)
	assert.Empty(t, snapshot.VideoURL)
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   fal.Status
		terminal bool
	}{
		{fal.StatusInQueue, false},
		{fal.StatusInProgress, false},
		{fal.StatusCompleted, true},
		{fal.StatusFailed, true},
		{fal.StatusCancelled, true},
		{fal.Status("SOMETHING_ELSE"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.status.IsTerminal(), "status %s", tt.status)
	}
}
