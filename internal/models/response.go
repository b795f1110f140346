package models

import "time"

type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

type SubmitJobResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
}

type JobStatusResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

type GenerationStartedResponse struct {
	GenerationID string `json:"generation_id"`
	State        string `json:"state"`
}

type GenerationStatusResponse struct {
	GenerationID string    `json:"generation_id"`
	State        string    `json:"state"`
	Status       string    `json:"status,omitempty"`
	Prompt       string    `json:"prompt"`
	ImageURL     string    `json:"image_url,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	Polls        int       `json:"polls"`
	RecordID     int       `json:"record_id,omitempty"`
	PersistState string    `json:"persist_state"`
	PersistError string    `json:"persist_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SaveRecordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int    `json:"id"`
}

type RecordsResponse struct {
	Success bool               `json:"success"`
	Data    []GenerationRecord `json:"data"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
