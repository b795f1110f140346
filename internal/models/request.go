package models

type SubmitJobRequest struct {
	Prompt      string  `json:"prompt"`
	ImageURL    string  `json:"image_url"`
	Duration    string  `json:"duration,omitempty" example:"5"`
	AspectRatio string  `json:"aspect_ratio,omitempty" example:"16:9"`
	CFGScale    float64 `json:"cfg_scale,omitempty" example:"0.5"`
}

type SaveRecordRequest struct {
	ImageURL          string `json:"imageURL"`
	Prompt            string `json:"prompt"`
	GeneratedVideoURL string `json:"generatedVideoURL"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
