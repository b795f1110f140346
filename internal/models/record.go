package models

// GenerationRecord is one persisted row: the captured image, the prompt,
// and the generated video it produced. JSON field names match the GridDB
// container columns.
type GenerationRecord struct {
	ID                int    `json:"id"`
	ImageURL          string `json:"imageURL"`
	Prompt            string `json:"prompt"`
	GeneratedVideoURL string `json:"generatedVideoURL"`
}
