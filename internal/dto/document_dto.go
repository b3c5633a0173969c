package dto

import "time"

// UploadDocumentRequest carries the multipart form fields; the file part
// is read separately by the controller.
type UploadDocumentRequest struct {
	SessionId    string `form:"session_id" validate:"required"`
	CategoryHint string `form:"category_hint" validate:"required"`
}

type UploadDocumentResponse struct {
	SessionId       string                    `json:"session_id"`
	Category        string                    `json:"category"`
	Filename        string                    `json:"filename"`
	ExtractedFields map[string]ExtractedField `json:"extracted_fields"`
	AnalyzedAt      time.Time                 `json:"analyzed_at"`
}

type ExtractedField struct {
	Kind       string  `json:"kind"`
	Text       string  `json:"text,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type DocumentTypesResponse struct {
	Categories []string `json:"categories"`
	Extensions []string `json:"extensions"`
}
