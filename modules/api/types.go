package api

// UploadResponse is the upload boundary's response.
type UploadResponse struct {
	URL       string `json:"url"`
	ImageFlag bool   `json:"imageFlag"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
