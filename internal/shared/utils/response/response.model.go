package response

// StandardApiResponse is the success envelope.
type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorEnvelope is the categorized failure envelope. Every failed request
// answers with exactly this shape; errorCode is a stable string clients
// branch on.
type ErrorEnvelope struct {
	StatusCode int         `json:"statusCode"`
	ErrorCode  string      `json:"errorCode"`
	Message    string      `json:"message"`
	Timestamp  string      `json:"timestamp"`
	Details    interface{} `json:"details,omitempty"`
}
