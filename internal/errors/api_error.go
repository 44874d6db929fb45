// Package errors writes JSON error bodies for the HTTP trigger.
package errors

// APIError is the error body returned by every endpoint.
type APIError struct {
	Error    string                 `json:"error"`
	ReportID string                 `json:"report_id,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// NewAPIError creates a new APIError with the given message and optional details.
func NewAPIError(message string, details map[string]interface{}) *APIError {
	return &APIError{
		Error:   message,
		Details: details,
	}
}

// ForReport tags the error with the report it concerns.
func (e *APIError) ForReport(reportID string) *APIError {
	e.ReportID = reportID
	return e
}
