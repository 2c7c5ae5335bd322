// Package types defines the JSON envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps successful payloads, so a recognition result and a
// roster listing serialize under the same "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a classified error. Code carries the
// machine-readable taxonomy value, Details optional field-level validation
// output.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError for failed responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
