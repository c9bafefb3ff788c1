package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
// Unknown fields are rejected so client typos surface as 400s instead of silent drops.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: errors.New("Invalid JSON format")})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// successEnvelope is the top-level shape of every successful API response.
type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorEnvelope is the top-level shape of every API error response.
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteData wraps data in the success envelope and writes it with the given status.
func WriteData(w http.ResponseWriter, code int, data any) {
	WriteJSON(w, code, successEnvelope{Success: true, Data: data})
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams. Transport-level
// failures (bad JSON, bad path segments) use this directly; service errors
// should go through WriteAppError so codes map to statuses in one place.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorEnvelope{Error: errorBody{Code: p.ErrCode, Message: p.Err.Error()}})
}

// WriteAppError renders a service error in the error envelope, translating
// its application code into an HTTP status. Errors without an application
// code surface as a generic 500 so internal detail never reaches clients.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		WriteJSON(w, http.StatusInternalServerError, errorEnvelope{Error: errorBody{
			Code:    string(apperrors.ErrCodeInternal),
			Message: "An unexpected error occurred",
		}})
		return
	}

	WriteJSON(w, statusForCode(appErr.Code), errorEnvelope{Error: errorBody{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

// statusForCode maps application error codes to HTTP statuses. Business-rule
// rejections (word minimum, duplicate, bad transition) are 422: the request
// was well-formed but the domain refused it.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict
	case apperrors.ErrCodeMinWordCount,
		apperrors.ErrCodeDuplicateSubmission,
		apperrors.ErrCodeInvalidStatusTransition:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
