package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"outagewatch/internal/types"
)

// maxRequestBodySize caps decoded request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// APIResponse wraps every successful payload as {"data": ...}.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse wraps every failure as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error. Wrapped causes are
// never included.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with the given status. A value that
// cannot be marshalled produces a 500 error body instead.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody(r, types.ErrCodeInternalUnexpected, "failed to encode response", nil))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an APIErrorResponse. An *types.AppError anywhere in
// the chain decides the status and code. Any other error is reported as
// internal_unexpected_error with a fixed message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError,
			errorBody(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
		return
	}
	JSON(w, r, appErr.HTTPStatus(), errorBody(r, appErr.Code, appErr.Message, appErr.Details))
}

func errorBody(r *http.Request, code types.ErrorCode, message string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// DecodeJSON strictly decodes a single JSON value from the request body into
// dst. Unknown fields, trailing values, empty and oversized bodies are all
// rejected with validation_invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return invalidJSON("request body must contain a single JSON object", nil)
	}
	return nil
}

func invalidJSON(message string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeValidationInvalidJSON, message, err)
}

// decodeError classifies a json.Decoder failure.
func decodeError(err error) *types.AppError {
	var (
		maxBytesErr  *http.MaxBytesError
		syntaxErr    *json.SyntaxError
		typeErr      *json.UnmarshalTypeError
		unknownField = "json: unknown field "
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return invalidJSON("request body must not exceed 1MB", err)
	case errors.As(err, &syntaxErr):
		return invalidJSON("malformed JSON in request body", err)
	case errors.As(err, &typeErr):
		return invalidJSON("invalid value for field", err).WithDetails(map[string]any{
			"field":    typeErr.Field,
			"expected": typeErr.Type.String(),
		})
	case strings.HasPrefix(err.Error(), unknownField):
		return invalidJSON("unknown field in request body: "+strings.TrimPrefix(err.Error(), unknownField), err)
	case errors.Is(err, io.EOF):
		return invalidJSON("request body must not be empty", err)
	default:
		return invalidJSON("invalid JSON in request body", err)
	}
}
