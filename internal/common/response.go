package common

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// DecodeResponse reads a response written with JSON/JSONError. On 2xx the
// "data" member is decoded into dst; otherwise the error body is returned as an
// *AppError carrying the upstream status.
func DecodeResponse(resp *http.Response, dst any) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if dst == nil {
			return nil
		}
		envelope := struct {
			Data any `json:"data"`
		}{Data: dst}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return &AppError{Code: "UPSTREAM", Message: resp.Status, HTTPStatus: resp.StatusCode}
	}
	return &AppError{
		Code:       body.Error.Code,
		Message:    body.Error.Message,
		HTTPStatus: resp.StatusCode,
		Details:    body.Error.Details,
	}
}
