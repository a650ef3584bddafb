// Package http provides the JSON API over the transaction ledger.
//
// This file implements the Builder Pattern for constructing JSON responses,
// so every handler answers with the same envelope: data, an optional notice
// for degraded operation, and an error message on failure.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// envelope is the body of every JSON response.
type envelope struct {
	Data   interface{} `json:"data,omitempty"`
	Notice string      `json:"notice,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       envelope
	raw        []byte
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload.
func (b *JSONResponseBuilder) Data(v interface{}) *JSONResponseBuilder {
	b.body.Data = v
	return b
}

// Notice attaches a user-facing message about degraded operation.
// An empty notice is left out of the body.
func (b *JSONResponseBuilder) Notice(msg string) *JSONResponseBuilder {
	b.body.Notice = msg
	return b
}

// Error sets the error message.
func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	b.body.Error = msg
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Raw replaces the JSON envelope with a preformatted body. The caller sets
// the Content-Type through Header.
func (b *JSONResponseBuilder) Raw(content []byte) *JSONResponseBuilder {
	b.raw = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.raw != nil {
		w.WriteHeader(b.statusCode)
		_, _ = w.Write(b.raw)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.statusCode != http.StatusNoContent {
		_, _ = w.Write(append(payload, '\n'))
	}
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Error(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ServiceUnavailableError creates a 503 response, used when no backend
// accepted a write.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// PayloadTooLargeError creates a 413 response for bodies over the limit.
func PayloadTooLargeError(limit int64) *JSONResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// TooManyRequests answers rate-limited requests.
func TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}
