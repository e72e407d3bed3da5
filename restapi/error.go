/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi contains helpers for the gateway's JSON APIs: error model, responders and request decoding.
package restapi

// Error is the body of every error response: {"error": {"domain": ..., "code": ..., "message": ...}}.
// Domain names the API that failed (the gateway itself or the settings API),
// Code is a stable camelCase identifier clients may switch on.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error codes shared by all gateway APIs. Codes specific to one API are declared next to its handlers.
const (
	ErrCodeInternal             = "internalError"
	ErrCodeNotFound             = "notFound"
	ErrCodeMethodNotAllowed     = "methodNotAllowed"
	ErrCodeTooManyRequests      = "tooManyRequests"
	ErrCodeBadRequest           = "badRequest"
	ErrCodeRequestBodyTooLarge  = "requestBodyTooLarge"
	ErrCodeUnsupportedMediaType = "unsupportedMediaType"
)

var defaultErrMessages = map[string]string{
	ErrCodeInternal:         "Internal error.",
	ErrCodeNotFound:         "Not found.",
	ErrCodeMethodNotAllowed: "Method not allowed.",
	ErrCodeTooManyRequests:  "Too many requests.",
}

// NewError creates a new Error. An empty message is replaced with the default one for the code, if any.
func NewError(domain, code, message string) *Error {
	if message == "" {
		message = defaultErrMessages[code]
	}
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError creates a new internal error with specified domain.
// Details of internal errors are logged, never sent to the client.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, "")
}

// AddContext adds value to error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[field] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Domain + ": " + e.Code + ": " + e.Message
}
