/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"code.cloudfoundry.org/bytefmt"
)

// MalformedRequestError is an error that occurs in case of incorrect request.
// It is sent to the client as is, with Code as the error code.
type MalformedRequestError struct {
	HTTPStatusCode int
	Code           string
	Message        string
}

func badRequest(msg string) *MalformedRequestError {
	return &MalformedRequestError{http.StatusBadRequest, ErrCodeBadRequest, msg}
}

// Error returns a string representation of MalformedRequestError.
func (e *MalformedRequestError) Error() string {
	return e.Message
}

// NewTooLargeMalformedRequestError creates a new MalformedRequestError for case when request body is too large.
func NewTooLargeMalformedRequestError(maxSizeBytes uint64) *MalformedRequestError {
	return &MalformedRequestError{
		http.StatusRequestEntityTooLarge,
		ErrCodeRequestBodyTooLarge,
		fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)),
	}
}

// DecodeRequestJSON reads the request body and decodes a single JSON value into dst.
// Decoding problems are reported as *MalformedRequestError.
func DecodeRequestJSON(r *http.Request, dst interface{}) error {
	if reqContentType := r.Header.Get("Content-Type"); reqContentType != "" {
		contentType, _, err := mime.ParseMediaType(reqContentType)
		if err != nil {
			return &MalformedRequestError{
				http.StatusUnsupportedMediaType,
				ErrCodeUnsupportedMediaType,
				fmt.Sprintf("failed to parse Content-Type header for request: %s", err),
			}
		}
		if contentType != ContentTypeAppJSON {
			return &MalformedRequestError{
				http.StatusUnsupportedMediaType,
				ErrCodeUnsupportedMediaType,
				fmt.Sprintf("Content-Type %q is not supported.", contentType),
			}
		}
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return toMalformedRequestError(err)
	}
	// Decoder is designed to decode streams of JSON values, but the body must hold only one.
	if decoder.More() {
		return badRequest("Request body must only contain a single JSON value.")
	}
	return nil
}

func toMalformedRequestError(err error) error {
	var syntaxErr *json.SyntaxError
	var unmarshalTypeErr *json.UnmarshalTypeError
	var tooLargeErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return badRequest("Request body must not be empty.")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return badRequest("Request body contains badly-formed JSON.")
	case errors.As(err, &syntaxErr):
		return badRequest(fmt.Sprintf("Request body contains badly-formed JSON (at position %d).", syntaxErr.Offset))
	case errors.As(err, &unmarshalTypeErr):
		return badRequest(fmt.Sprintf("Request body contains an invalid value of type %q for the field of type %s.",
			unmarshalTypeErr.Value, unmarshalTypeErr.Type.String()))
	case errors.As(err, &tooLargeErr):
		return NewTooLargeMalformedRequestError(uint64(tooLargeErr.Limit)) //nolint:gosec // limit is positive
	}
	return err
}
