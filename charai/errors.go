/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// UpstreamError is returned when the chat service answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Status     string
	// Message is human-readable: taken from the "message" field of the error body when possible.
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func newUpstreamError(resp *http.Response, body []byte) *UpstreamError {
	status := statusText(resp)
	upstreamErr := &UpstreamError{StatusCode: resp.StatusCode, Status: status}

	var errData struct {
		Message interface{} `json:"message"`
	}
	if json.Unmarshal(body, &errData) == nil {
		if msg, ok := errData.Message.(string); ok && msg != "" {
			upstreamErr.Message = msg
			return upstreamErr
		}
	}
	upstreamErr.Message = fmt.Sprintf("HTTP error! status: %d, message: %s", resp.StatusCode, status)
	return upstreamErr
}

// statusText returns the reason phrase sent by the server, e.g. "Internal Server Error".
func statusText(resp *http.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
