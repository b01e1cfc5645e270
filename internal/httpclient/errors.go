package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxErrorBody = 512

// APIError is returned when the registry answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	// Body holds the start of the response body, which often explains the failure.
	Body string
}

func newAPIError(rawURL string, resp *http.Response, body []byte) *APIError {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = strings.ToValidUTF8(snippet[:cut], "") + "..."
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        rawURL,
		Body:       snippet,
	}
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	msg := fmt.Sprintf("GET %s: %s", e.URL, status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the registry.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
