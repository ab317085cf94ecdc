package fetch

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrTimeout is returned when a request does not complete within the client timeout
// or the context deadline.
var ErrTimeout = errors.New("fetch: request timed out")

const snippetLength = 256

// HttpError is returned for every response with a non-2xx status.
type HttpError struct {
	StatusCode int
	Url        string
	Snippet    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("fetch: %s returned status %d: %s", e.Url, e.StatusCode, e.Snippet)
}

func snippet(body []byte) string {
	if len(body) <= snippetLength {
		return string(body)
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
