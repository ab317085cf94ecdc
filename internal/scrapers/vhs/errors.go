package vhs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormNotFound     = errors.New("vhs: search form not found")
	ErrMissingAction    = errors.New("vhs: search form has no action")
	ErrInvalidArgument  = errors.New("vhs: invalid argument")
	ErrLocationNotFound = errors.New("vhs: location not found")
)

// LocationNotFoundError carries the known locations closest to an unknown
// query.
type LocationNotFoundError struct {
	Query       string
	Suggestions []string
}

func (e *LocationNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s: %q", ErrLocationNotFound, e.Query)
	}
	return fmt.Sprintf(
		"%s: %q (did you mean %s?)",
		ErrLocationNotFound, e.Query, strings.Join(e.Suggestions, ", "),
	)
}

func (e *LocationNotFoundError) Unwrap() error {
	return ErrLocationNotFound
}
