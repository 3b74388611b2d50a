// Package scrapeerr classifies scrape failures so a run can record them per section
package scrapeerr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a scrape failure
type Kind string

const (
	KindNavigation      Kind = "NavigationError"
	KindElementNotFound Kind = "ElementNotFoundError"
	KindExtraction      Kind = "ExtractionError"
	KindTableParse      Kind = "TableParseError"
	KindUnknown         Kind = "Error"
)

// Sentinels usable with errors.Is
var (
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrExtraction      = errors.New("extraction failed")
	ErrTableParse      = errors.New("table parse failed")
)

// Error is a classified scrape failure
type Error struct {
	Kind   Kind
	Target string // url or selector the step was working on
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Target)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNavigation:
		return e.Kind == KindNavigation
	case ErrElementNotFound:
		return e.Kind == KindElementNotFound
	case ErrExtraction:
		return e.Kind == KindExtraction
	case ErrTableParse:
		return e.Kind == KindTableParse
	}
	return false
}

// Navigation wraps err as a NavigationError for url
func Navigation(url string, err error) error {
	return &Error{Kind: KindNavigation, Target: url, Err: err}
}

// ElementNotFound reports that selector matched nothing
func ElementNotFound(selector string) error {
	return &Error{Kind: KindElementNotFound, Target: selector}
}

// Extraction reports that a matched element lacked the expected text or attribute
func Extraction(target string, err error) error {
	return &Error{Kind: KindExtraction, Target: target, Err: err}
}

// TableParse reports that a page had no table of the expected shape
func TableParse(target string, err error) error {
	return &Error{Kind: KindTableParse, Target: target, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
