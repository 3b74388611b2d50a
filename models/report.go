package models

import (
	"fmt"
	"time"
)

// Section names used in reports
const (
	SectionNews          = "news"
	SectionFeaturedImage = "featured_image"
	SectionFacts         = "facts"
)

// HemisphereSection returns the section name for the hemisphere at listing index i
func HemisphereSection(i int) string {
	return fmt.Sprintf("hemisphere[%d]", i)
}

// SectionResult is the outcome of one section of a run
type SectionResult struct {
	Section  string
	OK       bool
	Kind     string // error kind, empty on success
	Message  string
	Duration time.Duration
}

// Report lists every section outcome of a run in execution order
type Report struct {
	Sections []SectionResult
}

// Succeed records a successful section
func (r *Report) Succeed(section string, d time.Duration) {
	r.Sections = append(r.Sections, SectionResult{Section: section, OK: true, Duration: d})
}

// Fail records a failed section
func (r *Report) Fail(section, kind string, err error, d time.Duration) {
	r.Sections = append(r.Sections, SectionResult{
		Section:  section,
		Kind:     kind,
		Message:  err.Error(),
		Duration: d,
	})
}

// Succeeded returns the names of the sections that succeeded
func (r *Report) Succeeded() []string {
	var names []string
	for _, s := range r.Sections {
		if s.OK {
			names = append(names, s.Section)
		}
	}
	return names
}

// Failed returns the failed sections
func (r *Report) Failed() []SectionResult {
	var failed []SectionResult
	for _, s := range r.Sections {
		if !s.OK {
			failed = append(failed, s)
		}
	}
	return failed
}

// AllFailed reports whether the run produced nothing at all
func (r *Report) AllFailed() bool {
	return len(r.Sections) > 0 && len(r.Succeeded()) == 0
}
