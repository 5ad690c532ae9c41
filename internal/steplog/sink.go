package steplog

import (
	"encoding/json"
	"fmt"

	"github.com/cdstail/cdstail/internal/api"
	"github.com/cdstail/cdstail/internal/markup"
)

// Sink holds the latest log received from a worker
type Sink struct {
	translator markup.Translator
	log        *api.Log
	status     string
	loading    bool
}

// NewSink creates a sink in the loading state
func NewSink(translator markup.Translator) *Sink {
	if translator == nil {
		translator = markup.PlainTranslator{}
	}
	return &Sink{translator: translator, loading: true}
}

// Apply parses one worker message. A payload carrying step_logs replaces the
// held log wholesale. first is true for the message that ends loading. A
// malformed message returns an error and leaves the sink untouched.
func (s *Sink) Apply(msg string) (first bool, err error) {
	if msg == "" {
		return false, nil
	}

	var state api.BuildState
	if err := json.Unmarshal([]byte(msg), &state); err != nil {
		return false, fmt.Errorf("failed to parse step log message: %w", err)
	}

	if state.StepLogs != nil {
		s.log = state.StepLogs
	}
	if state.Status != "" {
		s.status = state.Status
	}

	if s.loading && s.log != nil {
		s.loading = false
		return true, nil
	}
	return false, nil
}

// Log returns the held log or nil
func (s *Sink) Log() *api.Log {
	return s.log
}

// Loading reports whether no log has arrived yet
func (s *Sink) Loading() bool {
	return s.loading
}

// ReportedStatus is the build status carried by the last message that had one
func (s *Sink) ReportedStatus() string {
	return s.status
}

// Text returns the held log untranslated
func (s *Sink) Text() string {
	if s.log == nil {
		return ""
	}
	return s.log.Val
}

// Raw returns the held log through the translator, or "" if there is none
func (s *Sink) Raw() string {
	if s.log == nil || s.log.Val == "" {
		return ""
	}
	return s.translator.ToMarkup(s.log.Val)
}
