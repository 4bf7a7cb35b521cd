package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/astromechza/ticktrack/pkg/model"
)

// ErrValidation marks a payload that was rejected before any mutation.
var ErrValidation = errors.New("validation failed")

// ValidateDocument checks raw against the expected shape for the kind. A
// rejected payload has had no effect on the stored document.
func ValidateDocument(kind Kind, raw []byte) error {
	switch kind {
	case KindEntries:
		return validateEntries(raw)
	case KindActive:
		return validateActive(raw)
	case KindSuggestions:
		return validateSuggestions(raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// decodeStrict insists the top level opens with the given token ('[' or
// '{'), since e.g. "null" would otherwise decode happily into a nil slice.
func decodeStrict(raw []byte, opening byte, into interface{}, shape string) error {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != opening {
		return fmt.Errorf("%w: expected %s", ErrValidation, shape)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: expected %s: %v", ErrValidation, shape, err)
	}
	// Trailing garbage after the top-level value is also a rejection.
	if dec.More() {
		return fmt.Errorf("%w: trailing content after %s", ErrValidation, shape)
	}
	return nil
}

func validateEntries(raw []byte) error {
	var entries []model.HistoricalEntry
	if err := decodeStrict(raw, '[', &entries, "a JSON array of entries"); err != nil {
		return err
	}
	for i, e := range entries {
		if e.Project == "" || e.Task == "" {
			return fmt.Errorf("%w: entry %d is missing project or task", ErrValidation, i)
		}
		if e.TotalDurationMs < 0 || e.DurationSeconds < 0 {
			return fmt.Errorf("%w: entry %d has a negative duration", ErrValidation, i)
		}
	}
	return nil
}

func validateActive(raw []byte) error {
	var timers map[string]model.ActiveTimer
	if err := decodeStrict(raw, '{', &timers, "a JSON object of timers"); err != nil {
		return err
	}
	for id, t := range timers {
		if id == "" {
			return fmt.Errorf("%w: timer with empty id", ErrValidation)
		}
		if t.Project == "" || t.Task == "" {
			return fmt.Errorf("%w: timer %s is missing project or task", ErrValidation, id)
		}
		if !t.Consistent() {
			return fmt.Errorf("%w: timer %s is neither cleanly running nor cleanly paused", ErrValidation, id)
		}
	}
	return nil
}

func validateSuggestions(raw []byte) error {
	var suggestions []string
	return decodeStrict(raw, '[', &suggestions, "a JSON array of strings")
}
