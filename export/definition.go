// Package export implements the auto-export scheduling pipeline: watch
// definitions, the debounce scheduler, the run executor, the trigger
// controller, the change router, and the coordinator facade that wires them
// to the event bus.
package export

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/translate"
)

// ScopeKind names what a definition watches.
type ScopeKind string

const (
	ScopeCollection ScopeKind = "collection"
	ScopeLibrary    ScopeKind = "library"
)

// IsValidScopeKind returns true if the string is a recognized scope kind.
func IsValidScopeKind(s string) bool {
	switch ScopeKind(s) {
	case ScopeCollection, ScopeLibrary:
		return true
	default:
		return false
	}
}

// Status is a definition's position in the scheduling pipeline.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
)

// Definition binds a watched scope to an output path and format.
// At most one definition exists per output path; LastError is empty after a
// successful export and carries the failure description otherwise.
type Definition struct {
	ID           string            `json:"id"`
	ScopeKind    ScopeKind         `json:"scope_kind"`
	ScopeID      string            `json:"scope_id"`
	Path         string            `json:"path"`
	TranslatorID string            `json:"translator_id"`
	Options      translate.Options `json:"options"`
	Status       Status            `json:"status"`
	LastError    string            `json:"last_error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewDefinition creates a definition with a fresh identity. New definitions
// start out done: nothing is pending until the first touch or explicit run.
func NewDefinition(kind ScopeKind, scopeID, path, translatorID string, opts translate.Options) (*Definition, error) {
	if !IsValidScopeKind(string(kind)) {
		return nil, errors.NewInvalidRequestError("invalid scope kind %q", kind)
	}
	if scopeID == "" {
		return nil, errors.NewInvalidRequestError("scope id cannot be empty")
	}
	if path == "" {
		return nil, errors.NewInvalidRequestError("output path cannot be empty")
	}
	if translatorID == "" {
		return nil, errors.NewInvalidRequestError("translator id cannot be empty")
	}

	now := time.Now()
	return &Definition{
		ID:           uuid.NewString(),
		ScopeKind:    kind,
		ScopeID:      scopeID,
		Path:         path,
		TranslatorID: translatorID,
		Options:      opts,
		Status:       StatusDone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// marshalOptions converts Options to their stored JSON form.
func marshalOptions(opts translate.Options) (string, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal options")
	}
	return string(data), nil
}

// unmarshalOptions converts the stored JSON form back to Options.
func unmarshalOptions(data string) (translate.Options, error) {
	var opts translate.Options
	if data == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return opts, errors.Wrap(err, "failed to unmarshal options")
	}
	return opts, nil
}
