// Package translate converts a set of library items into an output file.
//
// Translators identify themselves by format id ("json", "csv") and are looked
// up through a Registry. The export runner stays decoupled from serialization:
// it resolves the item selector, fetches items, and hands them to whichever
// translator the definition names.
package translate

import (
	"context"

	"github.com/veldt-io/exportd/library"
)

// Options carries per-definition format flags.
type Options struct {
	// IncludeNotes emits item notes alongside bibliographic fields.
	IncludeNotes bool `json:"include_notes,omitempty"`
	// AbbreviatedNames shortens given names to initials ("Doe, J.").
	AbbreviatedNames bool `json:"abbreviated_names,omitempty"`
}

// Translator serializes items to the file at outputPath.
// Implementations must be safe for concurrent use: the runner may execute
// exports for distinct definitions in parallel.
type Translator interface {
	// Translate writes the items to outputPath. Any returned error is
	// recorded as the definition's last error; it must carry a
	// human-readable description.
	Translate(ctx context.Context, opts Options, items []*library.Item, outputPath string) error

	// ID returns the format id ("json", "csv"). Used for registration and
	// definition routing.
	ID() string
}
