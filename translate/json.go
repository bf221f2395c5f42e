package translate

import (
	"context"
	"encoding/json"
	"os"

	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/library"
)

// jsonTranslator writes items as a pretty-printed JSON array.
type jsonTranslator struct{}

// NewJSONTranslator returns the built-in JSON translator.
func NewJSONTranslator() Translator {
	return &jsonTranslator{}
}

func (t *jsonTranslator) ID() string { return "json" }

// jsonEntry is the exported shape of one item. Notes are omitted unless
// the definition opts in.
type jsonEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Creators string `json:"creators,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (t *jsonTranslator) Translate(ctx context.Context, opts Options, items []*library.Item, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "translation cancelled")
	}

	entries := make([]jsonEntry, 0, len(items))
	for _, item := range items {
		creators := item.Creators
		if opts.AbbreviatedNames {
			creators = abbreviateCreators(creators)
		}
		entry := jsonEntry{
			ID:       item.ID,
			Title:    item.Title,
			Creators: creators,
			Year:     item.Year,
		}
		if opts.IncludeNotes {
			entry.Notes = item.Notes
		}
		entries = append(entries, entry)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal items")
	}
	data = append(data, '\n')

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", outputPath)
	}
	return nil
}
