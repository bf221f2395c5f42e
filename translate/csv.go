package translate

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/library"
)

// csvTranslator writes items as a CSV table with a header row.
type csvTranslator struct{}

// NewCSVTranslator returns the built-in CSV translator.
func NewCSVTranslator() Translator {
	return &csvTranslator{}
}

func (t *csvTranslator) ID() string { return "csv" }

func (t *csvTranslator) Translate(ctx context.Context, opts Options, items []*library.Item, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "translation cancelled")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", outputPath)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"id", "title", "creators", "year"}
	if opts.IncludeNotes {
		header = append(header, "notes")
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	for _, item := range items {
		creators := item.Creators
		if opts.AbbreviatedNames {
			creators = abbreviateCreators(creators)
		}
		year := ""
		if item.Year != nil {
			year = strconv.Itoa(*item.Year)
		}
		record := []string{item.ID, item.Title, creators, year}
		if opts.IncludeNotes {
			record = append(record, item.Notes)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write csv record for item %s", item.ID)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush csv output")
	}
	return nil
}
