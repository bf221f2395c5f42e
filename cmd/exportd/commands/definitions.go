package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/export"
	"github.com/veldt-io/exportd/library"
	"github.com/veldt-io/exportd/logger"
	"github.com/veldt-io/exportd/translate"
)

// AddCmd registers an export definition
var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an export definition",
	Long: `Register an export definition binding a scope to an output path.

Exactly one of --collection or --library selects the scope. A definition
already registered at the same output path is replaced.

Examples:
  exportd add --collection c42 --path ~/exports/reading.json
  exportd add --library main --path ~/exports/all.csv --format csv --abbreviate-names`,
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionID, _ := cmd.Flags().GetString("collection")
		libraryID, _ := cmd.Flags().GetString("library")
		path, _ := cmd.Flags().GetString("path")
		format, _ := cmd.Flags().GetString("format")
		includeNotes, _ := cmd.Flags().GetBool("include-notes")
		abbreviate, _ := cmd.Flags().GetBool("abbreviate-names")

		var kind export.ScopeKind
		var scopeID string
		switch {
		case collectionID != "" && libraryID != "":
			return errors.NewInvalidRequestError("--collection and --library are mutually exclusive")
		case collectionID != "":
			kind, scopeID = export.ScopeCollection, collectionID
		case libraryID != "":
			kind, scopeID = export.ScopeLibrary, libraryID
		default:
			return errors.NewInvalidRequestError("one of --collection or --library is required")
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve path %s", path)
		}

		def, err := export.NewDefinition(kind, scopeID, absPath, format, translate.Options{
			IncludeNotes:     includeNotes,
			AbbreviatedNames: abbreviate,
		})
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		defs := export.NewStore(database)
		replaced, err := defs.RemoveByPath(absPath)
		if err != nil {
			return err
		}
		if err := defs.Insert(def); err != nil {
			return err
		}

		if replaced > 0 {
			fmt.Printf("Replaced definition at %s\n", absPath)
		}
		fmt.Printf("Added definition %s\n", def.ID)
		fmt.Printf("  Scope: %s %s\n", def.ScopeKind, def.ScopeID)
		fmt.Printf("  Path: %s\n", def.Path)
		fmt.Printf("  Format: %s\n", def.TranslatorID)
		return nil
	},
}

// LsCmd lists export definitions
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List export definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		defs, err := export.NewStore(database).List()
		if err != nil {
			return err
		}
		if len(defs) == 0 {
			fmt.Println("No export definitions")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCOPE\tFORMAT\tSTATUS\tPATH\tLAST ERROR")
		for _, def := range defs {
			fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
				def.ID, def.ScopeKind, def.ScopeID, def.TranslatorID,
				def.Status, def.Path, def.LastError)
		}
		return w.Flush()
	},
}

// RmCmd removes an export definition
var RmCmd = &cobra.Command{
	Use:   "rm <definition-id>",
	Short: "Remove an export definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := export.NewStore(database).Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed definition %s\n", args[0])
		return nil
	},
}

// RunCmd executes one export synchronously, skipping the debounce wait
var RunCmd = &cobra.Command{
	Use:   "run <definition-id>",
	Short: "Run one export immediately",
	Long: `Run one export immediately, bypassing the debounce wait and the
trigger mode. The command blocks until the export finishes and reports
its outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		defs := export.NewStore(database)
		lib := library.NewStore(database)
		runner := export.NewRunner(defs, lib, translate.DefaultRegistry(),
			export.RunnerConfig{}, logger.Logger.Named("runner"))
		defer runner.Shutdown()

		if err := runner.Execute(cmd.Context(), args[0]); err != nil {
			return err
		}

		def, err := defs.Get(args[0])
		if err != nil {
			return err
		}
		if def.LastError != "" {
			return errors.Newf("export failed: %s", def.LastError)
		}
		fmt.Printf("Exported %s %s to %s\n", def.ScopeKind, def.ScopeID, def.Path)
		return nil
	},
}

func init() {
	AddCmd.Flags().String("collection", "", "Collection id to watch")
	AddCmd.Flags().String("library", "", "Library id to watch")
	AddCmd.Flags().String("path", "", "Output file path (required)")
	AddCmd.Flags().String("format", "json", "Export format (json, csv)")
	AddCmd.Flags().Bool("include-notes", false, "Include item notes in the output")
	AddCmd.Flags().Bool("abbreviate-names", false, "Abbreviate creator given names")
	AddCmd.MarkFlagRequired("path")
}
