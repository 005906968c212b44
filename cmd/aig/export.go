package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/repository"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records as JSONL",
	Long: `Export every topic, paper, tool and relationship as JSONL, one typed
record per line. The dump can be served directly by the memory backend
(database.backend: memory, database.path: <file>.jsonl).

Examples:
  aig export > graph.jsonl
  aig export -o graph.jsonl`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	ds, err := repository.Dump(cmd.Context(), repo)
	if err != nil {
		exitWithError(ExitError, "reading records: %v", err)
	}

	if exportOutput == "" {
		w := bufio.NewWriter(os.Stdout)
		if err := repository.WriteJSONL(w, ds); err != nil {
			return err
		}
		return w.Flush()
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := repository.WriteJSONL(w, ds); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	n := len(ds.Topics) + len(ds.Papers) + len(ds.Tools) + len(ds.Relationships)
	if humanOutput {
		outputHuman("Exported %d records to %s\n", n, exportOutput)
		return nil
	}
	return outputJSON(StatusResponse{Status: "exported", Path: exportOutput})
}
