package main

import (
	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/repository/memory"
)

var seedForce bool

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Import even when the database already holds topics")
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter graph into the database",
	Long: `Load the built-in starter graph of AI topics, tools and papers into the
SQLite database. Nothing happens when the database already holds topics,
unless --force is given.`,
	RunE: runSeed,
}

// SeedResponse is the response for the seed command.
type SeedResponse struct {
	Status        string `json:"status"`
	Path          string `json:"path"`
	Topics        int    `json:"topics"`
	Papers        int    `json:"papers"`
	Tools         int    `json:"tools"`
	Relationships int    `json:"relationships"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ds, err := memory.Fixture()
	if err != nil {
		exitWithError(ExitDataError, "loading fixture: %v", err)
	}

	imported, err := db.Seed(cmd.Context(), ds, seedForce)
	if err != nil {
		exitWithError(ExitError, "seeding database: %v", err)
	}

	resp := SeedResponse{Status: "skipped", Path: cfg.Database.Path}
	if imported {
		resp = SeedResponse{
			Status:        "seeded",
			Path:          cfg.Database.Path,
			Topics:        len(ds.Topics),
			Papers:        len(ds.Papers),
			Tools:         len(ds.Tools),
			Relationships: len(ds.Relationships),
		}
	}

	if humanOutput {
		if !imported {
			outputHuman("Database %s already holds topics; use --force to import anyway\n", resp.Path)
			return nil
		}
		outputHuman("Seeded %s: %d topics, %d papers, %d tools, %d relationships\n",
			resp.Path, resp.Topics, resp.Papers, resp.Tools, resp.Relationships)
		return nil
	}
	return outputJSON(resp)
}
