package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", repository.DefaultSearchLimit, "Maximum results per kind")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(searchCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <ref>",
	Short: "Show an entity with its detail text and relationships",
	Long: `Show one topic, tool or paper with its detail text and stored
relationships. Entities without stored detail text get a generated one,
which is saved for later reads.

Examples:
  aig info topic-3
  aig info paper-1 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search topics, tools and papers",
	Long: `Search names, titles, descriptions, authors and categories for a
case-insensitive substring. Queries shorter than two characters match
nothing.

Examples:
  aig search learning
  aig search vaswani --human`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

// InfoResponse is the response for the info command.
type InfoResponse struct {
	Entity        entity.Entity         `json:"entity"`
	Info          string                `json:"info"`
	Relationships []entity.Relationship `json:"relationships"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	ctx := cmd.Context()
	ref := mustParseRef(args[0])

	e, err := repo.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		exitWithError(ExitDataError, "%v", err)
	}
	if err != nil {
		exitWithError(ExitError, "getting %s: %v", ref, err)
	}
	info, err := repository.DetailInfo(ctx, repo, ref)
	if err != nil {
		exitWithError(ExitError, "getting detail info: %v", err)
	}
	rels, err := repo.Relationships(ctx, ref)
	if err != nil {
		exitWithError(ExitError, "getting relationships: %v", err)
	}
	if rels == nil {
		rels = []entity.Relationship{}
	}

	if humanOutput {
		outputHuman("%s  %s\n\n%s\n", ref, e.Label(), info)
		if len(rels) > 0 {
			outputHuman("\nRelationships:\n")
		}
		for _, r := range rels {
			other, _ := r.Other(ref)
			outputHuman("  %-10s %s\n", other, r.Kind)
		}
		return nil
	}
	return outputJSON(InfoResponse{Entity: e, Info: info, Relationships: rels})
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	results, err := repo.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if results == nil {
		results = []repository.SearchResult{}
	}

	if humanOutput {
		if len(results) == 0 {
			outputHuman("No results for %q\n", args[0])
			return nil
		}
		for _, r := range results {
			outputHuman("%-10s %s\n", r.Ref, truncateString(r.Title, LabelMaxLen))
			if r.Description != "" {
				outputHuman("           %s\n", truncateString(r.Description, DescriptionMaxLen))
			}
		}
		return nil
	}
	return outputJSON(results)
}
