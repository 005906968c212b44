package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/viz"
)

var (
	vizOutput string
	vizLayout string
	vizView   string
	vizExpand []string
	vizTitle  string
)

func init() {
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "Output file path (default: stdout)")
	vizCmd.Flags().StringVar(&vizLayout, "layout", viz.LayoutPreset, "Layout: preset (computed positions), force, circle, or grid")
	vizCmd.Flags().StringVar(&vizView, "view", "topics", "Initial view: topics, tools or papers")
	vizCmd.Flags().StringSliceVar(&vizExpand, "expand", nil, "Refs to expand before rendering (repeatable)")
	vizCmd.Flags().StringVar(&vizTitle, "title", "", "Page title")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Generate knowledge graph visualization",
	Long: `Generate an interactive HTML visualization of a view.

Topics are drawn as orange circles, tools as green hexagons and papers as
blue rectangles. The preset layout keeps the positions computed when the
nodes were placed.

Examples:
  # Generate HTML to stdout
  aig viz > graph.html

  # Expand two nodes first and write to a file
  aig viz --expand topic-3 --expand tool-1 --output graph.html

  # Let Cytoscape lay out the tools view
  aig viz --view tools --layout force -o tools.html`,
	Args: cobra.NoArgs,
	RunE: runViz,
}

func runViz(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	orch := newWorkspace(cfg, repo).newOrchestrator()
	snap := mustBuildGraph(cmd.Context(), orch, vizView, vizExpand)

	// Generate HTML (validates options internally)
	opts := viz.HTMLOptions{Layout: vizLayout, Title: vizTitle}
	html, err := viz.GenerateHTML(viz.FromSnapshot(snap), opts)
	if err != nil {
		return fmt.Errorf("generating HTML: %w", err)
	}

	if vizOutput == "" {
		fmt.Print(html)
		return nil
	}
	if err := os.WriteFile(vizOutput, []byte(html), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if humanOutput {
		outputHuman("Visualization written to %s\n", vizOutput)
		return nil
	}
	return outputJSON(StatusResponse{Status: "written", Path: vizOutput})
}
