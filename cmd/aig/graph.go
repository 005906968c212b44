package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/expand"
	"github.com/aigraph/aigraph/internal/graph"
)

var (
	graphView   string
	graphExpand []string
	expandView  string
)

func init() {
	graphCmd.Flags().StringVar(&graphView, "view", "topics", "Initial view: topics, tools or papers")
	graphCmd.Flags().StringSliceVar(&graphExpand, "expand", nil, "Refs to expand after loading (repeatable)")
	expandCmd.Flags().StringVar(&expandView, "view", "topics", "View loaded before expanding")
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(expandCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the graph of a view",
	Long: `Load a view and print its nodes, positions and edges.

Examples:
  aig graph
  aig graph --view tools
  aig graph --expand topic-3 --expand tool-2 --human`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

var expandCmd = &cobra.Command{
	Use:   "expand <ref>",
	Short: "Expand a node and print what it added",
	Long: `Load a view, expand one node and print the nodes and edges the
expansion added. A node without stored neighbours is enriched first and
the new entities are saved.

Examples:
  aig expand topic-1
  aig expand tool-4 --view tools --human`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	orch := newWorkspace(cfg, repo).newOrchestrator()
	snap := mustBuildGraph(cmd.Context(), orch, graphView, graphExpand)

	if humanOutput {
		printSnapshotHuman(snap)
		return nil
	}
	return outputJSON(snap)
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	ref := mustParseRef(args[0])
	orch := newWorkspace(cfg, repo).newOrchestrator()
	mustBuildGraph(cmd.Context(), orch, expandView, nil)

	delta, err := orch.Expand(cmd.Context(), ref)
	if err != nil {
		exitWithExpandError(err)
	}

	if humanOutput {
		if delta.IsEmpty() {
			outputHuman("%s: nothing new\n", ref)
			return nil
		}
		outputHuman("%s added %d nodes and %d edges\n", ref, len(delta.AddedNodes), len(delta.AddedEdges))
		printSnapshotHuman(graph.Snapshot{Nodes: delta.AddedNodes, Edges: delta.AddedEdges})
		return nil
	}
	return outputJSON(delta)
}

// mustBuildGraph loads view and expands refs in order, exits on error.
func mustBuildGraph(ctx context.Context, orch *expand.Orchestrator, view string, refs []string) graph.Snapshot {
	v, err := expand.ParseView(view)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	snap, err := orch.Load(ctx, v)
	if err != nil {
		exitWithError(ExitError, "loading %s view: %v", v, err)
	}
	if len(refs) == 0 {
		return snap
	}
	for _, s := range refs {
		if _, err := orch.Expand(ctx, mustParseRef(s)); err != nil {
			exitWithExpandError(err)
		}
	}
	return orch.Store().Snapshot()
}

func exitWithExpandError(err error) {
	if errors.Is(err, expand.ErrNotFound) {
		exitWithError(ExitDataError, "%v", err)
	}
	exitWithError(ExitError, "expanding: %v", err)
}

func printSnapshotHuman(snap graph.Snapshot) {
	for _, n := range snap.Nodes {
		outputHuman("%-10s %-*s (%7.1f, %7.1f)\n",
			n.Ref, LabelMaxLen, truncateString(n.Payload.Label(), LabelMaxLen), n.Position.X, n.Position.Y)
	}
	if len(snap.Edges) > 0 {
		fmt.Println()
	}
	for _, e := range snap.Edges {
		outputHuman("%s -> %s [%s]\n", e.Source, e.Target, e.Kind)
	}
}
