package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
)

var (
	reparentParent int64
	reparentRoot   bool
)

func init() {
	reparentCmd.Flags().Int64Var(&reparentParent, "parent", 0, "New parent topic id")
	reparentCmd.Flags().BoolVar(&reparentRoot, "root", false, "Make the topic a root")
	reparentCmd.MarkFlagsOneRequired("parent", "root")
	reparentCmd.MarkFlagsMutuallyExclusive("parent", "root")
	rootCmd.AddCommand(reparentCmd)
}

var reparentCmd = &cobra.Command{
	Use:   "reparent <topic-id>",
	Short: "Move a topic under another parent",
	Long: `Move a topic under another parent topic, or make it a root. Moves
that would put a topic beneath itself are rejected.

Examples:
  aig reparent 7 --parent 1
  aig reparent 7 --root`,
	Args: cobra.ExactArgs(1),
	RunE: runReparent,
}

func runReparent(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		exitWithError(ExitError, "invalid topic id %q", args[0])
	}
	var parent *int64
	if !reparentRoot {
		parent = &reparentParent
	}

	cfg := mustLoadConfig()
	repo := mustOpenRepository(cfg)
	defer repo.Close()

	topic, err := reparent(cmd.Context(), repo, id, parent)
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrParentCycle):
		exitWithError(ExitDataError, "%v", err)
	case err != nil:
		exitWithError(ExitError, "reparenting topic %d: %v", id, err)
	}

	if humanOutput {
		if topic.ParentID == nil {
			outputHuman("%s  %s is now a root\n", entity.TopicRef(id), topic.Name)
		} else {
			outputHuman("%s  %s is now under %s\n", entity.TopicRef(id), topic.Name, entity.TopicRef(*topic.ParentID))
		}
		return nil
	}
	return outputJSON(topic)
}

// reparent moves topic id under parent, or to the roots when parent is nil,
// and returns the stored topic.
func reparent(ctx context.Context, repo repository.Repository, id int64, parent *int64) (*entity.Topic, error) {
	if err := repo.SetTopicParent(ctx, id, parent); err != nil {
		return nil, err
	}
	e, err := repo.Get(ctx, entity.TopicRef(id))
	if err != nil {
		return nil, err
	}
	topic, ok := e.(*entity.Topic)
	if !ok {
		return nil, fmt.Errorf("topic %d: unexpected %T", id, e)
	}
	return topic, nil
}
