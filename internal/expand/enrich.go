package expand

import (
	"context"
	"errors"
	"fmt"

	"github.com/aigraph/aigraph/internal/enrich"
	"github.com/aigraph/aigraph/internal/entity"
	"github.com/aigraph/aigraph/internal/repository"
)

// enrich asks the sources for candidates related to src and persists them
// with a related link from src. Each candidate is persisted independently:
// a failed write is logged and skipped.
func (o *Orchestrator) enrich(ctx context.Context, src entity.Entity) {
	ref := src.EntityRef()
	prompt := enrich.BuildPrompt(src)

	var linked, failed int
	record := func(target entity.Ref, err error) {
		if err == nil {
			_, err = o.repo.InsertRelationship(ctx, ref, target, entity.RelRelated)
		}
		if err != nil {
			failed++
			o.log.Warn("skipping candidate", "source", ref, "err", err)
			return
		}
		linked++
	}

	for _, kind := range o.cfg.Targets[ref.Kind] {
		switch kind {
		case entity.KindTopic:
			cands, err := o.source.RelatedTopics(ctx, prompt, o.cfg.TopicCount)
			if err != nil {
				o.log.Warn("topic enrichment unavailable", "source", ref, "err", err)
			}
			cands = enrich.CleanTopics(cands, enrich.Filter{
				Exclude:  src.Label(),
				MinScore: o.cfg.MinScore,
				Limit:    o.cfg.TopicCount,
			})
			for _, c := range cands {
				record(o.persistTopic(ctx, src, c))
			}

		case entity.KindTool:
			cands, err := o.source.RelatedTools(ctx, prompt, o.cfg.ToolCount)
			if err != nil {
				o.log.Warn("tool enrichment unavailable", "source", ref, "err", err)
			}
			cands = enrich.CleanTools(cands, enrich.Filter{
				Exclude:  src.Label(),
				MinScore: o.cfg.MinScore,
				Limit:    o.cfg.ToolCount,
			})
			for _, c := range cands {
				record(o.persistTool(ctx, src, c))
			}

		case entity.KindPaper:
			if o.papers == nil {
				continue
			}
			cands, err := o.papers.RelatedPapers(ctx, src.Label(), o.cfg.PaperCount)
			if err != nil {
				o.log.Warn("paper enrichment unavailable", "source", ref, "err", err)
			}
			for i, c := range cands {
				if i == o.cfg.PaperCount {
					break
				}
				record(o.persistPaper(ctx, src, c))
			}
		}
	}

	o.log.Debug("enriched", "source", ref, "linked", linked, "failed", failed)
}

// persistTopic returns the ref of an existing topic named like c, or
// inserts a new one.
func (o *Orchestrator) persistTopic(ctx context.Context, src entity.Entity, c enrich.TopicCandidate) (entity.Ref, error) {
	existing, err := o.repo.FindTopicByName(ctx, c.Name)
	switch {
	case err == nil:
		return existing.EntityRef(), nil
	case !errors.Is(err, repository.ErrNotFound):
		return entity.Ref{}, fmt.Errorf("finding topic %q: %w", c.Name, err)
	}

	id, err := o.repo.InsertTopic(ctx, &entity.Topic{
		Name:          c.Name,
		Description:   c.Description,
		Source:        entity.SourceExpansion,
		VeracityScore: c.Score,
		DetailedInfo:  enrich.DetailFor(src, c.Name, c.Description),
	})
	if err != nil {
		return entity.Ref{}, fmt.Errorf("inserting topic %q: %w", c.Name, err)
	}
	return entity.TopicRef(id), nil
}

func (o *Orchestrator) persistTool(ctx context.Context, src entity.Entity, c enrich.ToolCandidate) (entity.Ref, error) {
	existing, err := o.repo.FindToolByName(ctx, c.Name)
	switch {
	case err == nil:
		return existing.EntityRef(), nil
	case !errors.Is(err, repository.ErrNotFound):
		return entity.Ref{}, fmt.Errorf("finding tool %q: %w", c.Name, err)
	}

	id, err := o.repo.InsertTool(ctx, &entity.Tool{
		Name:          c.Name,
		Description:   c.Description,
		Category:      c.Category,
		URL:           c.URL,
		VeracityScore: c.Score,
		DetailedInfo:  enrich.DetailFor(src, c.Name, c.Description),
	})
	if err != nil {
		return entity.Ref{}, fmt.Errorf("inserting tool %q: %w", c.Name, err)
	}
	return entity.ToolRef(id), nil
}

func (o *Orchestrator) persistPaper(ctx context.Context, src entity.Entity, c enrich.PaperCandidate) (entity.Ref, error) {
	if c.ExternalID != "" {
		existing, err := o.repo.FindPaperByExternalID(ctx, c.ExternalID)
		switch {
		case err == nil:
			return existing.EntityRef(), nil
		case !errors.Is(err, repository.ErrNotFound):
			return entity.Ref{}, fmt.Errorf("finding paper %s: %w", c.ExternalID, err)
		}
	}

	id, err := o.repo.InsertPaper(ctx, &entity.Paper{
		ExternalID:    c.ExternalID,
		Title:         c.Title,
		Authors:       c.Authors,
		Summary:       c.Summary,
		PublishedDate: c.PublishedDate,
		URL:           c.URL,
		DetailedInfo:  enrich.DetailFor(src, c.Title, c.Summary),
	})
	if err != nil {
		return entity.Ref{}, fmt.Errorf("inserting paper %q: %w", c.Title, err)
	}
	return entity.PaperRef(id), nil
}
