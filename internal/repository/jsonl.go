package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aigraph/aigraph/internal/entity"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Record types in a JSONL dump.
const (
	RecordTopic        = "topic"
	RecordPaper        = "paper"
	RecordTool         = "tool"
	RecordRelationship = "relationship"
)

// Record is one line of a JSONL dump. Exactly one payload field is set,
// matching Type.
type Record struct {
	Type         string               `json:"type"`
	Topic        *entity.Topic        `json:"topic,omitempty"`
	Paper        *entity.Paper        `json:"paper,omitempty"`
	Tool         *entity.Tool         `json:"tool,omitempty"`
	Relationship *entity.Relationship `json:"relationship,omitempty"`
}

// Dataset is the full content of a repository.
type Dataset struct {
	Topics        []entity.Topic        `json:"topics"`
	Papers        []entity.Paper        `json:"papers"`
	Tools         []entity.Tool         `json:"tools"`
	Relationships []entity.Relationship `json:"relationships"`
}

// Dump reads every record from repo.
func Dump(ctx context.Context, repo Repository) (*Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	if ds.Topics, err = repo.ListTopics(ctx); err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	if ds.Papers, err = repo.ListPapers(ctx); err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	if ds.Tools, err = repo.ListTools(ctx); err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	if ds.Relationships, err = repo.ListRelationships(ctx); err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return &ds, nil
}

// WriteJSONL writes ds as one record per line. Topics come first so that a
// reader can resolve parents in order.
func WriteJSONL(w io.Writer, ds *Dataset) error {
	enc := json.NewEncoder(w)
	write := func(r Record) error {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding %s record: %w", r.Type, err)
		}
		return nil
	}

	for i := range ds.Topics {
		if err := write(Record{Type: RecordTopic, Topic: &ds.Topics[i]}); err != nil {
			return err
		}
	}
	for i := range ds.Papers {
		if err := write(Record{Type: RecordPaper, Paper: &ds.Papers[i]}); err != nil {
			return err
		}
	}
	for i := range ds.Tools {
		if err := write(Record{Type: RecordTool, Tool: &ds.Tools[i]}); err != nil {
			return err
		}
	}
	for i := range ds.Relationships {
		if err := write(Record{Type: RecordRelationship, Relationship: &ds.Relationships[i]}); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONL parses a dump written by WriteJSONL.
func ReadJSONL(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	var ds Dataset
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		switch {
		case rec.Type == RecordTopic && rec.Topic != nil:
			ds.Topics = append(ds.Topics, *rec.Topic)
		case rec.Type == RecordPaper && rec.Paper != nil:
			ds.Papers = append(ds.Papers, *rec.Paper)
		case rec.Type == RecordTool && rec.Tool != nil:
			ds.Tools = append(ds.Tools, *rec.Tool)
		case rec.Type == RecordRelationship && rec.Relationship != nil:
			ds.Relationships = append(ds.Relationships, *rec.Relationship)
		default:
			return nil, fmt.Errorf("line %d: unknown or empty record type %q", lineNum, rec.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}
	return &ds, nil
}

// Importer is implemented by repositories that can load a dataset while
// keeping its ids.
type Importer interface {
	Import(ctx context.Context, ds *Dataset) error
}
