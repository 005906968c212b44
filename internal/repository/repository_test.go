package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aigraph/aigraph/internal/entity"
)

// parents maps topic id to parent id; 0 means root.
type parents map[int64]int64

func (p parents) lookup(_ context.Context, id int64) (*int64, error) {
	parent, ok := p[id]
	if !ok {
		return nil, fmt.Errorf("topic %d: %w", id, ErrNotFound)
	}
	if parent == 0 {
		return nil, nil
	}
	return &parent, nil
}

func TestCheckParent(t *testing.T) {
	tree := parents{1: 0, 2: 1, 3: 2, 4: 1}
	loop := parents{1: 2, 2: 1}

	tests := []struct {
		name     string
		tree     parents
		topicID  int64
		parentID int64
		wantErr  error
	}{
		{"new topic under leaf", tree, 0, 3, nil},
		{"move sibling", tree, 4, 3, nil},
		{"self", tree, 2, 2, ErrParentCycle},
		{"under own descendant", tree, 1, 3, ErrParentCycle},
		{"missing parent", tree, 0, 9, ErrNotFound},
		{"pre-existing loop", loop, 0, 1, ErrParentCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckParent(context.Background(), tt.tree.lookup, tt.topicID, tt.parentID, len(tt.tree))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckParent() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	if _, ok := NormalizeQuery(" a "); ok {
		t.Error("single character query should be rejected")
	}
	if q, ok := NormalizeQuery(" ml "); !ok || q != "ml" {
		t.Errorf("NormalizeQuery(\" ml \") = %q, %v", q, ok)
	}
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad json", "{not json}\n"},
		{"unknown type", `{"type":"widget"}` + "\n"},
		{"missing payload", `{"type":"topic"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSONL(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadJSONL_SkipsBlankLines(t *testing.T) {
	input := `{"type":"topic","topic":{"id":1,"name":"AI","description":"","source":"seed","veracity_score":1}}` + "\n\n" +
		`{"type":"relationship","relationship":{"id":1,"source":"topic-1","target":"tool-2","kind":"implements","created_at":"2024-01-01T00:00:00Z"}}` + "\n"

	ds, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(ds.Topics) != 1 || len(ds.Relationships) != 1 {
		t.Fatalf("got %d topics, %d relationships", len(ds.Topics), len(ds.Relationships))
	}
	if ds.Relationships[0].Target != entity.ToolRef(2) {
		t.Errorf("target = %v", ds.Relationships[0].Target)
	}
}
