// Package entity defines the domain records of the knowledge graph: topics,
// papers, tools and the relationships between them.
package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which table an entity lives in.
type Kind string

const (
	KindTopic Kind = "topic"
	KindPaper Kind = "paper"
	KindTool  Kind = "tool"
)

// Kinds lists every entity kind in canonical order.
var Kinds = []Kind{KindTopic, KindPaper, KindTool}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTopic, KindPaper, KindTool:
		return true
	}
	return false
}

// rank gives the position of k in the total order used for edge identity.
func (k Kind) rank() int {
	switch k {
	case KindTopic:
		return 0
	case KindPaper:
		return 1
	case KindTool:
		return 2
	}
	return 3
}

// Ref errors.
var (
	ErrInvalidRef  = errors.New("invalid entity reference")
	ErrUnknownKind = errors.New("unknown entity kind")
)

// Ref identifies any graph member. IDs are only unique within a kind.
type Ref struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// NewRef builds a Ref.
func NewRef(kind Kind, id int64) Ref {
	return Ref{Kind: kind, ID: id}
}

// TopicRef, PaperRef and ToolRef are shorthands for NewRef.
func TopicRef(id int64) Ref { return Ref{Kind: KindTopic, ID: id} }
func PaperRef(id int64) Ref { return Ref{Kind: KindPaper, ID: id} }
func ToolRef(id int64) Ref { return Ref{Kind: KindTool, ID: id} }

// String returns the "<kind>-<id>" form.
func (r Ref) String() string {
	return fmt.Sprintf("%s-%d", r.Kind, r.ID)
}

// IsZero reports whether r is the zero value.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

// Validate checks that the kind is known and the id positive.
func (r Ref) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if r.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidRef, r.ID)
	}
	return nil
}

// Less orders refs by kind, then id.
func (r Ref) Less(o Ref) bool {
	if r.Kind != o.Kind {
		return r.Kind.rank() < o.Kind.rank()
	}
	return r.ID < o.ID
}

// ParseRef parses the "<kind>-<id>" form produced by String.
func ParseRef(s string) (Ref, error) {
	kind, idStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	r := Ref{Kind: Kind(strings.ToLower(kind)), ID: id}
	if err := r.Validate(); err != nil {
		return Ref{}, err
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler so refs can be map keys in JSON.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(b []byte) error {
	parsed, err := ParseRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
