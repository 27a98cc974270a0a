package graph

import "fmt"

// --- Enums ---

// EdgeKind classifies relationships in the annotation graph.
type EdgeKind string

const (
	// EdgeKindBelongsTo links a statement to its enclosing container.
	EdgeKindBelongsTo EdgeKind = "BELONGS_TO"
	// EdgeKindRefersTo links a statement to an entity it touches, such as a
	// table it reads or a routine it calls.
	EdgeKindRefersTo EdgeKind = "REFERS_TO"
)

// --- Models ---

// StatementRecord is one summarized statement persisted to the graph.
type StatementRecord struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Kind      string `json:"kind"`
	Summary   string `json:"summary"`
}

// Key returns the statement's graph identity: "file:start-end". Re-annotating
// a file upserts onto the same keys.
func (r StatementRecord) Key() string {
	return fmt.Sprintf("%s:%d-%d", r.File, r.StartLine, r.EndLine)
}

// ContainerRecord is a named top-level entity (procedure, function, class)
// with its folded container-level summary.
type ContainerRecord struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Summary   string `json:"summary"`
}

// EntityRecord is a cross-reference target the annotator spotted: a table,
// view, or routine named inside statement code. Entities are shared across
// files and keyed by kind plus name.
type EntityRecord struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Key returns the entity's graph identity: "kind:name".
func (e EntityRecord) Key() string {
	return e.Kind + ":" + e.Name
}

// Edge is one relationship between two graph nodes, identified by their keys.
type Edge struct {
	SourceKey string   `json:"sourceKey"`
	TargetKey string   `json:"targetKey"`
	Kind      EdgeKind `json:"kind"`
}

// SinkStats summarizes an annotation graph.
type SinkStats struct {
	StatementCount int `json:"statementCount"`
	ContainerCount int `json:"containerCount"`
	EntityCount    int `json:"entityCount"`
	EdgeCount      int `json:"edgeCount"`
}
