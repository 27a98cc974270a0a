package graph

import (
	"context"
	"io"
)

// Sink is the interface for the annotation graph backend.
// Implementations: KuzuSink (production), MemSink (testing).
// All graph DB access goes through this interface.
type Sink interface {
	io.Closer

	// Schema setup — called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations. All writes are upserts keyed by record identity,
	// so re-annotating a file replaces its previous results.
	UpsertStatement(ctx context.Context, rec StatementRecord) error
	UpsertContainer(ctx context.Context, rec ContainerRecord) error
	UpsertEntity(ctx context.Context, rec EntityRecord) error
	UpsertEdge(ctx context.Context, edge Edge) error

	// Read operations. Per-file listings are ordered by start line.
	GetContainer(ctx context.Context, key string) (*ContainerRecord, error)
	ContainersForFile(ctx context.Context, file string) ([]ContainerRecord, error)
	AllContainers(ctx context.Context) ([]ContainerRecord, error)
	StatementsForFile(ctx context.Context, file string) ([]StatementRecord, error)
	AllEdges(ctx context.Context) ([]Edge, error)

	// Files returns the distinct file paths that hold any statement or
	// container, sorted. Flat files with no containers still appear here.
	Files(ctx context.Context) ([]string, error)

	// Stats.
	Stats(ctx context.Context) (*SinkStats, error)
}
