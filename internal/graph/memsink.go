package graph

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemSink satisfies Sink.
var _ Sink = (*MemSink)(nil)

// MemSink implements Sink using Go maps. Thread-safe via sync.RWMutex.
type MemSink struct {
	mu         sync.RWMutex
	statements map[string]StatementRecord // key: rec.Key()
	containers map[string]ContainerRecord // key: rec.Key
	entities   map[string]EntityRecord    // key: rec.Key()
	edges      []Edge
	edgeSeen   map[string]bool // dedup key: "src|kind|dst"
}

// NewMemSink returns an initialized MemSink ready for use.
func NewMemSink() *MemSink {
	return &MemSink{
		statements: make(map[string]StatementRecord),
		containers: make(map[string]ContainerRecord),
		entities:   make(map[string]EntityRecord),
		edgeSeen:   make(map[string]bool),
	}
}

// edgeKey builds the dedup key for an edge.
func edgeKey(e Edge) string {
	return e.SourceKey + "|" + string(e.Kind) + "|" + e.TargetKey
}

// InitSchema is a no-op for the in-memory sink.
func (m *MemSink) InitSchema(_ context.Context) error {
	return nil
}

// UpsertStatement stores a statement record keyed by "file:start-end".
func (m *MemSink) UpsertStatement(_ context.Context, rec StatementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements[rec.Key()] = rec
	return nil
}

// UpsertContainer stores a container record keyed by its container key.
func (m *MemSink) UpsertContainer(_ context.Context, rec ContainerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[rec.Key] = rec
	return nil
}

// UpsertEntity stores an entity record keyed by "kind:name".
func (m *MemSink) UpsertEntity(_ context.Context, rec EntityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[rec.Key()] = rec
	return nil
}

// UpsertEdge appends an edge unless the same (source, kind, target) triple
// is already present.
func (m *MemSink) UpsertEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := edgeKey(edge)
	if m.edgeSeen[k] {
		return nil
	}
	m.edgeSeen[k] = true
	m.edges = append(m.edges, edge)
	return nil
}

// GetContainer returns the container for the given key, or nil if not found.
func (m *MemSink) GetContainer(_ context.Context, key string) (*ContainerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ContainersForFile returns the containers declared in the given file,
// ordered by start line.
func (m *MemSink) ContainersForFile(_ context.Context, file string) ([]ContainerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ContainerRecord
	for _, c := range m.containers {
		if c.File == file {
			out = append(out, c)
		}
	}
	sortContainers(out)
	return out, nil
}

// AllContainers returns every stored container, ordered by file then start line.
func (m *MemSink) AllContainers(_ context.Context) ([]ContainerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ContainerRecord, 0, len(m.containers))
	for _, c := range m.containers {
		out = append(out, c)
	}
	sortContainers(out)
	return out, nil
}

// StatementsForFile returns the statements recorded for the given file,
// ordered by start line.
func (m *MemSink) StatementsForFile(_ context.Context, file string) ([]StatementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StatementRecord
	for _, s := range m.statements {
		if s.File == file {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].EndLine > out[j].EndLine
	})
	return out, nil
}

// Files returns the distinct file paths across statements and containers,
// sorted.
func (m *MemSink) Files(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for _, s := range m.statements {
		seen[s.File] = true
	}
	for _, c := range m.containers {
		seen[c.File] = true
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// AllEdges returns a copy of all edges in insertion order.
func (m *MemSink) AllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemSink) Stats(_ context.Context) (*SinkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &SinkStats{
		StatementCount: len(m.statements),
		ContainerCount: len(m.containers),
		EntityCount:    len(m.entities),
		EdgeCount:      len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory sink.
func (m *MemSink) Close() error {
	return nil
}

// sortContainers orders records by file, then start line, then key.
func sortContainers(cs []ContainerRecord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].File != cs[j].File {
			return cs[i].File < cs[j].File
		}
		if cs[i].StartLine != cs[j].StartLine {
			return cs[i].StartLine < cs[j].StartLine
		}
		return cs[i].Key < cs[j].Key
	})
}
