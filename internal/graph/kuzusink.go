//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuSink implements the Sink interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuSink struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuSink satisfies Sink.
var _ Sink = (*KuzuSink)(nil)

// NewKuzuSink creates a KuzuSink backed by an in-memory KuzuDB instance.
func NewKuzuSink() (*KuzuSink, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuSink{db: db, conn: conn}, nil
}

// NewKuzuFileSink creates a KuzuSink backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new
// databases; for existing ones the directory must contain valid KuzuDB
// files. This is what lets annotation graphs survive across runs.
func NewKuzuFileSink(dbPath string) (*KuzuSink, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuSink{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Statement(
		key STRING,
		file STRING,
		start_line INT64,
		end_line INT64,
		kind STRING,
		summary STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Container(
		key STRING,
		name STRING,
		kind STRING,
		file STRING,
		start_line INT64,
		end_line INT64,
		summary STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Entity(
		key STRING,
		name STRING,
		kind STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS BELONGS_TO(FROM Statement TO Container)`,
	`CREATE REL TABLE IF NOT EXISTS REFERS_TO(FROM Statement TO Entity)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuSink) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// UpsertStatement merges a Statement node on its key and refreshes all
// attribute columns, so re-annotating a file replaces earlier summaries.
func (s *KuzuSink) UpsertStatement(_ context.Context, rec StatementRecord) error {
	return s.exec(
		`MERGE (n:Statement {key: $key})
		 ON CREATE SET n.file = $file, n.start_line = $sl, n.end_line = $el, n.kind = $kind, n.summary = $summary
		 ON MATCH SET n.file = $file, n.start_line = $sl, n.end_line = $el, n.kind = $kind, n.summary = $summary`,
		map[string]any{
			"key":     rec.Key(),
			"file":    rec.File,
			"sl":      int64(rec.StartLine),
			"el":      int64(rec.EndLine),
			"kind":    rec.Kind,
			"summary": rec.Summary,
		},
	)
}

// UpsertContainer merges a Container node on its key.
func (s *KuzuSink) UpsertContainer(_ context.Context, rec ContainerRecord) error {
	return s.exec(
		`MERGE (n:Container {key: $key})
		 ON CREATE SET n.name = $name, n.kind = $kind, n.file = $file, n.start_line = $sl, n.end_line = $el, n.summary = $summary
		 ON MATCH SET n.name = $name, n.kind = $kind, n.file = $file, n.start_line = $sl, n.end_line = $el, n.summary = $summary`,
		map[string]any{
			"key":     rec.Key,
			"name":    rec.Name,
			"kind":    rec.Kind,
			"file":    rec.File,
			"sl":      int64(rec.StartLine),
			"el":      int64(rec.EndLine),
			"summary": rec.Summary,
		},
	)
}

// UpsertEntity merges an Entity node on its key.
func (s *KuzuSink) UpsertEntity(_ context.Context, rec EntityRecord) error {
	return s.exec(
		`MERGE (n:Entity {key: $key})
		 ON CREATE SET n.name = $name, n.kind = $kind
		 ON MATCH SET n.name = $name, n.kind = $kind`,
		map[string]any{
			"key":  rec.Key(),
			"name": rec.Name,
			"kind": rec.Kind,
		},
	)
}

// UpsertEdge merges a relationship edge between two existing nodes.
// The Cypher statement is chosen based on the EdgeKind. Missing endpoints
// make the MATCH empty, so the merge is a silent no-op.
func (s *KuzuSink) UpsertEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceKey,
		"dst": edge.TargetKey,
	})
}

// edgeCypher returns the MATCH-MERGE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindBelongsTo:
		return `MATCH (a:Statement {key: $src}), (b:Container {key: $dst})
				MERGE (a)-[:BELONGS_TO]->(b)`, nil
	case EdgeKindRefersTo:
		return `MATCH (a:Statement {key: $src}), (b:Entity {key: $dst})
				MERGE (a)-[:REFERS_TO]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

// GetContainer retrieves a single Container node by key, or nil if not found.
func (s *KuzuSink) GetContainer(_ context.Context, key string) (*ContainerRecord, error) {
	rows, err := s.query(
		`MATCH (c:Container {key: $key})
		 RETURN c.key, c.name, c.kind, c.file, c.start_line, c.end_line, c.summary`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToContainer(rows[0]), nil
}

// ContainersForFile returns the containers declared in the given file,
// ordered by start line.
func (s *KuzuSink) ContainersForFile(_ context.Context, file string) ([]ContainerRecord, error) {
	rows, err := s.query(
		`MATCH (c:Container {file: $file})
		 RETURN c.key, c.name, c.kind, c.file, c.start_line, c.end_line, c.summary
		 ORDER BY c.start_line`,
		map[string]any{"file": file},
	)
	if err != nil {
		return nil, err
	}
	out := make([]ContainerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToContainer(r))
	}
	return out, nil
}

// AllContainers returns every stored container, ordered by file then start line.
func (s *KuzuSink) AllContainers(_ context.Context) ([]ContainerRecord, error) {
	rows, err := s.query(
		`MATCH (c:Container)
		 RETURN c.key, c.name, c.kind, c.file, c.start_line, c.end_line, c.summary
		 ORDER BY c.file, c.start_line`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ContainerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToContainer(r))
	}
	return out, nil
}

// StatementsForFile returns the statements recorded for the given file,
// ordered by start line.
func (s *KuzuSink) StatementsForFile(_ context.Context, file string) ([]StatementRecord, error) {
	rows, err := s.query(
		`MATCH (n:Statement {file: $file})
		 RETURN n.file, n.start_line, n.end_line, n.kind, n.summary
		 ORDER BY n.start_line, n.end_line DESC`,
		map[string]any{"file": file},
	)
	if err != nil {
		return nil, err
	}
	out := make([]StatementRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, StatementRecord{
			File:      toString(r[0]),
			StartLine: toInt(r[1]),
			EndLine:   toInt(r[2]),
			Kind:      toString(r[3]),
			Summary:   toString(r[4]),
		})
	}
	return out, nil
}

// Files returns the distinct file paths across Statement and Container
// nodes, sorted.
func (s *KuzuSink) Files(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, cypher := range []string{
		"MATCH (n:Statement) RETURN DISTINCT n.file",
		"MATCH (n:Container) RETURN DISTINCT n.file",
	} {
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			seen[toString(r[0])] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// AllEdges returns all edges across both relationship tables.
func (s *KuzuSink) AllEdges(_ context.Context) ([]Edge, error) {
	type relQuery struct {
		cypher string
		kind   EdgeKind
	}

	queries := []relQuery{
		{"MATCH (a:Statement)-[:BELONGS_TO]->(b:Container) RETURN a.key, b.key", EdgeKindBelongsTo},
		{"MATCH (a:Statement)-[:REFERS_TO]->(b:Entity) RETURN a.key, b.key", EdgeKindRefersTo},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			// Table may not exist yet; skip.
			continue
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceKey: toString(r[0]),
				TargetKey: toString(r[1]),
				Kind:      q.kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuSink) Stats(_ context.Context) (*SinkStats, error) {
	statements, err := s.countTable("Statement")
	if err != nil {
		return nil, err
	}
	containers, err := s.countTable("Container")
	if err != nil {
		return nil, err
	}
	entities, err := s.countTable("Entity")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	return &SinkStats{
		StatementCount: statements,
		ContainerCount: containers,
		EntityCount:    entities,
		EdgeCount:      edges,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuSink) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuSink) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuSink) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuSink) countEdges() (int, error) {
	tables := []string{"BELONGS_TO", "REFERS_TO"}
	total := 0
	for _, t := range tables {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToContainer converts a 7-column result row into a ContainerRecord.
// Column order: key, name, kind, file, start_line, end_line, summary.
func rowToContainer(r []any) *ContainerRecord {
	return &ContainerRecord{
		Key:       toString(r[0]),
		Name:      toString(r[1]),
		Kind:      toString(r[2]),
		File:      toString(r[3]),
		StartLine: toInt(r[4]),
		EndLine:   toInt(r[5]),
		Summary:   toString(r[6]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
