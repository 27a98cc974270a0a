package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/gloss/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from the annotation
// sink. Containers and statements are grouped by file; BELONGS_TO edges
// become solid arrows, REFERS_TO edges dashed arrows to entity nodes.
func GenerateMermaid(ctx context.Context, sink graph.Sink) (string, error) {
	files, err := sink.Files(ctx)
	if err != nil {
		return "", fmt.Errorf("list files: %w", err)
	}

	edges, err := sink.AllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Emit one subgraph per file: its containers, then its statements.
	for _, file := range files {
		containers, err := sink.ContainersForFile(ctx, file)
		if err != nil {
			return "", fmt.Errorf("containers for %s: %w", file, err)
		}
		statements, err := sink.StatementsForFile(ctx, file)
		if err != nil {
			return "", fmt.Errorf("statements for %s: %w", file, err)
		}
		if len(containers) == 0 && len(statements) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(file+"_file"), shortPath(file)))
		for _, c := range containers {
			sb.WriteString(fmt.Sprintf("    %s[\"%.40s\"]\n", getID(c.Key), c.Name))
		}
		for _, s := range statements {
			label := fmt.Sprintf("%d-%d %s", s.StartLine, s.EndLine, s.Kind)
			sb.WriteString(fmt.Sprintf("    %s[\"%.40s\"]\n", getID(s.Key()), label))
		}
		sb.WriteString("  end\n")
	}

	// Entities sit outside the file subgraphs.
	entityKeys := make(map[string]bool)
	for _, e := range edges {
		if e.Kind == graph.EdgeKindRefersTo {
			entityKeys[e.TargetKey] = true
		}
	}
	sorted := make([]string, 0, len(entityKeys))
	for k := range entityKeys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		sb.WriteString(fmt.Sprintf("  %s((\"%.40s\"))\n", getID(k), k))
	}

	// Emit edges: statement-to-container solid, statement-to-entity dashed.
	for _, e := range edges {
		srcID := getID(e.SourceKey)
		tgtID := getID(e.TargetKey)
		switch e.Kind {
		case graph.EdgeKindBelongsTo:
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", srcID, tgtID))
		case graph.EdgeKindRefersTo:
			sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", srcID, tgtID))
		}
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
