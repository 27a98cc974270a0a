package graph

import (
	"context"
	"sort"
)

// RelatedContainer pairs a container with its affinity to a reference
// container, measured over shared entity references.
type RelatedContainer struct {
	Container      ContainerRecord `json:"container"`
	SharedEntities []string        `json:"sharedEntities"`
	Affinity       float64         `json:"affinity"`
}

// RelatedContainers ranks other containers by the entities (tables, views,
// routines) they share with the given container. Containers touching the
// same tables tend to implement the same business process, so this is the
// graph's answer to "what else should I read".
//
// Algorithm:
//  1. Build statement-to-container and statement-to-entity lookups in a
//     single pass over all edges (O(E) instead of O(N*E)).
//  2. Fold statement-level references up into per-container entity sets.
//  3. Score every other container by Jaccard similarity against the
//     reference container's entity set, dropping zero-affinity containers.
func RelatedContainers(ctx context.Context, sink Sink, key string) ([]RelatedContainer, error) {
	edges, err := sink.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	stmtContainer := make(map[string]string)
	stmtEntities := make(map[string][]string)
	for _, e := range edges {
		switch e.Kind {
		case EdgeKindBelongsTo:
			stmtContainer[e.SourceKey] = e.TargetKey
		case EdgeKindRefersTo:
			stmtEntities[e.SourceKey] = append(stmtEntities[e.SourceKey], e.TargetKey)
		}
	}

	entitySets := make(map[string]map[string]bool)
	for stmt, container := range stmtContainer {
		for _, ent := range stmtEntities[stmt] {
			if entitySets[container] == nil {
				entitySets[container] = make(map[string]bool)
			}
			entitySets[container][ent] = true
		}
	}

	target := entitySets[key]
	if len(target) == 0 {
		return nil, nil
	}

	var out []RelatedContainer
	for container, set := range entitySets {
		if container == key {
			continue
		}
		shared := intersect(target, set)
		if len(shared) == 0 {
			continue
		}
		rec, err := sink.GetContainer(ctx, container)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			// Dangling BELONGS_TO edge; the container row is gone.
			continue
		}
		union := len(target) + len(set) - len(shared)
		out = append(out, RelatedContainer{
			Container:      *rec,
			SharedEntities: shared,
			Affinity:       float64(len(shared)) / float64(union),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Affinity != out[j].Affinity {
			return out[i].Affinity > out[j].Affinity
		}
		return out[i].Container.Key < out[j].Container.Key
	})
	return out, nil
}

// intersect returns the sorted intersection of two entity sets.
func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
