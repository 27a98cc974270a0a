//go:build cgo

package main

import "github.com/dusk-indust/gloss/internal/graph"

// persistentIndex reports whether annotations survive the process. The kuzu
// driver needs cgo; this build has it.
const persistentIndex = true

// openSink opens the persistent graph index at path, creating it on first use.
func openSink(path string) (graph.Sink, error) {
	return graph.NewKuzuFileSink(path)
}
