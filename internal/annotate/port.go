// Package annotate defines the outbound port to the annotation service: the
// JSON-RPC wire types, the Port interface the engine dispatches batches
// through, and the HTTP client implementation.
package annotate

import "context"

// Port is the engine's view of the annotation service. Implementations must
// be safe for concurrent use; the engine dispatches up to its configured
// concurrency bound of batches at once.
type Port interface {
	// AnalyzeBatch submits one batch payload and returns a result per
	// requested range. A transport or protocol failure is fatal for the
	// run; missing or empty results are per-node forfeits handled by the
	// caller.
	AnalyzeBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)

	// SummarizeGroup folds a container's statement summaries into one
	// container-level summary.
	SummarizeGroup(ctx context.Context, req GroupRequest) (string, error)
}
