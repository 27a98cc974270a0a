package annotate

import "encoding/json"

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	// Annotator-specific error codes.
	ErrCodeBatchTooLarge     = -32001
	ErrCodeUnsupportedLocale = -32002
)

// Annotator method names.
const (
	MethodAnalyzeBatch   = "annotate/batch"
	MethodSummarizeGroup = "annotate/group"
)

// Analysis modes carried on batch requests.
const (
	ModeAnalyze   = "analyze"
	ModeTransform = "transform"
)

// Range is an inclusive 1-based line span identifying one statement inside a
// batch payload. The annotator echoes ranges back on its results; they are
// the join key between request and response.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BatchRequest asks the annotator to produce one result per requested range.
// The payload is the rendered source for every statement in the batch,
// concatenated in source order, with already-summarized descendants folded
// into single summary lines.
type BatchRequest struct {
	File    string  `json:"file"`
	Payload string  `json:"payload"`
	Ranges  []Range `json:"ranges"`
	Locale  string  `json:"locale,omitempty"`
	Mode    string  `json:"mode,omitempty"`
}

// CrossRef is a reference the annotator spotted inside a statement, such as
// a table it reads or a routine it calls.
type CrossRef struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// NodeResult is the annotator's verdict for a single range. An empty summary
// (and, in transform mode, empty code) means the annotator had nothing to
// say; callers treat such results as forfeits rather than failures.
type NodeResult struct {
	Range   Range      `json:"range"`
	Summary string     `json:"summary,omitempty"`
	Code    string     `json:"code,omitempty"`
	Refs    []CrossRef `json:"refs,omitempty"`
}

// BatchResponse carries the per-range results for one batch. Results may
// arrive in any order; ranges identify them.
type BatchResponse struct {
	Results []NodeResult `json:"results"`
}

// GroupRequest asks the annotator to fold a container's statement summaries
// into a single container-level summary. Fragments are in source order.
type GroupRequest struct {
	Container string   `json:"container"`
	Kind      string   `json:"kind,omitempty"`
	Fragments []string `json:"fragments"`
	Locale    string   `json:"locale,omitempty"`
}

// GroupResponse carries the folded container summary.
type GroupResponse struct {
	Summary string `json:"summary"`
}
