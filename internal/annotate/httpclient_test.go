package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler is a convenience that decodes a JSONRPCRequest and writes back a JSONRPCResponse.
func rpcHandler(t *testing.T, fn func(req JSONRPCRequest) JSONRPCResponse) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method, "annotator calls always use POST")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req JSONRPCRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err, "server should be able to decode JSON-RPC request")

		assert.Equal(t, JSONRPCVersion, req.JSONRPC)

		resp := fn(req)
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(resp)
		require.NoError(t, err)
	}
}

func TestAnalyzeBatch_HappyPath(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		assert.Equal(t, MethodAnalyzeBatch, req.Method)

		var params BatchRequest
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "orders.sql", params.File)
		assert.Equal(t, "de", params.Locale)
		assert.Equal(t, ModeAnalyze, params.Mode)
		require.Len(t, params.Ranges, 2)
		assert.Equal(t, Range{Start: 7, End: 10}, params.Ranges[0])

		result, err := json.Marshal(BatchResponse{
			Results: []NodeResult{
				{
					Range:   Range{Start: 12, End: 14},
					Summary: "updates order status",
					Refs:    []CrossRef{{Kind: "table", Target: "orders"}},
				},
				{
					Range:   Range{Start: 7, End: 10},
					Summary: "reads pending orders",
				},
			},
		})
		require.NoError(t, err)

		return JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Result:  result,
		}
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	resp, err := client.AnalyzeBatch(context.Background(), BatchRequest{
		File:    "orders.sql",
		Payload: "7: SELECT ...\n12: UPDATE ...",
		Ranges:  []Range{{Start: 7, End: 10}, {Start: 12, End: 14}},
		Locale:  "de",
		Mode:    ModeAnalyze,
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, resp.Results, 2)
	// Results may arrive in any order; ranges identify them.
	assert.Equal(t, Range{Start: 12, End: 14}, resp.Results[0].Range)
	assert.Equal(t, "updates order status", resp.Results[0].Summary)
	require.Len(t, resp.Results[0].Refs, 1)
	assert.Equal(t, "table", resp.Results[0].Refs[0].Kind)
	assert.Equal(t, "orders", resp.Results[0].Refs[0].Target)
	assert.Equal(t, "reads pending orders", resp.Results[1].Summary)
}

func TestAnalyzeBatch_RPCError(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		return JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error: &JSONRPCError{
				Code:    ErrCodeBatchTooLarge,
				Message: "payload exceeds model context",
				Data:    json.RawMessage(`{"tokens":9000}`),
			},
		}
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	resp, err := client.AnalyzeBatch(context.Background(), BatchRequest{File: "big.sql"})

	require.Error(t, err)
	assert.Nil(t, resp)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, MethodAnalyzeBatch, rpcErr.Method)
	assert.Equal(t, ErrCodeBatchTooLarge, rpcErr.Code)
	assert.Equal(t, "payload exceeds model context", rpcErr.Message)
	assert.JSONEq(t, `{"tokens":9000}`, string(rpcErr.Data))
}

func TestSummarizeGroup_HappyPath(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		assert.Equal(t, MethodSummarizeGroup, req.Method)

		var params GroupRequest
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "orders.sql/process_order:1", params.Container)
		assert.Equal(t, "create_procedure", params.Kind)
		assert.Equal(t, []string{"reads pending orders", "updates order status"}, params.Fragments)

		result, err := json.Marshal(GroupResponse{Summary: "processes open orders end to end"})
		require.NoError(t, err)

		return JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Result:  result,
		}
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	summary, err := client.SummarizeGroup(context.Background(), GroupRequest{
		Container: "orders.sql/process_order:1",
		Kind:      "create_procedure",
		Fragments: []string{"reads pending orders", "updates order status"},
	})

	require.NoError(t, err)
	assert.Equal(t, "processes open orders end to end", summary)
}

func TestNon200HTTPStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	resp, err := client.AnalyzeBatch(context.Background(), BatchRequest{File: "f.sql"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "internal server error")

	// Ensure it is NOT an RPCError -- it is an HTTP-level error.
	var rpcErr *RPCError
	assert.False(t, errors.As(err, &rpcErr), "HTTP-level errors should not be RPCError")
}

func TestContextTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Delay longer than the context deadline to force a timeout.
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := client.AnalyzeBatch(ctx, BatchRequest{File: "slow.sql"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestWithTimeout_Option(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// Client-level timeout shorter than the mock delay.
	client := NewHTTPClient(ts.URL, WithTimeout(50*time.Millisecond))

	_, err := client.SummarizeGroup(context.Background(), GroupRequest{Container: "c"})
	require.Error(t, err)
}

func TestRequestIDsIncrease(t *testing.T) {
	var ids []int64

	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		// JSON numbers decode as float64 through the any-typed ID field.
		ids = append(ids, int64(req.ID.(float64)))
		result, _ := json.Marshal(BatchResponse{})
		return JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: req.ID, Result: result}
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	for i := 0; i < 3; i++ {
		_, err := client.AnalyzeBatch(context.Background(), BatchRequest{File: "f.sql"})
		require.NoError(t, err)
	}

	require.Len(t, ids, 3)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
