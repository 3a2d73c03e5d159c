package server

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/cache"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/oracle"
	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

type stubOracle struct {
	verdict *oracle.Verdict
	err     error
}

func (o *stubOracle) Resolve(context.Context, string, []llm.Message) iter.Seq2[oracle.Step, error] {
	return func(yield func(oracle.Step, error) bool) {
		if !yield(oracle.Step{Call: tools.Call{Kind: tools.RagSearch, Query: "q"}}, nil) {
			return
		}
		if o.err != nil {
			yield(oracle.Step{}, o.err)
			return
		}
		v := *o.verdict
		yield(oracle.Step{Final: &v}, nil)
	}
}

func (o *stubOracle) State(context.Context, string) (*oracle.Verdict, error) {
	return o.verdict, nil
}

func newTestServer(t *testing.T, o oracle.Oracle) *Server {
	t.Helper()
	c := cache.NewMemory(cache.Options{})
	exec, err := task.NewExecutor(task.Options{Oracle: o, Cache: c, Logger: logger.Discard()})
	require.NoError(t, err)
	srv, err := New(Config{Provider: "google", Model: "gemini-2.0-flash", EnableRAG: true, EnableCaching: true, AllowAll: true},
		Deps{Executor: exec, Cache: c, Logger: logger.Discard()})
	require.NoError(t, err)
	return srv
}

func okOracle() *stubOracle {
	return &stubOracle{verdict: &oracle.Verdict{Status: agent.StatusCompleted, Message: "iPhone 15 giá 19.990.000", Confidence: 0.9, Sources: []string{"vector DB"}}}
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, okOracle())

	t.Run("Should report ok", func(t *testing.T) {
		w := do(t, srv, "GET", "/healthz", "")
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("Should report features", func(t *testing.T) {
		w := do(t, srv, "GET", "/health/detailed", "")
		require.Equal(t, http.StatusOK, w.Code)
		var body detailedHealth
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.True(t, body.Features.RAG)
		assert.False(t, body.Features.WebSearch)
		assert.Equal(t, "gemini-2.0-flash", body.Model)
	})

	t.Run("Should send CORS headers", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/healthz", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSubmit(t *testing.T) {
	t.Run("Should return the answer and cache it", func(t *testing.T) {
		srv := newTestServer(t, okOracle())
		body := `{"text":"giá iphone 15","session_id":"s","context_id":"c"}`

		w := do(t, srv, "POST", "/v1/tasks", body)
		require.Equal(t, http.StatusOK, w.Code)
		var resp submitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.TaskID)
		assert.Equal(t, task.StateCompleted, resp.State)
		require.NotNil(t, resp.Answer)
		assert.Equal(t, []string{"rag_search"}, resp.Answer.ToolsUsed)
		assert.False(t, resp.Answer.FromCache)

		w = do(t, srv, "POST", "/v1/tasks", body)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Answer.FromCache)

		w = do(t, srv, "GET", "/metrics", "")
		var snap map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.EqualValues(t, 2, snap["total_requests"])
		assert.EqualValues(t, 1, snap["cache_hits"])
	})

	t.Run("Should reject invalid queries", func(t *testing.T) {
		srv := newTestServer(t, okOracle())
		w := do(t, srv, "POST", "/v1/tasks", `{"text":"a"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, srv, "POST", "/v1/tasks", `not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should return the degraded answer with the fault", func(t *testing.T) {
		srv := newTestServer(t, &stubOracle{err: errors.New("model unavailable")})
		w := do(t, srv, "POST", "/v1/tasks", `{"text":"xin chào","context_id":"c"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var resp submitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "model unavailable")
		require.NotNil(t, resp.Answer)
		assert.Equal(t, agent.StatusInputRequired, resp.Answer.Status)
		assert.Equal(t, task.StateInputRequired, resp.State)
	})

	t.Run("Should refuse cancellation", func(t *testing.T) {
		srv := newTestServer(t, okOracle())
		w := do(t, srv, "POST", "/v1/tasks/abc/cancel", "")
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})
}

func TestDashboardMounted(t *testing.T) {
	srv := newTestServer(t, okOracle())

	w := do(t, srv, "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/v1/tasks/stream")

	w = do(t, srv, "DELETE", "/api/dashboard/threads/c", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestPrometheus(t *testing.T) {
	srv := newTestServer(t, okOracle())
	do(t, srv, "POST", "/v1/tasks", `{"text":"xin chào"}`)

	w := do(t, srv, "GET", "/metrics/prometheus", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shopagent_requests_total{outcome="successful"} 1`)
	assert.Contains(t, w.Body.String(), `shopagent_cache_entries 1`)
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, okOracle())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/tasks/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	t.Run("Should stream events up to the terminal one", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(agent.QueryRequest{Text: "giá iphone 15", ContextID: "c"}))

		var frames []eventFrame
		for {
			var f eventFrame
			require.NoError(t, conn.ReadJSON(&f))
			frames = append(frames, f)
			if f.Final {
				break
			}
		}
		require.Len(t, frames, 3)
		assert.Equal(t, task.PhaseStarted, frames[0].Phase)
		assert.Equal(t, task.PhaseToolInvoked, frames[1].Phase)
		assert.Equal(t, "rag_search", frames[1].Tool)
		assert.Equal(t, task.PhaseCompleted, frames[2].Phase)
		require.NotNil(t, frames[2].Answer)
		assert.Equal(t, "iPhone 15 giá 19.990.000", frames[2].Answer.Message)
	})

	t.Run("Should send a failed frame for invalid queries", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(agent.QueryRequest{Text: "a"}))
		var f eventFrame
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, task.PhaseFailed, f.Phase)
		assert.True(t, f.Final)
		assert.Contains(t, f.Error, "invalid request")
	})

	t.Run("Should reject malformed messages", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
		var f eventFrame
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, task.PhaseFailed, f.Phase)
	})
}
