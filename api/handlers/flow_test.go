package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/nodeflow/api"
	"github.com/BaSui01/nodeflow/testutil"
	"github.com/BaSui01/nodeflow/testutil/fixtures"
	"github.com/BaSui01/nodeflow/testutil/mocks"
	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
	"github.com/BaSui01/nodeflow/workflow/dsl"
	"github.com/BaSui01/nodeflow/workflow/nodes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

type fakeFlowRecorder struct {
	mu       sync.Mutex
	statuses []string
	active   int
	peak     int
}

func (r *fakeFlowRecorder) RecordFlowExecution(flow, status string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, flow+":"+status)
}

func (r *fakeFlowRecorder) FlowStarted(flow string) func() {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}
}

func parseDefinition(t *testing.T, yaml string) *dsl.Definition {
	t.Helper()
	parser := dsl.NewParser()
	nodes.Register(parser)
	def, err := parser.Parse([]byte(yaml))
	require.NoError(t, err)
	return def
}

func nodeDefinition(name string, node workflow.Node) *dsl.Definition {
	return &dsl.Definition{Name: name, Root: node}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/flows/execute", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp
}

// =============================================================================
// 🧪 HandleExecute
// =============================================================================

func TestFlowHandler_HandleExecute_AddTool(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.NewNop())

	w := postJSON(t, h.HandleExecute, `{"a":10,"b":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":15}`, w.Body.String())
	_, err := uuid.Parse(w.Header().Get("X-Run-ID"))
	assert.NoError(t, err, "run id must be a UUID")
}

func TestFlowHandler_HandleExecute_PayloadVerbatim(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.TextPipelineYAML), zap.NewNop())

	w := postJSON(t, h.HandleExecute, `{"text":"hello","extra":[1,null]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"extra":[1,null],"text":"HELLO!"}`, w.Body.String())
}

func TestFlowHandler_HandleExecute_Errors(t *testing.T) {
	tests := []struct {
		name       string
		def        *dsl.Definition
		body       string
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "invalid json",
			def:        parseDefinition(t, fixtures.AddToolYAML),
			body:       `{"a":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrDecode,
		},
		{
			name:       "empty body",
			def:        parseDefinition(t, fixtures.AddToolYAML),
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrDecode,
		},
		{
			name:       "wrong input shape",
			def:        parseDefinition(t, fixtures.AddToolYAML),
			body:       `{"a":"ten","b":5}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrDecode,
		},
		{
			name:       "missing tool field",
			def:        parseDefinition(t, fixtures.AddToolYAML),
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrDecode,
		},
		{
			name:       "node rejects input",
			def:        parseDefinition(t, fixtures.AddToolYAML),
			body:       `{"a":2147483647,"b":1}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   types.ErrNodeFailed,
		},
		{
			name:       "batch over non-array",
			def:        parseDefinition(t, fixtures.BatchDoubleYAML),
			body:       `{"not":"an array"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrDecode,
		},
		{
			name:       "panic becomes unknown",
			def:        nodeDefinition("panics", mocks.NewPanicNode("boom", "kaboom")),
			body:       `{}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   types.ErrUnknown,
		},
		{
			name:       "foreign error becomes unknown",
			def:        nodeDefinition("foreign", mocks.NewFailingNode("raw", errors.New("raw failure"))),
			body:       `{}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   types.ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFlowHandler(tt.def, zap.NewNop())
			w := postJSON(t, h.HandleExecute, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeEnvelope(t, w)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestFlowHandler_HandleExecute_RequestIDInEnvelope(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"a":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	r = r.WithContext(types.WithTraceID(r.Context(), "req-abc"))
	w := httptest.NewRecorder()
	h.HandleExecute(w, r)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "req-abc", resp.RequestID)
}

func TestFlowHandler_HandleExecute_ContentType(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"a":1,"b":2}`))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.HandleExecute(w, r)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestFlowHandler_HandleExecute_BodyLimit(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.NewNop(), WithMaxBodyBytes(16))

	w := postJSON(t, h.HandleExecute, `{"a":1,"b":2,"padding":"`+strings.Repeat("x", 64)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, string(types.ErrDecode), resp.Error.Code)
}

func TestFlowHandler_HandleExecute_ExecutionTimeout(t *testing.T) {
	def := nodeDefinition("slow", mocks.NewDelayNode("sleepy", time.Second))
	h := NewFlowHandler(def, zap.NewNop(), WithExecutionTimeout(20*time.Millisecond))

	start := time.Now()
	w := postJSON(t, h.HandleExecute, `{}`)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, string(types.ErrNodeFailed), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "timed out")
}

func TestFlowHandler_HandleExecute_RunIDReachesNodes(t *testing.T) {
	var seen string
	node := workflow.NewFuncNode("capture", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		seen, _ = types.RunID(ctx)
		return input, nil
	})
	h := NewFlowHandler(nodeDefinition("capture", node), zap.NewNop())

	w := postJSON(t, h.HandleExecute, `1`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, w.Header().Get("X-Run-ID"), seen)
}

func TestFlowHandler_RecordsMetricsAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	recorder := &fakeFlowRecorder{}
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.New(core), WithFlowRecorder(recorder))

	postJSON(t, h.HandleExecute, `{"a":1,"b":2}`)
	postJSON(t, h.HandleExecute, `{"a":2147483647,"b":2147483647}`)

	assert.Equal(t, []string{"add:success", "add:node_failed"}, recorder.statuses)
	assert.Equal(t, 1, recorder.peak)
	assert.Equal(t, 0, recorder.active)

	assert.Equal(t, 1, logs.FilterMessage("flow executed").Len())
	failed := logs.FilterMessage("flow failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "add", failed[0].ContextMap()["flow"])
	assert.Equal(t, "node_failed", failed[0].ContextMap()["status"])
}

// =============================================================================
// 🧪 HandleStream
// =============================================================================

type sseEvent struct {
	event string
	data  string
}

func readSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events  []sseEvent
		current sseEvent
	)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.data != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestFlowHandler_HandleStream(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.TextPipelineYAML), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/flows/execute/stream", strings.NewReader(`{"text":"hi"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleStream(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readSSE(t, w.Body.String())
	require.Len(t, events, 6)

	wantTypes := []string{"node_start", "node_complete", "node_start", "node_complete", "result"}
	for i, want := range wantTypes {
		assert.Equal(t, want, events[i].event, "event %d", i)
	}
	assert.Equal(t, "[DONE]", events[5].data)

	var first api.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(events[1].data), &first))
	assert.Equal(t, "text-pipeline", first.Flow)
	assert.Equal(t, 0, first.Index)
	require.NotNil(t, first.Output)
	testutil.AssertPayloadEqual(t, fixtures.TextPayload("HI"), *first.Output)

	var final api.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &final))
	require.NotNil(t, final.Output)
	testutil.AssertPayloadEqual(t, fixtures.TextPayload("HI!"), *final.Output)
	assert.Equal(t, w.Header().Get("X-Run-ID"), final.RunID)
}

func TestFlowHandler_HandleStream_Failure(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.BatchDoubleYAML), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/flows/execute/stream", strings.NewReader(`[1,"two"]`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleStream(w, r)

	events := readSSE(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 2)

	last := events[len(events)-2]
	assert.Equal(t, "error", last.event)
	var ev api.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(last.data), &ev))
	require.NotNil(t, ev.Error)
	assert.Equal(t, string(types.ErrDecode), ev.Error.Code)

	var nodeErrors int
	for _, e := range events {
		if e.event == "node_error" {
			nodeErrors++
		}
	}
	assert.Equal(t, 1, nodeErrors)
}

func TestFlowHandler_HandleStream_DecodeErrorUsesEnvelope(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/flows/execute/stream", strings.NewReader(`nope`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleStream(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeEnvelope(t, w)
}

// =============================================================================
// 🧪 HandleList / 构造
// =============================================================================

func TestFlowHandler_HandleList(t *testing.T) {
	def := parseDefinition(t, fixtures.TextPipelineYAML)
	h := NewFlowHandler(def, zap.NewNop(), WithNodeTypes([]string{"append_suffix", "uppercase"}))

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/flows", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                 `json:"success"`
		Data    api.FlowListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Flows, 1)
	assert.Equal(t, "text-pipeline", resp.Data.Flows[0].Name)
	assert.Equal(t, "shout then exclaim", resp.Data.Flows[0].Description)
	assert.Equal(t, []string{"append_suffix", "uppercase"}, resp.Data.Nodes)
	assert.Equal(t, "text-pipeline", h.Name())
}

func TestNewFlowHandler_RequiresRoot(t *testing.T) {
	assert.Panics(t, func() { NewFlowHandler(nil, nil) })
	assert.Panics(t, func() { NewFlowHandler(&dsl.Definition{Name: "empty"}, nil) })
}

func TestFlowReadyCheck(t *testing.T) {
	h := NewFlowHandler(parseDefinition(t, fixtures.AddToolYAML), nil)
	assert.NoError(t, FlowReadyCheck(h).Check(testutil.TestContext(t)))
	assert.Error(t, FlowReadyCheck(nil).Check(testutil.TestContext(t)))
}
