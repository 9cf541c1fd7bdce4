package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/nodeflow/api"
	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
	"github.com/BaSui01/nodeflow/workflow/dsl"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 🔗 流程执行 Handler
// =============================================================================

// FlowRecorder 流程级指标记录，由 metrics.Collector 实现
type FlowRecorder interface {
	RecordFlowExecution(flow, status string, duration time.Duration)
	FlowStarted(flow string) func()
}

// FlowHandler 流程执行处理器
type FlowHandler struct {
	name        string
	description string
	metadata    map[string]any
	root        workflow.Node

	nodeTypes    []string
	maxBodyBytes int64
	timeout      time.Duration
	recorder     FlowRecorder
	logger       *zap.Logger
}

// FlowHandlerOption 配置 FlowHandler
type FlowHandlerOption func(*FlowHandler)

// WithMaxBodyBytes 设置请求体大小上限
func WithMaxBodyBytes(n int64) FlowHandlerOption {
	return func(h *FlowHandler) { h.maxBodyBytes = n }
}

// WithExecutionTimeout 设置单次执行超时，<= 0 表示不限
func WithExecutionTimeout(d time.Duration) FlowHandlerOption {
	return func(h *FlowHandler) { h.timeout = d }
}

// WithFlowRecorder 设置流程指标记录器
func WithFlowRecorder(r FlowRecorder) FlowHandlerOption {
	return func(h *FlowHandler) { h.recorder = r }
}

// WithNodeTypes 设置在列表接口中展示的节点类型
func WithNodeTypes(names []string) FlowHandlerOption {
	return func(h *FlowHandler) { h.nodeTypes = append([]string(nil), names...) }
}

// NewFlowHandler 创建流程处理器。def 及其 Root 不能为空
func NewFlowHandler(def *dsl.Definition, logger *zap.Logger, opts ...FlowHandlerOption) *FlowHandler {
	if def == nil || def.Root == nil {
		panic("handlers: flow definition with a root node is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &FlowHandler{
		name:         def.Name,
		description:  def.Description,
		metadata:     def.Metadata,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       logger.With(zap.String("handler", "flow"), zap.String("flow", def.Name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	// 超时按节点超时处理，报告为 NODE_FAILED
	h.root = workflow.Wrap(def.Root, workflow.Recover(), workflow.Timeout(h.timeout))
	return h
}

// Name 返回流程名称
func (h *FlowHandler) Name() string {
	return h.name
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleExecute 执行流程，成功时原样返回结果 Payload
// @Summary 执行流程
// @Description 以请求体 JSON 作为输入执行已加载的流程
// @Tags 流程
// @Accept json
// @Produce json
// @Param request body object true "流程输入"
// @Success 200 {object} object "流程输出"
// @Failure 400 {object} Response "输入无法解析"
// @Failure 422 {object} Response "节点执行失败"
// @Failure 500 {object} Response "内部错误"
// @Security ApiKeyAuth
// @Router /api/v1/flows/execute [post]
func (h *FlowHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	input, derr := DecodePayloadBody(w, r, h.maxBodyBytes)
	if derr != nil {
		WriteRequestError(w, r, derr, h.logger)
		return
	}

	runID := uuid.NewString()
	w.Header().Set("X-Run-ID", runID)

	out, err := h.execute(r.Context(), runID, input)
	if err != nil {
		WriteRequestError(w, r, types.AsError(err), h.logger)
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		WriteRequestError(w, r, types.NewUnknownError("flow result is not encodable").WithCause(err), h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleStream 执行流程并以 SSE 推送子节点事件
// @Summary 流式执行流程
// @Description 执行流程，逐个推送 node_start/node_complete/node_error 事件，最后推送 result 或 error
// @Tags 流程
// @Accept json
// @Produce text/event-stream
// @Param request body object true "流程输入"
// @Success 200 {string} string "SSE 流"
// @Failure 400 {object} Response "输入无法解析"
// @Security ApiKeyAuth
// @Router /api/v1/flows/execute/stream [post]
func (h *FlowHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	input, derr := DecodePayloadBody(w, r, h.maxBodyBytes)
	if derr != nil {
		WriteRequestError(w, r, derr, h.logger)
		return
	}

	runID := uuid.NewString()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	var mu sync.Mutex
	send := func(ev api.StreamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			ev = api.StreamEvent{
				Type:  api.StreamEventError,
				RunID: runID,
				Error: api.NewErrorDetail(types.NewUnknownError("event is not encodable")),
			}
			data, _ = json.Marshal(ev)
		}
		// parallel / batch 会并发推送
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		if err := rc.Flush(); err != nil {
			h.logger.Debug("flush failed", zap.Error(err))
		}
	}

	ctx := workflow.WithStreamEmitter(r.Context(), func(ev workflow.StreamEvent) {
		send(api.FromWorkflowEvent(runID, ev))
	})

	start := time.Now()
	out, err := h.execute(ctx, runID, input)
	final := api.StreamEvent{
		Type:       api.StreamEventResult,
		RunID:      runID,
		DurationMs: float64(time.Since(start)) / float64(time.Millisecond),
	}
	if err != nil {
		final.Type = api.StreamEventError
		final.Error = api.NewErrorDetail(err)
	} else {
		final.Output = &out
	}
	send(final)

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}

// HandleList 返回已加载流程的信息
// @Summary 流程列表
// @Tags 流程
// @Produce json
// @Success 200 {object} api.FlowListResponse "流程信息"
// @Security ApiKeyAuth
// @Router /api/v1/flows [get]
func (h *FlowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, api.FlowListResponse{
		Flows: []api.FlowInfo{{
			Name:        h.name,
			Description: h.description,
			Metadata:    h.metadata,
		}},
		Nodes: h.nodeTypes,
	})
}

// =============================================================================
// 🔧 执行
// =============================================================================

// execute 运行根节点，注入 run ID 并记录指标
func (h *FlowHandler) execute(ctx context.Context, runID string, input types.Payload) (types.Payload, error) {
	ctx = types.WithRunID(ctx, runID)

	if h.recorder != nil {
		done := h.recorder.FlowStarted(h.name)
		defer done()
	}

	fields := []zap.Field{zap.String("run_id", runID)}
	if requestID, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("request_id", requestID))
	}
	h.logger.Debug("flow request", append(fields, zap.Stringer("input", input))...)

	start := time.Now()
	out, err := h.root.Execute(ctx, input)
	duration := time.Since(start)
	status := workflow.ExecutionStatus(err)

	if h.recorder != nil {
		h.recorder.RecordFlowExecution(h.name, status, duration)
	}

	fields = append(fields, zap.String("status", status), zap.Duration("duration", duration))
	if err != nil {
		h.logger.Warn("flow failed", append(fields, zap.Error(err))...)
		return types.Payload{}, err
	}
	h.logger.Info("flow executed", fields...)
	h.logger.Debug("flow result", zap.String("run_id", runID), zap.Stringer("output", out))
	return out, nil
}
