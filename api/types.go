package api

import (
	"time"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// =============================================================================
// 流程类型
// =============================================================================

// FlowInfo 描述一个已加载的流程定义。
// @Description 流程信息
type FlowInfo struct {
	// 流程名称
	Name string `json:"name" example:"text-pipeline"`
	// 流程描述
	Description string `json:"description,omitempty" example:"uppercase then append a suffix"`
	// 自定义元数据
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FlowListResponse 流程列表响应。
// @Description 流程列表
type FlowListResponse struct {
	// 流程列表
	Flows []FlowInfo `json:"flows"`
	// 可在定义中通过 use 引用的节点类型
	Nodes []string `json:"nodes,omitempty"`
}

// =============================================================================
// 流式事件
// =============================================================================

// 结束事件类型，与 workflow.StreamEventType 共用 SSE event 字段
const (
	StreamEventResult = "result"
	StreamEventError  = "error"
)

// StreamEvent 流式执行中的单个事件（SSE data 字段）。
// @Description 流式执行事件
type StreamEvent struct {
	// 事件类型（node_start、node_complete、node_error、result、error）
	Type string `json:"type" example:"node_complete"`
	// 执行 ID
	RunID string `json:"run_id,omitempty"`
	// 所属组合节点名称
	Flow string `json:"flow,omitempty" example:"text-pipeline"`
	// 子节点名称
	Node string `json:"node,omitempty" example:"uppercase"`
	// 子节点下标或 batch 元素下标
	Index int `json:"index"`
	// 子节点输出或最终结果
	Output *types.Payload `json:"output,omitempty"`
	// 耗时（毫秒）
	DurationMs float64 `json:"duration_ms,omitempty"`
	// 失败时的错误
	Error *ErrorDetail `json:"error,omitempty"`
}

// FromWorkflowEvent 将 workflow 事件转换为 API 事件
func FromWorkflowEvent(runID string, ev workflow.StreamEvent) StreamEvent {
	out := StreamEvent{
		Type:       string(ev.Type),
		RunID:      runID,
		Flow:       ev.Flow,
		Node:       ev.Node,
		Index:      ev.Index,
		DurationMs: float64(ev.Duration) / float64(time.Millisecond),
	}
	switch {
	case ev.Error != nil:
		out.Error = NewErrorDetail(ev.Error)
	case ev.Type == workflow.EventNodeComplete:
		out.Output = ev.Output
	}
	return out
}

// =============================================================================
// 错误类型
// =============================================================================

// ErrorDetail 表示错误详细信息。
// @Description 错误详细结构
type ErrorDetail struct {
	// 错误代码
	Code string `json:"code" example:"NODE_FAILED"`
	// 人类可读的错误消息
	Message string `json:"message" example:"node add: result overflows int32"`
}

// NewErrorDetail 从任意错误构造 ErrorDetail，非 types.Error 归为 UNKNOWN
func NewErrorDetail(err error) *ErrorDetail {
	typed := types.AsError(err)
	if typed == nil {
		return nil
	}
	return &ErrorDetail{Code: string(typed.Code), Message: typed.Message}
}
