package workflow

import (
	"context"
	"time"

	"github.com/BaSui01/nodeflow/types"
)

// =============================================================================
// Workflow Streaming
// =============================================================================

// StreamEventType defines the type of workflow stream event.
type StreamEventType string

const (
	// EventNodeStart is emitted before a child node begins execution.
	EventNodeStart StreamEventType = "node_start"
	// EventNodeComplete is emitted after a child node finishes successfully.
	EventNodeComplete StreamEventType = "node_complete"
	// EventNodeError is emitted when a child node fails.
	EventNodeError StreamEventType = "node_error"
)

// StreamEvent carries information about one child execution inside a
// composite. Index is the child's position (Flow, ParallelFlow) or the
// element index (Batch).
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Flow     string          `json:"flow,omitempty"`
	Node     string          `json:"node,omitempty"`
	Index    int             `json:"index"`
	Output   *types.Payload  `json:"output,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
	Error    error           `json:"-"`
}

// StreamEmitter receives stream events. ParallelFlow and Batch call it from
// several goroutines at once, so it must be safe for concurrent use.
type StreamEmitter func(StreamEvent)

type streamEmitterKey struct{}

// WithStreamEmitter stores a StreamEmitter in the context.
func WithStreamEmitter(ctx context.Context, emitter StreamEmitter) context.Context {
	if emitter == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, streamEmitterKey{}, emitter)
}

func streamEmitterFromContext(ctx context.Context) (StreamEmitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(streamEmitterKey{}).(StreamEmitter)
	return emit, ok && emit != nil
}

// runChild executes one child of a composite and reports it to the emitter
// found in ctx, if any.
func runChild(ctx context.Context, flow string, index int, node Node, input types.Payload) (types.Payload, error) {
	emit, ok := streamEmitterFromContext(ctx)
	if !ok {
		return node.Execute(ctx, input)
	}

	name := NodeName(node)
	emit(StreamEvent{Type: EventNodeStart, Flow: flow, Node: name, Index: index})
	start := time.Now()
	out, err := node.Execute(ctx, input)
	ev := StreamEvent{Flow: flow, Node: name, Index: index, Duration: time.Since(start)}
	if err != nil {
		ev.Type = EventNodeError
		ev.Error = err
	} else {
		ev.Type = EventNodeComplete
		ev.Output = &out
	}
	emit(ev)
	return out, err
}
