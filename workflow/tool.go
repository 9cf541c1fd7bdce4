package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/nodeflow/types"
)

// Tool is business logic written against a typed input and output.
type Tool[I, O any] interface {
	Run(ctx context.Context, input I) (O, error)
}

// ToolFunc adapts a plain function to Tool.
type ToolFunc[I, O any] func(ctx context.Context, input I) (O, error)

func (f ToolFunc[I, O]) Run(ctx context.Context, input I) (O, error) {
	return f(ctx, input)
}

// ToolNode bridges a Tool into the Node capability: the payload is decoded
// into I, the tool runs, and its O is encoded back into a payload.
//
// Failures stay distinguishable by code:
//   - DECODE_ERROR  payload does not fit I (wrong shape, bad field, Validate failed)
//   - NODE_FAILED   the tool returned an error outside the taxonomy
//   - UNKNOWN       O could not be encoded
//
// A *types.Error returned by the tool is passed through unchanged.
type ToolNode[I, O any] struct {
	name string
	tool Tool[I, O]
}

// NewToolNode 创建类型化工具节点
func NewToolNode[I, O any](name string, tool Tool[I, O]) *ToolNode[I, O] {
	if tool == nil {
		panic(fmt.Sprintf("workflow: tool node %s has nil tool", name))
	}
	return &ToolNode[I, O]{name: name, tool: tool}
}

// NewTool is NewToolNode for a plain function.
func NewTool[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) *ToolNode[I, O] {
	return NewToolNode[I, O](name, ToolFunc[I, O](fn))
}

func (n *ToolNode[I, O]) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	in, err := types.Decode[I](input)
	if err != nil {
		return types.Payload{}, n.decodeError(err)
	}

	out, err := n.tool.Run(ctx, in)
	if err != nil {
		return types.Payload{}, nodeError(n.name, err)
	}

	result, err := types.Encode(out)
	if err != nil {
		return types.Payload{}, types.NewUnknownError(
			fmt.Sprintf("tool %s: output is not encodable", n.name)).WithCause(err)
	}
	return result, nil
}

func (n *ToolNode[I, O]) Name() string {
	return n.name
}

// decodeError prefixes the tool name while keeping code and cause.
func (n *ToolNode[I, O]) decodeError(err error) error {
	var typed *types.Error
	if !errors.As(err, &typed) {
		return types.NewDecodeError(fmt.Sprintf("tool %s: %v", n.name, err)).WithCause(err)
	}
	return types.NewDecodeError(fmt.Sprintf("tool %s: %s", n.name, typed.Message)).WithCause(typed.Cause)
}
