package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/nodeflow/types"
)

// Node is the atomic unit of work: given a payload it produces a payload or
// fails with an error. Implementations must be safe for concurrent Execute
// calls; composites hand the same input to several nodes at once.
type Node interface {
	Execute(ctx context.Context, input types.Payload) (types.Payload, error)
}

// Named 可选接口，提供节点显示名称
type Named interface {
	Name() string
}

// NodeName 返回节点名称；未实现 Named 时返回类型名
func NodeName(n Node) string {
	if named, ok := n.(Named); ok && named.Name() != "" {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}

// NodeFunc 节点函数类型
type NodeFunc func(ctx context.Context, input types.Payload) (types.Payload, error)

// FuncNode 函数节点实现
type FuncNode struct {
	name string
	fn   NodeFunc
}

// NewFuncNode creates a node from a function. Errors returned by fn that are
// not *types.Error are reported as NODE_FAILED with the original error kept
// as the cause.
func NewFuncNode(name string, fn NodeFunc) *FuncNode {
	return &FuncNode{
		name: name,
		fn:   fn,
	}
}

func (n *FuncNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	out, err := n.fn(ctx, input)
	if err != nil {
		return types.Payload{}, nodeError(n.name, err)
	}
	return out, nil
}

func (n *FuncNode) Name() string {
	return n.name
}

// PassthroughNode passes input directly to output.
type PassthroughNode struct{}

func (PassthroughNode) Name() string { return "passthrough" }

func (PassthroughNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	return input, nil
}

// nodeError keeps taxonomy errors as they are and turns anything else into
// NODE_FAILED.
func nodeError(name string, err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.NewNodeFailedError(fmt.Sprintf("node %s: %v", name, err)).WithCause(err)
}

// safeExecute runs node and converts a panic into an UNKNOWN error.
func safeExecute(ctx context.Context, node Node, input types.Payload) (out types.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = types.Payload{}
			err = types.NewUnknownError(fmt.Sprintf("node %s panicked: %v", NodeName(node), r))
		}
	}()
	return node.Execute(ctx, input)
}

// cloneNodes copies the caller's slice so composites own their children.
func cloneNodes(kind string, nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if n == nil {
			panic(fmt.Sprintf("workflow: %s has nil node at index %d", kind, i))
		}
		out[i] = n
	}
	return out
}
