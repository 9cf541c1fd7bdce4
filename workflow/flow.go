package workflow

import (
	"context"

	"github.com/BaSui01/nodeflow/types"
)

// Flow 顺序工作流
// 按构造顺序依次执行节点，前一节点的输出作为下一节点的输入
type Flow struct {
	name  string
	nodes []Node
}

// NewFlow 创建顺序工作流
func NewFlow(name string, nodes ...Node) *Flow {
	return &Flow{
		name:  name,
		nodes: cloneNodes("flow "+name, nodes),
	}
}

// Execute runs the nodes in order. The first failure stops the flow and is
// returned exactly as the failing node produced it. A flow without nodes
// returns its input.
func (f *Flow) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	current := input

	for i, node := range f.nodes {
		result, err := runChild(ctx, f.name, i, guarded{node}, current)
		if err != nil {
			return types.Payload{}, err
		}
		current = result
	}

	return current, nil
}

func (f *Flow) Name() string {
	return f.name
}

// Len 返回节点数量
func (f *Flow) Len() int {
	return len(f.nodes)
}

// Nodes 返回节点副本
func (f *Flow) Nodes() []Node {
	return append([]Node(nil), f.nodes...)
}
