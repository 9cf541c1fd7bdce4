package nodes

import (
	"context"
	"fmt"
	"math"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// AddRequest add 工具输入
type AddRequest struct {
	A int32 `json:"a"`
	B int32 `json:"b"`
}

// AddResponse add 工具输出
type AddResponse struct {
	Result int32 `json:"result"`
}

// AddTool 两个 32 位整数相加；溢出为 NODE_FAILED
type AddTool struct{}

func (AddTool) Run(ctx context.Context, in AddRequest) (AddResponse, error) {
	sum := int64(in.A) + int64(in.B)
	if sum > math.MaxInt32 || sum < math.MinInt32 {
		return AddResponse{}, types.NewNodeFailedError(fmt.Sprintf("add: %d + %d overflows int32", in.A, in.B))
	}
	return AddResponse{Result: int32(sum)}, nil
}

// NewAddTool 返回包装 AddTool 的节点
func NewAddTool() *workflow.ToolNode[AddRequest, AddResponse] {
	return workflow.NewToolNode[AddRequest, AddResponse]("add", AddTool{})
}

// NewAddFlow 返回只含 add 工具的默认流程
func NewAddFlow() *workflow.Flow {
	return workflow.NewFlow("add", NewAddTool())
}
