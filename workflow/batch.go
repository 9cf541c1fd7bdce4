package workflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/nodeflow/types"
)

// Batch applies one inner node to every element of an array input
// concurrently and collects the results in element order.
type Batch struct {
	name  string
	inner Node
	cfg   fanOutConfig
}

// NewBatch 创建批处理节点
func NewBatch(name string, inner Node, opts ...Option) *Batch {
	if inner == nil {
		panic(fmt.Sprintf("workflow: batch %s has nil inner node", name))
	}
	return &Batch{
		name:  name,
		inner: inner,
		cfg:   newFanOutConfig(opts),
	}
}

// Execute fails with DECODE_ERROR when input is not an array. An empty
// array yields an empty array without calling the inner node. If any
// element fails, the error of the lowest failing index is returned and no
// partial result is produced.
func (b *Batch) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	items, ok := input.AsArray()
	if !ok {
		return types.Payload{}, types.NewDecodeError(
			fmt.Sprintf("batch %s: input must be an array, got %s", b.name, input.Kind()))
	}
	if len(items) == 0 {
		return types.Array(), nil
	}

	inner := guarded{b.inner}
	results, err := fanOut(ctx, len(items), b.cfg.maxConcurrency, func(ctx context.Context, i int) (types.Payload, error) {
		return runChild(ctx, b.name, i, inner, items[i])
	})
	if err != nil {
		return types.Payload{}, err
	}
	return types.Array(results...), nil
}

func (b *Batch) Name() string {
	return b.name
}

// Inner 返回内部节点
func (b *Batch) Inner() Node {
	return b.inner
}

// MaxConcurrency returns the configured bound, 0 when unbounded.
func (b *Batch) MaxConcurrency() int {
	return b.cfg.maxConcurrency
}
