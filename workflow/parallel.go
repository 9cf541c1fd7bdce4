package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/nodeflow/types"
)

// Option configures the fan-out composites.
type Option func(*fanOutConfig)

type fanOutConfig struct {
	maxConcurrency int
}

// WithMaxConcurrency bounds the number of branches (or batch elements) in
// flight at once. Zero or a negative value means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *fanOutConfig) {
		c.maxConcurrency = n
	}
}

func newFanOutConfig(opts []Option) fanOutConfig {
	var cfg fanOutConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// fanOut runs n invocations concurrently and joins all of them. On success
// the results are in index order; otherwise the error of the lowest failing
// index is returned. Every goroutine returns nil to the group so a failure
// never cuts a sibling short.
func fanOut(ctx context.Context, n, limit int, call func(ctx context.Context, i int) (types.Payload, error)) ([]types.Payload, error) {
	results := make([]types.Payload, n)
	errs := make([]error, n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i], errs[i] = call(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ParallelFlow 并行工作流
// 所有节点接收同一输入并发执行，结果按构造顺序组成数组
type ParallelFlow struct {
	name  string
	nodes []Node
	cfg   fanOutConfig
}

// NewParallelFlow 创建并行工作流
func NewParallelFlow(name string, nodes []Node, opts ...Option) *ParallelFlow {
	return &ParallelFlow{
		name:  name,
		nodes: cloneNodes("parallel flow "+name, nodes),
		cfg:   newFanOutConfig(opts),
	}
}

// Parallel is NewParallelFlow with variadic nodes and default options.
func Parallel(name string, nodes ...Node) *ParallelFlow {
	return NewParallelFlow(name, nodes)
}

// Execute 并发执行所有分支
// branch i 的结果位于返回数组的第 i 位；失败时返回索引最小的分支错误
func (p *ParallelFlow) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	results, err := fanOut(ctx, len(p.nodes), p.cfg.maxConcurrency, func(ctx context.Context, i int) (types.Payload, error) {
		return runChild(ctx, p.name, i, guarded{p.nodes[i]}, input)
	})
	if err != nil {
		return types.Payload{}, err
	}
	return types.Array(results...), nil
}

func (p *ParallelFlow) Name() string {
	return p.name
}

// Len 返回分支数量
func (p *ParallelFlow) Len() int {
	return len(p.nodes)
}

// Nodes 返回分支副本
func (p *ParallelFlow) Nodes() []Node {
	return append([]Node(nil), p.nodes...)
}

// MaxConcurrency returns the configured bound, 0 when unbounded.
func (p *ParallelFlow) MaxConcurrency() int {
	return p.cfg.maxConcurrency
}

// guarded recovers panics of the wrapped node as UNKNOWN errors. It keeps
// the inner name so stream events report the real node.
type guarded struct {
	node Node
}

func (g guarded) Name() string { return NodeName(g.node) }

func (g guarded) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	return safeExecute(ctx, g.node, input)
}
