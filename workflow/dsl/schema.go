package dsl

import "github.com/BaSui01/nodeflow/workflow"

// 节点类型
const (
	TypeFlow     = "flow"
	TypeParallel = "parallel"
	TypeBatch    = "batch"
	TypeNode     = "node"
)

// FlowDSL 流程 DSL 顶层结构
type FlowDSL struct {
	// Name 流程名称
	Name string `yaml:"name" json:"name"`
	// Description 流程描述
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Root 根节点定义
	Root NodeDef `yaml:"root" json:"root"`
	// Metadata 元数据
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// NodeDef 节点定义
type NodeDef struct {
	Type     string         `yaml:"type" json:"type"` // flow, parallel, batch, node
	Name     string         `yaml:"name,omitempty" json:"name,omitempty"`
	Use      string         `yaml:"use,omitempty" json:"use,omitempty"` // 引用注册的节点工厂
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Children []NodeDef      `yaml:"children,omitempty" json:"children,omitempty"` // flow, parallel
	Child    *NodeDef       `yaml:"child,omitempty" json:"child,omitempty"`       // batch
	// Timeout 节点超时，例如 "2s"
	Timeout        string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxConcurrency int    `yaml:"max_concurrency,omitempty" json:"max_concurrency,omitempty"`
}

// Definition 解析并构建完成的流程
type Definition struct {
	Name        string
	Description string
	Metadata    map[string]any
	// Root 可直接执行的根节点
	Root workflow.Node
}
