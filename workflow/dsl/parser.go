package dsl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/nodeflow/workflow"
)

// Factory 根据节点 config 构建节点
type Factory func(config map[string]any) (workflow.Node, error)

// Option 解析器选项
type Option func(*Parser)

// WithNodeTimeout 为未声明 timeout 的 node 设置默认超时
func WithNodeTimeout(d time.Duration) Option {
	return func(p *Parser) { p.nodeTimeout = d }
}

// WithMaxConcurrency 为未声明 max_concurrency 的 parallel / batch 设置默认并发上限
func WithMaxConcurrency(n int) Option {
	return func(p *Parser) { p.maxConcurrency = n }
}

// WithMiddleware 为每个 node 叶子节点套用中间件（在超时之外）
func WithMiddleware(mws ...workflow.Middleware) Option {
	return func(p *Parser) { p.middleware = append(p.middleware, mws...) }
}

// Parser DSL 解析器
type Parser struct {
	mu        sync.RWMutex
	factories map[string]Factory

	nodeTimeout    time.Duration
	maxConcurrency int
	middleware     []workflow.Middleware
}

// NewParser 创建 DSL 解析器
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		factories: make(map[string]Factory),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RegisterNode("passthrough", func(map[string]any) (workflow.Node, error) {
		return workflow.PassthroughNode{}, nil
	})
	return p
}

// RegisterNode 注册节点工厂，同名覆盖
func (p *Parser) RegisterNode(name string, factory Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[name] = factory
}

// HasNode 判断节点工厂是否已注册
func (p *Parser) HasNode(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.factories[name]
	return ok
}

// NodeNames 返回已注册的节点名称（排序）
func (p *Parser) NodeNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.factories))
	for name := range p.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFile 从文件解析 DSL
func (p *Parser) ParseFile(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read DSL file: %w", err)
	}
	return p.Parse(data)
}

// Parse 从 YAML 字节解析 DSL
func (p *Parser) Parse(data []byte) (*Definition, error) {
	dsl, err := p.Load(data)
	if err != nil {
		return nil, err
	}

	root, err := p.build(&dsl.Root, "root", dsl.Name)
	if err != nil {
		return nil, fmt.Errorf("build flow: %w", err)
	}

	return &Definition{
		Name:        dsl.Name,
		Description: dsl.Description,
		Metadata:    dsl.Metadata,
		Root:        root,
	}, nil
}

// Load 解析并验证 YAML，不构建节点
func (p *Parser) Load(data []byte) (*FlowDSL, error) {
	var dsl FlowDSL
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dsl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse YAML: empty document")
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if errs := NewValidator(p.HasNode).Validate(&dsl); len(errs) > 0 {
		return nil, errs
	}
	return &dsl, nil
}

// build 递归构建节点
func (p *Parser) build(def *NodeDef, path, fallbackName string) (workflow.Node, error) {
	name := def.Name
	if name == "" {
		name = fallbackName
	}

	var node workflow.Node
	switch def.Type {
	case TypeFlow:
		children, err := p.buildChildren(def, path)
		if err != nil {
			return nil, err
		}
		node = workflow.NewFlow(name, children...)

	case TypeParallel:
		children, err := p.buildChildren(def, path)
		if err != nil {
			return nil, err
		}
		node = workflow.NewParallelFlow(name, children, workflow.WithMaxConcurrency(p.concurrency(def)))

	case TypeBatch:
		inner, err := p.build(def.Child, path+".child", name+".child")
		if err != nil {
			return nil, err
		}
		node = workflow.NewBatch(name, inner, workflow.WithMaxConcurrency(p.concurrency(def)))

	case TypeNode:
		p.mu.RLock()
		factory := p.factories[def.Use]
		p.mu.RUnlock()
		if factory == nil {
			return nil, fmt.Errorf("%s: unknown node %q", path, def.Use)
		}
		leaf, err := factory(def.Config)
		if err != nil {
			return nil, fmt.Errorf("%s: build node %q: %w", path, def.Use, err)
		}
		if leaf == nil {
			return nil, fmt.Errorf("%s: factory %q returned nil node", path, def.Use)
		}
		timeout := p.nodeTimeout
		if def.Timeout != "" {
			timeout, _ = time.ParseDuration(def.Timeout)
		}
		mws := append(append([]workflow.Middleware(nil), p.middleware...), workflow.Timeout(timeout))
		return workflow.Wrap(leaf, mws...), nil

	default:
		return nil, fmt.Errorf("%s: invalid type %q", path, def.Type)
	}

	if def.Timeout != "" {
		d, _ := time.ParseDuration(def.Timeout)
		node = workflow.Timeout(d)(node)
	}
	return node, nil
}

func (p *Parser) buildChildren(def *NodeDef, path string) ([]workflow.Node, error) {
	children := make([]workflow.Node, len(def.Children))
	for i := range def.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		child, err := p.build(&def.Children[i], childPath, childPath)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func (p *Parser) concurrency(def *NodeDef) int {
	if def.MaxConcurrency > 0 {
		return def.MaxConcurrency
	}
	return p.maxConcurrency
}

// DecodeConfig 将节点 config 解码到带 mapstructure 标签的结构体
// 未知键报错；字符串可解码为 time.Duration 与逗号分隔的切片
func DecodeConfig(config map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("create config decoder: %w", err)
	}
	if config == nil {
		return nil
	}
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
