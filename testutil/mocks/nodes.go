// 工作流节点的测试模拟实现。
//
// 支持固定输出、调用记录、延迟、错误与 panic 注入。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/nodeflow/types"
)

// --- CallLog ---

// CallLog 记录多个节点的调用顺序，可在并发分支间共享
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// NewCallLog 创建调用日志
func NewCallLog() *CallLog {
	return &CallLog{}
}

// Record 追加一次调用
func (l *CallLog) Record(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

// Calls 返回调用顺序副本
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// --- StaticNode ---

// StaticNode 忽略输入，返回固定输出
type StaticNode struct {
	name  string
	value types.Payload
	delay time.Duration
	log   *CallLog
}

// NewStaticNode 创建固定输出节点
func NewStaticNode(name string, value types.Payload) *StaticNode {
	return &StaticNode{name: name, value: value}
}

// WithDelay 设置返回前的延迟
func (n *StaticNode) WithDelay(d time.Duration) *StaticNode {
	n.delay = d
	return n
}

// WithCallLog 完成时记录到共享日志
func (n *StaticNode) WithCallLog(log *CallLog) *StaticNode {
	n.log = log
	return n
}

func (n *StaticNode) Name() string { return n.name }

func (n *StaticNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	sleep(n.delay)
	n.log.Record(n.name)
	return n.value, nil
}

// --- FailingNode ---

// FailingNode 总是返回指定错误
type FailingNode struct {
	name  string
	err   error
	delay time.Duration
	log   *CallLog
}

// NewFailingNode 创建失败节点
func NewFailingNode(name string, err error) *FailingNode {
	return &FailingNode{name: name, err: err}
}

// WithDelay 设置返回错误前的延迟
func (n *FailingNode) WithDelay(d time.Duration) *FailingNode {
	n.delay = d
	return n
}

// WithCallLog 完成时记录到共享日志
func (n *FailingNode) WithCallLog(log *CallLog) *FailingNode {
	n.log = log
	return n
}

func (n *FailingNode) Name() string { return n.name }

func (n *FailingNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	sleep(n.delay)
	n.log.Record(n.name)
	return types.Payload{}, n.err
}

// --- RecordingNode ---

// ExecuteFunc 节点执行函数
type ExecuteFunc func(ctx context.Context, input types.Payload) (types.Payload, error)

// RecordingNode 记录每次调用的输入，默认原样返回输入
type RecordingNode struct {
	mu     sync.Mutex
	name   string
	fn     ExecuteFunc
	inputs []types.Payload
	log    *CallLog
}

// NewRecordingNode 创建记录节点
func NewRecordingNode(name string) *RecordingNode {
	return &RecordingNode{name: name}
}

// WithFunc 设置执行逻辑
func (n *RecordingNode) WithFunc(fn ExecuteFunc) *RecordingNode {
	n.fn = fn
	return n
}

// WithCallLog 调用时记录到共享日志
func (n *RecordingNode) WithCallLog(log *CallLog) *RecordingNode {
	n.log = log
	return n
}

func (n *RecordingNode) Name() string { return n.name }

func (n *RecordingNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	n.mu.Lock()
	n.inputs = append(n.inputs, input)
	n.mu.Unlock()
	n.log.Record(n.name)

	if n.fn == nil {
		return input, nil
	}
	return n.fn(ctx, input)
}

// CallCount 返回调用次数
func (n *RecordingNode) CallCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inputs)
}

// Inputs 返回所有输入的副本
func (n *RecordingNode) Inputs() []types.Payload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Payload(nil), n.inputs...)
}

// --- DelayNode ---

// DelayNode 等待指定时间后原样返回输入；上下文结束时提前返回其错误
type DelayNode struct {
	name  string
	delay time.Duration
}

// NewDelayNode 创建延迟节点
func NewDelayNode(name string, delay time.Duration) *DelayNode {
	return &DelayNode{name: name, delay: delay}
}

func (n *DelayNode) Name() string { return n.name }

func (n *DelayNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	timer := time.NewTimer(n.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return input, nil
	case <-ctx.Done():
		return types.Payload{}, ctx.Err()
	}
}

// --- PanicNode ---

// PanicNode 执行时 panic
type PanicNode struct {
	name  string
	value any
}

// NewPanicNode 创建 panic 节点
func NewPanicNode(name string, value any) *PanicNode {
	return &PanicNode{name: name, value: value}
}

func (n *PanicNode) Name() string { return n.name }

func (n *PanicNode) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	panic(n.value)
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
