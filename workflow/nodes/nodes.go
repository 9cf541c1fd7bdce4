// Package nodes 提供内置节点与类型化工具，并可注册到 DSL 解析器。
package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
	"github.com/BaSui01/nodeflow/workflow/dsl"
)

// Registrar 节点工厂注册接口，*dsl.Parser 实现了该接口
type Registrar interface {
	RegisterNode(name string, factory dsl.Factory)
}

// Register 注册全部内置节点
func Register(r Registrar) {
	r.RegisterNode("uppercase", func(config map[string]any) (workflow.Node, error) {
		var cfg FieldConfig
		if err := dsl.DecodeConfig(config, &cfg); err != nil {
			return nil, err
		}
		return Uppercase(cfg.Field), nil
	})
	r.RegisterNode("append_suffix", func(config map[string]any) (workflow.Node, error) {
		var cfg SuffixConfig
		if err := dsl.DecodeConfig(config, &cfg); err != nil {
			return nil, err
		}
		return AppendSuffix(cfg.Field, cfg.Suffix), nil
	})
	r.RegisterNode("double", func(config map[string]any) (workflow.Node, error) {
		if err := dsl.DecodeConfig(config, &struct{}{}); err != nil {
			return nil, err
		}
		return Double(), nil
	})
	r.RegisterNode("increment", func(config map[string]any) (workflow.Node, error) {
		cfg := IncrementConfig{By: 1}
		if err := dsl.DecodeConfig(config, &cfg); err != nil {
			return nil, err
		}
		return Increment(cfg.By), nil
	})
	r.RegisterNode("wait", func(config map[string]any) (workflow.Node, error) {
		var cfg WaitConfig
		if err := dsl.DecodeConfig(config, &cfg); err != nil {
			return nil, err
		}
		if cfg.Delay < 0 {
			return nil, fmt.Errorf("delay must not be negative")
		}
		return Wait(cfg.ID, cfg.Delay), nil
	})
	r.RegisterNode("add", func(config map[string]any) (workflow.Node, error) {
		if err := dsl.DecodeConfig(config, &struct{}{}); err != nil {
			return nil, err
		}
		return NewAddTool(), nil
	})
}

// FieldConfig 作用于字符串的节点配置；Field 为空时作用于整个输入
type FieldConfig struct {
	Field string `mapstructure:"field"`
}

// SuffixConfig append_suffix 配置
type SuffixConfig struct {
	Field  string `mapstructure:"field"`
	Suffix string `mapstructure:"suffix"`
}

// IncrementConfig increment 配置
type IncrementConfig struct {
	By float64 `mapstructure:"by"`
}

// WaitConfig wait 配置
type WaitConfig struct {
	ID    int           `mapstructure:"id"`
	Delay time.Duration `mapstructure:"delay"`
}

// Uppercase 将字符串转为大写
func Uppercase(field string) *workflow.FuncNode {
	return stringNode("uppercase", field, strings.ToUpper)
}

// AppendSuffix 在字符串末尾追加后缀
func AppendSuffix(field, suffix string) *workflow.FuncNode {
	return stringNode("append_suffix", field, func(s string) string { return s + suffix })
}

// stringNode 对 input（或 input[field]）的字符串做变换。
// 形状不符为 DECODE_ERROR。
func stringNode(name, field string, fn func(string) string) *workflow.FuncNode {
	return workflow.NewFuncNode(name, func(ctx context.Context, input types.Payload) (types.Payload, error) {
		if field == "" {
			s, ok := input.AsString()
			if !ok {
				return types.Payload{}, types.NewDecodeError(
					fmt.Sprintf("%s: input must be a string, got %s", name, input.Kind()))
			}
			return types.String(fn(s)), nil
		}

		value, ok := input.Get(field)
		if !ok {
			return types.Payload{}, types.NewDecodeError(fmt.Sprintf("%s: missing field %q", name, field))
		}
		s, ok := value.AsString()
		if !ok {
			return types.Payload{}, types.NewDecodeError(
				fmt.Sprintf("%s: field %q must be a string, got %s", name, field, value.Kind()))
		}
		return input.With(field, types.String(fn(s)))
	})
}

// Double 数字翻倍
func Double() *workflow.FuncNode {
	return numberNode("double", func(n float64) float64 { return n * 2 })
}

// Increment 数字加 by（by 可为负）
func Increment(by float64) *workflow.FuncNode {
	return numberNode("increment", func(n float64) float64 { return n + by })
}

func numberNode(name string, fn func(float64) float64) *workflow.FuncNode {
	return workflow.NewFuncNode(name, func(ctx context.Context, input types.Payload) (types.Payload, error) {
		n, ok := input.AsNumber()
		if !ok {
			return types.Payload{}, types.NewDecodeError(
				fmt.Sprintf("%s: input must be a number, got %s", name, input.Kind()))
		}
		return types.Number(fn(n)), nil
	})
}

// Wait 等待 delay 后返回 {"id": id, "status": "done"}；上下文结束时返回 NODE_FAILED
func Wait(id int, delay time.Duration) *workflow.FuncNode {
	return workflow.NewFuncNode(fmt.Sprintf("wait-%d", id), func(ctx context.Context, input types.Payload) (types.Payload, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return types.Payload{}, ctx.Err()
		}
		return types.Object(map[string]types.Payload{
			"id":     types.Int(int64(id)),
			"status": types.String("done"),
		}), nil
	})
}
