package dsl

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError 单条校验错误，Path 指向 YAML 中的位置，如 root.children[1]
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// ValidationErrors 校验错误集合
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// Validator DSL 验证器
type Validator struct {
	known func(name string) bool
}

// NewValidator 创建验证器；known 判断节点工厂是否已注册，nil 表示不检查
func NewValidator(known func(name string) bool) *Validator {
	return &Validator{known: known}
}

// Validate 验证 DSL 定义，返回全部错误
func (v *Validator) Validate(dsl *FlowDSL) ValidationErrors {
	var errs ValidationErrors

	if dsl.Name == "" {
		errs = append(errs, &ValidationError{Path: "name", Message: "name is required"})
	}
	errs = append(errs, v.validateNode(&dsl.Root, "root")...)

	return errs
}

// validateNode 递归验证节点
func (v *Validator) validateNode(node *NodeDef, path string) ValidationErrors {
	var errs ValidationErrors
	fail := func(format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if node.Timeout != "" {
		if d, err := time.ParseDuration(node.Timeout); err != nil {
			fail("invalid timeout %q", node.Timeout)
		} else if d < 0 {
			fail("timeout must not be negative")
		}
	}
	if node.MaxConcurrency < 0 {
		fail("max_concurrency must not be negative")
	}

	switch node.Type {
	case TypeFlow, TypeParallel:
		if node.Type == TypeParallel && len(node.Children) == 0 {
			fail("parallel node requires at least 1 child")
		}
		if node.Child != nil {
			fail("%s node uses children, not child", node.Type)
		}
		if node.Use != "" {
			fail("%s node cannot use a factory", node.Type)
		}
		if node.Type == TypeFlow && node.MaxConcurrency != 0 {
			fail("max_concurrency only applies to parallel and batch nodes")
		}
		for i := range node.Children {
			errs = append(errs, v.validateNode(&node.Children[i], fmt.Sprintf("%s.children[%d]", path, i))...)
		}

	case TypeBatch:
		if node.Child == nil {
			fail("batch node requires exactly one child")
		}
		if len(node.Children) > 0 {
			fail("batch node takes a single child, not children")
		}
		if node.Use != "" {
			fail("batch node cannot use a factory")
		}
		if node.Child != nil {
			errs = append(errs, v.validateNode(node.Child, path+".child")...)
		}

	case TypeNode:
		if node.Use == "" {
			fail("node requires use")
		} else if v.known != nil && !v.known(node.Use) {
			fail("unknown node %q", node.Use)
		}
		if len(node.Children) > 0 || node.Child != nil {
			fail("node cannot have children")
		}
		if node.MaxConcurrency != 0 {
			fail("max_concurrency only applies to parallel and batch nodes")
		}

	case "":
		fail("type is required")

	default:
		fail("invalid type %q", node.Type)
	}

	return errs
}
