// Package dsl 提供 YAML 声明式流程定义，
// 将 flow / parallel / batch / node 组成的树解析为可执行的 workflow.Node。
package dsl
