// Package config 提供 NodeFlow 的配置管理功能。
//
// 配置优先级为 默认值 → YAML 文件 → 环境变量（前缀 NODEFLOW_），
// 环境变量名由结构体 env 标签逐级拼接，例如 NODEFLOW_ENGINE_NODE_TIMEOUT。
package config
