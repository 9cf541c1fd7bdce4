// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 NodeFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、dsl、api 等上层
模块提供统一的数据与错误契约。

# 核心类型

  - Payload           — 节点间流转的动态类型值（null/bool/number/string/array/object），不可变
  - Kind              — Payload 的变体标签
  - Error / ErrorCode — 封闭的错误体系：NODE_FAILED、DECODE_ERROR、UNKNOWN
  - Validator         — Decode 后可选的结构校验接口

# 主要能力

  - JSON 编解码：MarshalJSON 按键排序输出，ParseJSON 拒绝尾随数据
  - Go 值互转：FromAny / ToAny
  - 类型化编解码：Decode[T] 失败为 DECODE_ERROR，Encode 失败为 UNKNOWN
  - Context 传播：WithRunID / WithTraceID / WithTenantID / WithUserID / WithRoles
*/
package types
