// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 NodeFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现流程执行、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - FlowHandler      — 执行已加载的流程，支持同步与 SSE 流式响应
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口，CheckFunc 为函数式实现

# 主要能力

  - 成功时原样返回流程输出 Payload，失败时返回统一错误信封
  - ErrorCode → HTTP 状态码：DECODE_ERROR 400、NODE_FAILED 422、UNKNOWN 500
  - 请求体大小限制（http.MaxBytesReader），超限返回 413
  - 每次执行生成 UUID run ID，写入 context 与 X-Run-ID 响应头
  - SSE 流式输出：FlowHandler.HandleStream 推送子节点事件
*/
package handlers
