// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 NodeFlow 服务端与命令行入口。

# 概述

cmd/nodeflow 加载一个流程定义（YAML 或内置 add 流程），通过 HTTP 暴露执行接口，
也可以在本地对单个 JSON 输入执行或校验流程。程序支持 YAML 配置文件 + 环境变量、
结构化日志（zap）、Prometheus 指标以及 OpenTelemetry 追踪。

# 核心类型

  - Server      — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、run、validate、health、version
  - 路由：POST /api/v1/flows/execute（及 /execute 别名）、
    POST /api/v1/flows/execute/stream（SSE）、GET /api/v1/flows、健康检查
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、Metrics、
    OTelTracing、CORS、RateLimiter、APIKeyAuth、JWTAuth + TenantRateLimiter
  - Metrics 服务器：独立端口暴露 /metrics，使用独立 Registry
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
