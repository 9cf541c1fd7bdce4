// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供节点编排与执行引擎。

# 概述

所有可执行单元都实现 Node 接口：Execute(ctx, Payload) (Payload, error)。
组合节点本身也是 Node，因此可以任意嵌套，例如 ParallelFlow 的分支可以是
Flow，Batch 的内部节点可以是 ToolNode。组合节点在构造后不可变，可被并发
调用。

# 核心类型

  - Node / Named       — 执行接口与可选名称接口
  - FuncNode           — 函数节点，普通错误归一为 NODE_FAILED
  - Flow               — 顺序执行，首个错误原样返回，零节点为恒等
  - ParallelFlow       — 同一输入并发扇出，结果按构造顺序排列
  - Batch              — 对数组元素并发应用内部节点，结果按元素顺序排列
  - ToolNode[I, O]     — 将类型化 Tool 桥接为 Node（Decode → Run → Encode）
  - Middleware         — Timeout / Recover / Logging / Metrics / Tracing 装饰器

# 错误与并发

ParallelFlow 与 Batch 通过 errgroup 等待全部分支结束后才返回；失败时报告
索引最小的分支错误，与完成顺序无关。已启动的分支不会被强制取消。分支内的
panic 被恢复为 UNKNOWN。WithMaxConcurrency 限制同时运行的分支数量。

# 流式事件

WithStreamEmitter 在上下文中注册回调，组合节点为每个子执行发出
node_start / node_complete / node_error 事件。
*/
package workflow
