// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP 请求、节点执行与流程执行三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。NewCollector 注册到默认 registry，
NewCollectorWithRegisterer 可注册到自定义 registry（测试中常用）。
所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，实现 workflow.MetricsRecorder，
    可直接传给 workflow.Metrics 中间件。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 节点指标：执行总数与耗时，按 node/status 分组。
  - 流程指标：执行总数、耗时与进行中的执行数，按 flow/status 分组。
*/
package metrics
