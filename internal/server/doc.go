// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 同步完成监听，随后在后台 goroutine 中服务。
  - 优雅关闭：Shutdown 在配置的超时内排空请求，重复调用为 no-op。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM 与 ctx，
    触发后自动关闭。
  - 地址查询：BoundAddr 返回实际监听地址，便于 ":0" 场景。
*/
package server
