// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package tlsutil 提供集中式 TLS 配置：HTTP 服务端监听与 CLI 健康检查客户端
// 共用同一套加固设置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
