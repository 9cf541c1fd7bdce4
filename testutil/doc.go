// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 NodeFlow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertPayloadEqual / AssertErrorCode / AssertJSONEqual
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustPayload / MustJSON

# 子包

  - testutil/mocks: 节点 Mock，包括 StaticNode、FailingNode、RecordingNode、
    DelayNode、PanicNode，以及跨分支共享的 CallLog
  - testutil/fixtures: YAML 流程定义与常用 Payload 样例

# 使用示例

	ctx := testutil.TestContext(t)
	node := mocks.NewStaticNode("a", testutil.MustPayload(`{"ok":true}`))
	out, err := workflow.NewFlow("f", node).Execute(ctx, types.Null())
	require.NoError(t, err)
	testutil.AssertPayloadEqual(t, testutil.MustPayload(`{"ok":true}`), out)
*/
package testutil
