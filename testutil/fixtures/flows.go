// =============================================================================
// 📦 测试数据工厂 - 流程定义与 Payload 样例
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/nodeflow/types"
)

// =============================================================================
// 🎯 YAML 流程定义
// =============================================================================

// TextPipelineYAML 大写后追加感叹号
const TextPipelineYAML = `name: text-pipeline
description: shout then exclaim
root:
  type: flow
  children:
    - type: node
      use: uppercase
      config:
        field: text
    - type: node
      use: append_suffix
      config:
        field: text
        suffix: "!"
`

// FanOutYAML 对同一数字做加一与减一
const FanOutYAML = `name: fan-out
root:
  type: parallel
  max_concurrency: 2
  children:
    - type: node
      use: increment
    - type: node
      use: increment
      config:
        by: -1
`

// BatchDoubleYAML 对数组每个元素翻倍
const BatchDoubleYAML = `name: batch-double
root:
  type: batch
  child:
    type: node
    use: double
`

// AddToolYAML 类型化加法工具
const AddToolYAML = `name: add
description: adds a and b
root:
  type: node
  use: add
  timeout: 1s
`

// =============================================================================
// 🧾 Payload 样例
// =============================================================================

// TextPayload 返回 {"text": s}
func TextPayload(s string) types.Payload {
	return types.Object(map[string]types.Payload{"text": types.String(s)})
}

// NumberArray 返回数字数组
func NumberArray(values ...float64) types.Payload {
	items := make([]types.Payload, len(values))
	for i, v := range values {
		items[i] = types.Number(v)
	}
	return types.Array(items...)
}

// AddPayload 返回 {"a": a, "b": b}
func AddPayload(a, b float64) types.Payload {
	return types.Object(map[string]types.Payload{
		"a": types.Number(a),
		"b": types.Number(b),
	})
}
