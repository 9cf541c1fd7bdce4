package workflow_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

func ExampleFlow() {
	upper := workflow.NewFuncNode("uppercase", func(ctx context.Context, in types.Payload) (types.Payload, error) {
		text, _ := in.Get("text")
		s, _ := text.AsString()
		return in.With("text", types.String(strings.ToUpper(s)))
	})
	exclaim := workflow.NewFuncNode("exclaim", func(ctx context.Context, in types.Payload) (types.Payload, error) {
		text, _ := in.Get("text")
		s, _ := text.AsString()
		return in.With("text", types.String(s+"!"))
	})

	out, err := workflow.NewFlow("shout", upper, exclaim).
		Execute(context.Background(), types.MustParseJSON(`{"text":"hi"}`))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(out)
	// Output: {"text":"HI!"}
}

func ExampleParallelFlow() {
	add := func(name string, delta float64) workflow.Node {
		return workflow.NewFuncNode(name, func(ctx context.Context, in types.Payload) (types.Payload, error) {
			n, _ := in.AsNumber()
			return types.Number(n + delta), nil
		})
	}

	out, _ := workflow.Parallel("inc-dec", add("inc", 1), add("dec", -1)).
		Execute(context.Background(), types.Int(5))
	fmt.Println(out)
	// Output: [6,4]
}

func ExampleBatch() {
	double := workflow.NewFuncNode("double", func(ctx context.Context, in types.Payload) (types.Payload, error) {
		n, _ := in.AsNumber()
		return types.Number(n * 2), nil
	})

	out, _ := workflow.NewBatch("double-all", double).
		Execute(context.Background(), types.MustParseJSON(`[1,2,3]`))
	fmt.Println(out)

	_, err := workflow.NewBatch("double-all", double).Execute(context.Background(), types.String("nope"))
	fmt.Println(types.GetErrorCode(err))
	// Output:
	// [2,4,6]
	// DECODE_ERROR
}

type sum struct {
	A int `json:"a"`
	B int `json:"b"`
}

type total struct {
	Result int `json:"result"`
}

func ExampleToolNode() {
	add := workflow.NewTool("add", func(ctx context.Context, in sum) (total, error) {
		return total{Result: in.A + in.B}, nil
	})

	out, _ := add.Execute(context.Background(), types.MustParseJSON(`{"a":10,"b":5}`))
	fmt.Println(out)

	_, err := add.Execute(context.Background(), types.MustParseJSON(`{"a":"ten"}`))
	fmt.Println(types.GetErrorCode(err))
	// Output:
	// {"result":15}
	// DECODE_ERROR
}
