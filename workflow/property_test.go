package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"

	"github.com/BaSui01/nodeflow/testutil/mocks"
	"github.com/BaSui01/nodeflow/types"
)

// Batch output has the input's length and result[i] == inner(input[i]).
func TestProperty_BatchShapePreservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	batch := NewBatch("double", doubleNode())

	properties.Property("batch preserves length and element mapping", prop.ForAll(
		func(values []int64) bool {
			items := make([]types.Payload, len(values))
			for i, v := range values {
				items[i] = types.Int(v)
			}

			out, err := batch.Execute(context.Background(), types.Array(items...))
			if err != nil {
				t.Logf("Execute failed: %v", err)
				return false
			}
			if out.Len() != len(values) {
				return false
			}
			for i, v := range values {
				got, _ := out.Index(i)
				if !got.Equal(types.Int(2 * v)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.TestingRun(t)
}

// Results follow construction order whatever the completion timing.
func TestProperty_ParallelOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("parallel results are in construction order", prop.ForAll(
		func(delays []uint8) bool {
			nodes := make([]Node, len(delays))
			for i, d := range delays {
				delay := time.Duration(d%4) * time.Millisecond
				nodes[i] = mocks.NewStaticNode("branch", types.Int(int64(i))).WithDelay(delay)
			}

			out, err := NewParallelFlow("ordered", nodes).Execute(context.Background(), types.Null())
			if err != nil || out.Len() != len(delays) {
				return false
			}
			for i := range delays {
				got, _ := out.Index(i)
				if !got.Equal(types.Int(int64(i))) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// The reported error is the lowest failing index for any failure pattern
// and concurrency bound.
func TestProperty_FanOutErrorIsLowestIndex(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		failing := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "failing")
		limit := rapid.IntRange(0, 3).Draw(t, "limit")

		nodes := make([]Node, n)
		want := -1
		for i := 0; i < n; i++ {
			delay := time.Duration(n-i) * time.Millisecond
			if failing[i] {
				if want < 0 {
					want = i
				}
				nodes[i] = mocks.NewFailingNode("f", types.NewNodeFailedError(string(rune('a'+i)))).WithDelay(delay)
			} else {
				nodes[i] = mocks.NewStaticNode("s", types.Int(int64(i))).WithDelay(delay)
			}
		}

		_, err := NewParallelFlow("p", nodes, WithMaxConcurrency(limit)).Execute(context.Background(), types.Null())
		if want < 0 {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if err == nil {
			t.Fatalf("expected error from branch %d", want)
		}
		if got := types.AsError(err).Message; got != string(rune('a'+want)) {
			t.Fatalf("expected error of branch %d, got %q", want, got)
		}
	})
}
