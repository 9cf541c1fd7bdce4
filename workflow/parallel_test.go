package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/nodeflow/testutil"
	"github.com/BaSui01/nodeflow/testutil/mocks"
	"github.com/BaSui01/nodeflow/types"
)

func TestParallelFlow_IncDec(t *testing.T) {
	p := Parallel("inc-dec", addNode("inc", 1), addNode("dec", -1))

	out, err := p.Execute(context.Background(), types.Int(5))
	require.NoError(t, err)
	testutil.AssertPayloadEqual(t, testutil.MustPayload(`[6,4]`), out)
}

func TestParallelFlow_OrderIsConstructionOrder(t *testing.T) {
	log := mocks.NewCallLog()
	p := Parallel("ordered",
		mocks.NewStaticNode("a", types.String("A")).WithDelay(40*time.Millisecond).WithCallLog(log),
		mocks.NewStaticNode("b", types.String("B")).WithCallLog(log),
		mocks.NewStaticNode("c", types.String("C")).WithDelay(20*time.Millisecond).WithCallLog(log),
	)

	out, err := p.Execute(context.Background(), types.Null())
	require.NoError(t, err)
	testutil.AssertPayloadEqual(t, testutil.MustPayload(`["A","B","C"]`), out)
	assert.Equal(t, "b", log.Calls()[0], "b should complete first")
}

func TestParallelFlow_FirstErrorByConstructionOrder(t *testing.T) {
	log := mocks.NewCallLog()
	fail1 := types.NewNodeFailedError("fail1")
	fail2 := types.NewNodeFailedError("fail2")

	p := Parallel("failures",
		mocks.NewStaticNode("ok", types.Bool(true)).WithCallLog(log),
		mocks.NewFailingNode("fail1", fail1).WithDelay(40*time.Millisecond).WithCallLog(log),
		mocks.NewFailingNode("fail2", fail2).WithCallLog(log),
	)

	_, err := p.Execute(context.Background(), types.Null())
	require.Error(t, err)
	assert.Same(t, fail1, err)

	calls := log.Calls()
	require.Len(t, calls, 3, "every branch runs to completion")
	assert.Equal(t, "fail1", calls[2], "fail1 completes last yet is reported")
}

func TestParallelFlow_SiblingsNotCancelled(t *testing.T) {
	slow := mocks.NewRecordingNode("slow").WithFunc(func(ctx context.Context, input types.Payload) (types.Payload, error) {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() != nil {
			return types.Payload{}, ctx.Err()
		}
		return input, nil
	})
	p := Parallel("siblings", mocks.NewFailingNode("fast-fail", types.NewNodeFailedError("x")), slow)

	_, err := p.Execute(context.Background(), types.Int(1))
	require.Error(t, err)
	assert.Equal(t, "x", types.AsError(err).Message)
	assert.Equal(t, 1, slow.CallCount())
}

func TestParallelFlow_EmptyReturnsEmptyArray(t *testing.T) {
	out, err := Parallel("none").Execute(context.Background(), types.Int(1))
	require.NoError(t, err)
	assert.Equal(t, types.KindArray, out.Kind())
	assert.Equal(t, 0, out.Len())
}

func TestParallelFlow_SharesInput(t *testing.T) {
	a := mocks.NewRecordingNode("a")
	b := mocks.NewRecordingNode("b")
	in := testutil.MustPayload(`{"k":"v"}`)

	out, err := Parallel("shared", a, b).Execute(context.Background(), in)
	require.NoError(t, err)
	testutil.AssertPayloadEqual(t, types.Array(in, in), out)
	testutil.AssertPayloadEqual(t, in, a.Inputs()[0])
	testutil.AssertPayloadEqual(t, in, b.Inputs()[0])
}

func TestParallelFlow_BranchesRunConcurrently(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})
	blocking := func(name string) Node {
		return NewFuncNode(name, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			started <- name
			<-release
			return types.String(name), nil
		})
	}

	done := make(chan types.Payload, 1)
	go func() {
		out, _ := Parallel("barrier", blocking("a"), blocking("b")).Execute(context.Background(), types.Null())
		done <- out
	}()

	// 两个分支都必须在任一分支返回前启动
	for i := 0; i < 2; i++ {
		_, ok := testutil.WaitForChannel(started, time.Second)
		require.True(t, ok, "branch %d did not start while the other was blocked", i)
	}
	close(release)

	out, ok := testutil.WaitForChannel(done, time.Second)
	require.True(t, ok)
	testutil.AssertPayloadEqual(t, testutil.MustPayload(`["a","b"]`), out)
}

func TestParallelFlow_PanicBecomesUnknown(t *testing.T) {
	p := Parallel("panicky", PassthroughNode{}, mocks.NewPanicNode("bad", "oops"))

	_, err := p.Execute(context.Background(), types.Null())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknown))
	assert.Contains(t, err.Error(), "bad")
}

func TestParallelFlow_MaxConcurrency(t *testing.T) {
	var inFlight, peak int64
	nodes := make([]Node, 6)
	for i := range nodes {
		nodes[i] = NewFuncNode("tracked", func(ctx context.Context, input types.Payload) (types.Payload, error) {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return input, nil
		})
	}

	p := NewParallelFlow("bounded", nodes, WithMaxConcurrency(2))
	assert.Equal(t, 2, p.MaxConcurrency())

	out, err := p.Execute(context.Background(), types.Int(7))
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestParallelFlow_StreamEventsCarryIndex(t *testing.T) {
	sink := &eventSink{}
	ctx := WithStreamEmitter(context.Background(), sink.emit)

	_, err := Parallel("fan", addNode("inc", 1), addNode("dec", -1)).Execute(ctx, types.Int(0))
	require.NoError(t, err)

	completes := sink.byType(EventNodeComplete)
	require.Len(t, completes, 2)
	seen := map[int]string{}
	for _, ev := range completes {
		assert.Equal(t, "fan", ev.Flow)
		seen[ev.Index] = ev.Node
	}
	assert.Equal(t, map[int]string{0: "inc", 1: "dec"}, seen)
}
