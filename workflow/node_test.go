package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/nodeflow/testutil/mocks"
	"github.com/BaSui01/nodeflow/types"
)

func TestFuncNode_NormalisesPlainErrors(t *testing.T) {
	cause := errors.New("boom")
	node := NewFuncNode("exploder", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		return types.Payload{}, cause
	})

	_, err := node.Execute(context.Background(), types.Null())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNodeFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "exploder")
}

func TestFuncNode_KeepsTaxonomyErrors(t *testing.T) {
	decodeErr := types.NewDecodeError("bad shape")
	node := NewFuncNode("strict", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		return types.Payload{}, decodeErr
	})

	_, err := node.Execute(context.Background(), types.Null())
	assert.Same(t, decodeErr, err)
}

func TestNodeName(t *testing.T) {
	assert.Equal(t, "uppercase", NodeName(uppercaseNode()))
	assert.Equal(t, "passthrough", NodeName(PassthroughNode{}))
	assert.Equal(t, "*mocks.DelayNode", NodeName(mocks.NewDelayNode("", 0)))
}

func TestPassthroughNode(t *testing.T) {
	in := types.MustParseJSON(`{"a":[1,2]}`)
	out, err := PassthroughNode{}.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestSafeExecute_RecoversPanic(t *testing.T) {
	_, err := safeExecute(context.Background(), mocks.NewPanicNode("bad", "kaboom"), types.Null())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknown))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestConstructors_RejectNilNodes(t *testing.T) {
	assert.Panics(t, func() { NewFlow("f", PassthroughNode{}, nil) })
	assert.Panics(t, func() { Parallel("p", nil) })
	assert.Panics(t, func() { NewBatch("b", nil) })
}
