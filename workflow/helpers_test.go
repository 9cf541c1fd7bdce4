package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/BaSui01/nodeflow/types"
)

// Nodes used across the package tests.

func uppercaseNode() *FuncNode {
	return NewFuncNode("uppercase", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		text, ok := input.Get("text")
		if !ok {
			return types.Payload{}, errors.New("missing text")
		}
		s, _ := text.AsString()
		return input.With("text", types.String(strings.ToUpper(s)))
	})
}

func appendExclaimNode() *FuncNode {
	return NewFuncNode("append_exclaim", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		text, _ := input.Get("text")
		s, _ := text.AsString()
		return input.With("text", types.String(s+"!"))
	})
}

func addNode(name string, delta float64) *FuncNode {
	return NewFuncNode(name, func(ctx context.Context, input types.Payload) (types.Payload, error) {
		n, ok := input.AsNumber()
		if !ok {
			return types.Payload{}, types.NewDecodeError("expected a number")
		}
		return types.Number(n + delta), nil
	})
}

func doubleNode() *FuncNode {
	return NewFuncNode("double", func(ctx context.Context, input types.Payload) (types.Payload, error) {
		n, ok := input.AsNumber()
		if !ok {
			return types.Payload{}, types.NewDecodeError("expected a number")
		}
		return types.Number(n * 2), nil
	})
}

// eventSink collects stream events from concurrent branches.
type eventSink struct {
	mu     sync.Mutex
	events []StreamEvent
}

func (s *eventSink) emit(ev StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) byType(typ StreamEventType) []StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StreamEvent
	for _, ev := range s.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
