package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/types"
)

// =============================================================================
// 🧅 Node Middleware
// =============================================================================

// Middleware decorates a node. Decorated nodes keep the inner node's name.
type Middleware func(Node) Node

// Wrap applies middlewares to node; the first one is the outermost.
func Wrap(node Node, mws ...Middleware) Node {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			node = mws[i](node)
		}
	}
	return node
}

// decorated is the Node produced by every middleware in this file.
type decorated struct {
	name string
	exec NodeFunc
}

func decorate(inner Node, exec NodeFunc) *decorated {
	return &decorated{name: NodeName(inner), exec: exec}
}

func (d *decorated) Name() string { return d.name }

func (d *decorated) Execute(ctx context.Context, input types.Payload) (types.Payload, error) {
	return d.exec(ctx, input)
}

// Timeout bounds the inner node with a deadline context. The decorator waits
// for the inner node to return; if the deadline passed by then, the call
// fails with NODE_FAILED regardless of what the node returned.
func Timeout(d time.Duration) Middleware {
	return func(next Node) Node {
		if d <= 0 {
			return next
		}
		name := NodeName(next)
		return decorate(next, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			out, err := next.Execute(tctx, input)
			// 外层 ctx 先结束时原样返回，由设置该截止时间的一方报告
			if ctx.Err() != nil {
				return out, err
			}
			if errors.Is(tctx.Err(), context.DeadlineExceeded) {
				cause := err
				if cause == nil {
					cause = tctx.Err()
				}
				return types.Payload{}, types.NewNodeFailedError(
					fmt.Sprintf("node %s timed out after %s", name, d)).WithCause(cause)
			}
			return out, err
		})
	}
}

// Recover converts a panic in the wrapped node into an UNKNOWN error.
func Recover() Middleware {
	return func(next Node) Node {
		return decorate(next, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			return safeExecute(ctx, next, input)
		})
	}
}

// Logging 记录节点执行日志
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "workflow"))

	return func(next Node) Node {
		name := NodeName(next)
		return decorate(next, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			fields := []zap.Field{zap.String("node", name)}
			if runID, ok := types.RunID(ctx); ok {
				fields = append(fields, zap.String("run_id", runID))
			}

			logger.Debug("node started", append(fields, zap.String("input_kind", input.Kind().String()))...)
			start := time.Now()
			out, err := next.Execute(ctx, input)
			fields = append(fields, zap.Duration("duration", time.Since(start)))

			if err != nil {
				logger.Warn("node failed", append(fields,
					zap.String("code", string(types.AsError(err).Code)),
					zap.Error(err))...)
				return out, err
			}
			logger.Info("node completed", fields...)
			return out, nil
		})
	}
}

// MetricsRecorder receives one observation per node execution. status is
// "success" or the lower-cased error code.
type MetricsRecorder interface {
	RecordNodeExecution(node, status string, duration time.Duration)
}

// Metrics 记录节点执行指标
func Metrics(recorder MetricsRecorder) Middleware {
	return func(next Node) Node {
		if recorder == nil {
			return next
		}
		name := NodeName(next)
		return decorate(next, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			start := time.Now()
			out, err := next.Execute(ctx, input)
			recorder.RecordNodeExecution(name, ExecutionStatus(err), time.Since(start))
			return out, err
		})
	}
}

// ExecutionStatus maps an execution error to the status label used by
// metrics: "success", "node_failed", "decode_error" or "unknown".
func ExecutionStatus(err error) string {
	if err == nil {
		return "success"
	}
	switch types.AsError(err).Code {
	case types.ErrNodeFailed:
		return "node_failed"
	case types.ErrDecode:
		return "decode_error"
	default:
		return "unknown"
	}
}

// Tracing starts one span per execution using the global tracer provider.
func Tracing(tracerName string) Middleware {
	if tracerName == "" {
		tracerName = "nodeflow/workflow"
	}
	return func(next Node) Node {
		name := NodeName(next)
		return decorate(next, func(ctx context.Context, input types.Payload) (types.Payload, error) {
			tracer := otel.Tracer(tracerName)
			ctx, span := tracer.Start(ctx, "node.execute "+name,
				trace.WithAttributes(
					attribute.String("node.name", name),
					attribute.String("payload.kind", input.Kind().String()),
				))
			defer span.End()

			out, err := next.Execute(ctx, input)
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.String("error.code", string(types.AsError(err).Code)))
				span.SetStatus(codes.Error, err.Error())
				return out, err
			}
			span.SetStatus(codes.Ok, "")
			return out, nil
		})
	}
}
