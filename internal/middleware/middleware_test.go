package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
)

func okInvoker(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
	return command.Success(map[string]any{"echo": name})
}

func failInvoker(code string) Invoker {
	return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
		return command.Failure(command.NewError(code, "boom"))
	}
}

func testContext() *command.ExecutionContext {
	return command.NewExecutionContext(command.SurfaceCLI, "trace-test")
}

// tagging returns a middleware that records before/after markers,
// proving composition order.
func tagging(tag string, trace *[]string) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			*trace = append(*trace, tag+"-before")
			result := next(ctx, name, input, ec)
			*trace = append(*trace, tag+"-after")
			return result
		}
	}
}

func TestChain_Empty(t *testing.T) {
	inv := Chain(okInvoker)
	result := inv(context.Background(), "x", nil, testContext())
	require.True(t, result.Success)
}

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string

	inv := Chain(okInvoker, tagging("a", &order), tagging("b", &order))
	result := inv(context.Background(), "x", nil, testContext())

	require.True(t, result.Success)
	require.Equal(t, []string{"a-before", "b-before", "b-after", "a-after"}, order)
}

func TestChain_ShortCircuitSkipsInner(t *testing.T) {
	var order []string

	reject := func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			return command.Failure(command.Unauthorized(""))
		}
	}

	called := false
	inv := Chain(func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
		called = true
		return command.Success(nil)
	}, reject, tagging("inner", &order))

	result := inv(context.Background(), "x", nil, testContext())
	require.False(t, result.Success)
	require.Equal(t, command.CodeUnauthorized, result.Error.Code)
	require.False(t, called)
	require.Empty(t, order)
}
