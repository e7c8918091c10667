package replies

import (
	"context"

	"github.com/guildreply/guildreply/pkg/chat"
)

type keyExecutionContext struct{}

// ExecutionContext carries the message a command was invoked with.
type ExecutionContext struct {
	Msg chat.Message
}

// WithExecutionContext stores ec in ctx.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, keyExecutionContext{}, ec)
}

// FromContext returns the ExecutionContext stored in ctx.
func FromContext(ctx context.Context) (*ExecutionContext, bool) {
	ec, ok := ctx.Value(keyExecutionContext{}).(*ExecutionContext)
	return ec, ok && ec != nil
}
