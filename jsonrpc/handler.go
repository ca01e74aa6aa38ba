package jsonrpc

import "context"

// Handler handles a single JSON-RPC request.
// The returned response is discarded for notifications.
type Handler interface {
	Handle(ctx context.Context, request Request) Response
}

// HandlerFunc adapts an ordinary function to a Handler
type HandlerFunc func(ctx context.Context, request Request) Response

func (f HandlerFunc) Handle(ctx context.Context, request Request) Response {
	return f(ctx, request)
}
