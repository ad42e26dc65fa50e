package console

import "context"

type ctxIndex int

const ctxIndexTrace ctxIndex = iota

// WithTrace marks ctx so that commands print the register traffic they cause.
func WithTrace(parent context.Context, value bool) context.Context {
	return context.WithValue(parent, ctxIndexTrace, value)
}

func IsTrace(ctx context.Context) bool {
	val, _ := ctx.Value(ctxIndexTrace).(bool)
	return val
}
