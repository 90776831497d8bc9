package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/loomwork/loom"
)

// PanicError wraps a panic recovered from an inner pipeline layer.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover returns a middleware that converts a panic in any inner layer into
// a *PanicError. The pipeline core never catches panics itself; install this
// layer where an application prefers errors over crashes.
func Recover() loom.Middleware {
	return func(ctx context.Context, env loom.Env, next loom.Next) (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				out = nil
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		return next(ctx, nil)
	}
}
