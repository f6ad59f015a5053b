// Package input turns the user's keystroke stream into engine events.
package input

import (
	"context"
	"errors"
	"io"
	"runtime/debug"

	"pkt.systems/pslog"
	"pkt.systems/splix/internal/eventbus"
	"pkt.systems/splix/schema"
)

const readBufferSize = 1024

// Source is a context-aware byte stream such as a pollable stdin.
type Source interface {
	Read(ctx context.Context, p []byte) (int, error)
}

// Pump publishes one Input event per byte read from src until src ends or
// ctx is canceled. It releases producer before returning.
// A panic in src is returned as an ErrPanic error.
func Pump(ctx context.Context, src Source, producer *eventbus.Producer) (err error) {
	defer producer.Close()
	log := pslog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("input pump panicked", "panic", r, "stack", string(debug.Stack()))
			err = schema.Recovered("read input", r)
		}
	}()
	buf := make([]byte, readBufferSize)
	for {
		n, err := src.Read(ctx, buf)
		for _, b := range buf[:n] {
			if pubErr := producer.Publish(ctx, schema.Input(b)); pubErr != nil {
				return pubErr
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			log.Debug("input stream ended")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return schema.NewError(schema.ErrorIO, "read input", err)
	}
}
