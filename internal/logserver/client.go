package logserver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// Fetch connects to the log server at socketPath and copies its answer to
// out. With follow it streams until ctx ends or the server goes away.
func Fetch(ctx context.Context, socketPath string, follow bool, out io.Writer) error {
	if socketPath == "" {
		return errors.New("log server socket path is required")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect log server: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req := RequestGetAll
	if follow {
		req = RequestFollow
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(req))
	if _, err := conn.Write(raw[:]); err != nil {
		return fmt.Errorf("send log request: %w", err)
	}
	if _, err := io.Copy(out, conn); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("read logs: %w", err)
	}
	return ctx.Err()
}
