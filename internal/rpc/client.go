package rpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the splix API over a Unix socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the API at socketPath. The connection is
// established lazily on the first call.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	if socketPath == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", addr)
	}
	conn, err := grpc.NewClient(
		"passthrough:///"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// SayHello sends name and returns the greeting.
func (c *Client) SayHello(ctx context.Context, name string) (string, error) {
	if c == nil || c.conn == nil {
		return "", errors.New("rpc client not initialized")
	}
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, SayHelloMethod, wrapperspb.String(name), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c != nil && c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
