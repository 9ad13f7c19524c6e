package cmd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
)

const dialTimeout = 3 * time.Second
const callTimeout = 30 * time.Second

// client is a thin jrpc2 wrapper over the daemon's IPC socket.
type client struct {
	rpc  *jrpc2.Client
	conn net.Conn
}

func newClient() (*client, error) {
	conn, err := dialDaemon()
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w (is it running?)", err)
	}
	return &client{
		rpc:  jrpc2.NewClient(channel.Line(conn, conn), nil),
		conn: conn,
	}, nil
}

func (c *client) Close() {
	c.rpc.Close()
}

func (c *client) call(method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return c.rpc.CallResult(ctx, method, params, result)
}
