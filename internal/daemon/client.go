package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

const dialTimeout = 500 * time.Millisecond

type Client struct {
	conn *jsonrpc2.Conn
}

// Connect dials the daemon. An error means no daemon is answering.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	netConn, err := Dial(socketPath, dialTimeout)
	if err != nil {
		return nil, err
	}

	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.PlainObjectCodec{})
	return &Client{
		conn: jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(noRequests)),
	}, nil
}

func noRequests(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client accepts no requests"}
}

func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if err := c.conn.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (*tools.HealthResult, error) {
	var result tools.HealthResult
	if err := c.Call(ctx, MethodHealth, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Ask(ctx context.Context, params AskParams) (*agent.Answer, error) {
	var answer agent.Answer
	if err := c.Call(ctx, MethodAgentAsk, params, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
