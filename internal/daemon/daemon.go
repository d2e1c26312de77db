package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/mcp"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
)

var log = logger.ForComponent("daemon")

var ErrAgentUnavailable = errors.New("agent is not available in this daemon")

type Options struct {
	SocketPath  string
	Registry    *tools.Registry
	ToolTimeout time.Duration
	Importer    Importer
	// Agents may be nil when no LLM credentials are configured;
	// AgentError then explains why.
	Agents     Asker
	AgentError error
}

type Daemon struct {
	opts     Options
	listener *SocketListener
	health   *tools.HealthTool

	connMu      sync.Mutex
	connections map[*jsonrpc2.Conn]struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	startTime    time.Time
}

func New(opts Options) *Daemon {
	d := &Daemon{
		opts:        opts,
		listener:    NewSocketListener(opts.SocketPath),
		connections: make(map[*jsonrpc2.Conn]struct{}),
		shutdown:    make(chan struct{}),
		startTime:   time.Now(),
	}

	if tool, ok := opts.Registry.Get("health"); ok {
		d.health, _ = tool.(*tools.HealthTool)
	}
	if d.health == nil {
		d.health = tools.NewHealthTool(opts.Registry, nil)
	}
	return d
}

// Start listens on the socket and serves connections in the background
// until ctx is cancelled or Shutdown is called.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.listener.Start(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.opts.SocketPath, err)
	}
	log.Info("daemon listening", "socket", d.opts.SocketPath, "tools", len(d.opts.Registry.Names()))

	d.wg.Add(1)
	go d.acceptConnections(ctx)

	go func() {
		select {
		case <-ctx.Done():
			d.Shutdown()
		case <-d.shutdown:
		}
	}()

	return nil
}

func (d *Daemon) acceptConnections(ctx context.Context) {
	defer d.wg.Done()

	handler := jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(d.handle).SuppressErrClosed())

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		rpc := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(conn, jsonrpc2.PlainObjectCodec{}), handler)

		d.connMu.Lock()
		d.connections[rpc] = struct{}{}
		d.connMu.Unlock()

		go func() {
			<-rpc.DisconnectNotify()
			d.connMu.Lock()
			delete(d.connections, rpc)
			d.connMu.Unlock()
		}()
	}
}

func (d *Daemon) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	log.Debug("request", "method", req.Method)

	switch req.Method {
	case MethodHealth:
		return d.health.Execute(ctx, nil)

	case MethodToolsList:
		return &ToolsListResult{Tools: mcp.DescribeTools(d.opts.Registry)}, nil

	case MethodToolsCall:
		var call protocol.ToolCall
		if err := decodeParams(req, &call); err != nil {
			return nil, err
		}
		if _, ok := d.opts.Registry.Get(call.Name); !ok {
			return nil, &jsonrpc2.Error{Code: protocol.CodeInvalidParams, Message: fmt.Sprintf("Unknown tool: %s", call.Name)}
		}
		return mcp.CallTool(ctx, d.opts.Registry, call, d.opts.ToolTimeout), nil

	case MethodImportRun:
		if d.opts.Importer == nil {
			return nil, &jsonrpc2.Error{Code: protocol.CodeInternalError, Message: "importer not configured"}
		}
		return d.opts.Importer.Run(ctx)

	case MethodAgentAsk:
		return d.ask(ctx, req)

	default:
		return nil, &jsonrpc2.Error{Code: protocol.CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
}

func (d *Daemon) ask(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	if d.opts.Agents == nil {
		msg := ErrAgentUnavailable.Error()
		if d.opts.AgentError != nil {
			msg = fmt.Sprintf("%s: %v", msg, d.opts.AgentError)
		}
		return nil, &jsonrpc2.Error{Code: protocol.CodeInternalError, Message: msg}
	}

	var params AskParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Question == "" {
		return nil, &jsonrpc2.Error{Code: protocol.CodeInvalidParams, Message: "question is required"}
	}
	if params.Agent == "" {
		params.Agent = agent.RootAgentName
	}

	answer, err := d.opts.Agents.Ask(ctx, params.Agent, params.SessionID, params.Question)
	if err != nil && answer == nil {
		return nil, err
	}
	if err != nil {
		log.Warn("agent returned partial answer", "error", err)
	}
	return answer, nil
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: protocol.CodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: protocol.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

// Shutdown stops accepting connections, closes open ones and removes the
// socket. It is safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
		d.listener.Close()

		d.connMu.Lock()
		for conn := range d.connections {
			conn.Close()
		}
		d.connMu.Unlock()

		d.wg.Wait()
		d.listener.Remove()
		log.Info("daemon stopped", "uptime", d.Uptime().Round(time.Second))
	})
}

// Done is closed once Shutdown starts.
func (d *Daemon) Done() <-chan struct{} {
	return d.shutdown
}

func (d *Daemon) SocketPath() string {
	return d.opts.SocketPath
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}
