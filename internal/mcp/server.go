package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
)

const maxLineSize = 16 * 1024 * 1024

type Server struct {
	handler *Handler
}

func NewServer(registry *tools.Registry, toolTimeout time.Duration) *Server {
	return &Server{handler: NewHandler(registry, toolTimeout)}
}

func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	return s.handler.Handle(ctx, req)
}

// ProcessStream serves line-delimited JSON-RPC until reader is exhausted or
// ctx is cancelled. Only responses are written to writer.
func (s *Server) ProcessStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	encoder := json.NewEncoder(writer)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			log.Warn("parse error", "error", err)
			resp := &Response{
				JSONRPC: "2.0",
				ID:      nil,
				Error: &protocol.JSONRPCError{
					Code:    protocol.CodeParseError,
					Message: "Parse error",
				},
			}
			if err := encoder.Encode(resp); err != nil {
				return err
			}
			continue
		}

		resp := s.HandleRequest(ctx, &req)
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}

	return scanner.Err()
}
