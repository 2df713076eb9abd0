package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zjrosen/dispatch/internal/log"
)

// maxLineSize bounds a single JSON-RPC message on stdio.
const maxLineSize = 1024 * 1024

// StdioServer speaks newline-delimited JSON-RPC over a reader/writer
// pair, normally stdin/stdout.
type StdioServer struct {
	adapter *Adapter
	in      io.Reader
	out     io.Writer
}

// NewStdioServer creates a server on stdin/stdout.
func NewStdioServer(adapter *Adapter) *StdioServer {
	return &StdioServer{adapter: adapter, in: os.Stdin, out: os.Stdout}
}

// NewStdioServerWithIO creates a server on an explicit reader/writer,
// for tests and embedding.
func NewStdioServerWithIO(adapter *Adapter, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{adapter: adapter, in: in, out: out}
}

// Serve reads messages until EOF or context cancellation. Each response
// is written as one line.
func (s *StdioServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	log.Info(log.CatMCP, "stdio server started")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.adapter.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := s.out.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	log.Info(log.CatMCP, "stdio server stopped")
	return nil
}
