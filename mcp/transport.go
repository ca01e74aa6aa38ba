package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/sercop-mcp/jsonrpc"
)

const maxLineSize = 1024 * 1024

// Transport exchanges newline-delimited JSON-RPC messages over a pair of streams
type Transport struct {
	scanner *bufio.Scanner
	bufOut  *bufio.Writer
	writer  *json.Encoder
	errOut  io.Writer

	mu sync.Mutex
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(in io.Reader, out io.Writer, errOut io.Writer) *Transport {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	bufOut := bufio.NewWriter(out)
	writer := json.NewEncoder(bufOut)
	writer.SetEscapeHTML(false)

	return &Transport{
		scanner: scanner,
		bufOut:  bufOut,
		writer:  writer,
		errOut:  errOut,
	}
}

// Run reads requests until the input is exhausted or ctx is cancelled.
// Each request is handled on its own goroutine, so responses may be written
// in a different order than the requests arrived. Run waits for in-flight
// requests before returning.
func (t *Transport) Run(ctx context.Context, handler jsonrpc.Handler) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for t.scanner.Scan() {
			line := append([]byte(nil), t.scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- t.scanner.Err()
	}()

	var inflight errgroup.Group
	for {
		select {
		case <-ctx.Done():
			inflight.Wait()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				inflight.Wait()
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}

			var request jsonrpc.Request
			if err := json.Unmarshal(line, &request); err != nil {
				t.write(jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrParse, err)))
				continue
			}
			if request.Version != jsonrpc.Version || request.Method == "" {
				t.write(jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidRequest, nil)))
				continue
			}

			inflight.Go(func() error {
				response := handler.Handle(ctx, request)
				if !request.IsNotification() {
					t.write(response)
				}
				return nil
			})
		}
	}
}

func (t *Transport) write(response jsonrpc.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writer.Encode(response); err != nil {
		fmt.Fprintf(t.errOut, "Error encoding response: %v\n", err)
		return
	}
	if err := t.bufOut.Flush(); err != nil {
		fmt.Fprintf(t.errOut, "Error writing response: %v\n", err)
	}
}
