// Package lsp implements a Language Server Protocol server that reports
// type annotation problems in JavaScript files while they are edited.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Request is a JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"` // nil for notifications
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *ResponseError   `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// LSP-specific error codes
	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
)

// ErrMethodNotFound is returned when a method is not implemented.
var ErrMethodNotFound = &ResponseError{
	Code:    CodeMethodNotFound,
	Message: "method not found",
}

// Handler processes incoming requests.
type Handler interface {
	Handle(ctx context.Context, req *Request) (result any, err error)
}

// HandlerFunc is an adapter to use functions as Handler.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// Conn handles JSON-RPC communication over an io.ReadWriteCloser.
type Conn struct {
	rwc     io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex

	handler Handler
	wg      sync.WaitGroup
}

// NewConn creates a new JSON-RPC connection.
func NewConn(rwc io.ReadWriteCloser, handler Handler) *Conn {
	return &Conn{
		rwc:     rwc,
		reader:  bufio.NewReader(rwc),
		handler: handler,
	}
}

// lifecycleMethods are requests that change server state and run alone.
var lifecycleMethods = map[string]bool{
	"initialize": true,
	"shutdown":   true,
}

// Run reads and handles messages until EOF, a read error or cancellation of
// ctx. Notifications and lifecycle requests are handled in arrival order;
// other requests run concurrently.
func (c *Conn) Run(ctx context.Context) error {
	defer c.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := c.readRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		switch {
		case req.ID == nil:
			c.handleRequest(ctx, req)
			continue
		case lifecycleMethods[req.Method]:
			// Everything received earlier is answered first and nothing
			// received later starts before this returns.
			c.wg.Wait()
			c.handleRequest(ctx, req)
			continue
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleRequest(ctx, req)
		}()
	}
}

func (c *Conn) readRequest() (*Request, error) {
	body, err := c.readMessage()
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parsing request: %w", err)
	}

	return &req, nil
}

// readMessage reads the body of one framed message.
func (c *Conn) readMessage() ([]byte, error) {
	contentLength := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
			contentLength = n
		}
	}

	if contentLength <= 0 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func (c *Conn) handleRequest(ctx context.Context, req *Request) {
	result, err := c.handler.Handle(ctx, req)

	if req.ID == nil {
		return
	}

	resp := Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}
	var rpcErr *ResponseError
	switch {
	case errors.As(err, &rpcErr):
		resp.Error = rpcErr
	case err != nil:
		resp.Error = &ResponseError{Code: CodeInternalError, Message: err.Error()}
	case result == nil:
		resp.Result = json.RawMessage("null")
	default:
		resp.Result = result
	}

	_ = c.writeResponse(&resp)
}

func (c *Conn) writeResponse(resp *Response) error {
	return c.write(resp)
}

// Notify sends a notification to the client (no response expected).
func (c *Conn) Notify(_ context.Context, method string, params any) error {
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}
	return c.write(req)
}

// write frames one message with a Content-Length header.
func (c *Conn) write(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := fmt.Fprintf(c.rwc, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := c.rwc.Write(body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.rwc.Close()
}
