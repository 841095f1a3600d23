package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReadRequest(t *testing.T) {
	input := "Content-Length: 52\r\n\r\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"test\",\"params\":{}}"

	conn := NewConn(&mockConn{
		Reader: bytes.NewReader([]byte(input)),
		Writer: io.Discard,
	}, nil)

	req, err := conn.readRequest()
	if err != nil {
		t.Fatalf("readRequest failed: %v", err)
	}

	if req.Method != "test" {
		t.Errorf("Method = %q, want %q", req.Method, "test")
	}
	if req.ID == nil {
		t.Error("ID should not be nil")
	}
}

func TestReadRequest_HeaderCase(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"exit"}`
	input := "content-length: 33\r\nContent-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n" + body

	conn := NewConn(&mockConn{Reader: strings.NewReader(input), Writer: io.Discard}, nil)
	req, err := conn.readRequest()
	if err != nil {
		t.Fatalf("readRequest failed: %v", err)
	}
	if req.Method != "exit" {
		t.Errorf("Method = %q, want %q", req.Method, "exit")
	}
	if req.ID != nil {
		t.Errorf("ID = %s, want nil for a notification", *req.ID)
	}
}

func TestReadRequest_MissingLength(t *testing.T) {
	conn := NewConn(&mockConn{Reader: strings.NewReader("Content-Type: x\r\n\r\n{}"), Writer: io.Discard}, nil)
	if _, err := conn.readRequest(); err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&mockConn{
		Reader: bytes.NewReader(nil),
		Writer: &buf,
	}, nil)

	id := json.RawMessage(`1`)
	resp := &Response{
		JSONRPC: "2.0",
		ID:      &id,
		Result:  map[string]string{"status": "ok"},
	}

	if err := conn.writeResponse(resp); err != nil {
		t.Fatalf("writeResponse failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Content-Length:") {
		t.Error("output should contain Content-Length header")
	}
	if !strings.Contains(output, `"result"`) {
		t.Error("output should contain result field")
	}
}

func TestResponseError(t *testing.T) {
	err := &ResponseError{
		Code:    CodeMethodNotFound,
		Message: "method not found",
	}

	if err.Error() != "jsonrpc error -32601: method not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "jsonrpc error -32601: method not found")
	}
}

func TestHandlerFunc(t *testing.T) {
	called := false
	h := HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		called = true
		return "ok", nil
	})

	result, err := h.Handle(context.Background(), &Request{Method: "test"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "ok" {
		t.Errorf("result = %v, want %q", result, "ok")
	}
}

func TestConnRun(t *testing.T) {
	var in bytes.Buffer
	for _, msg := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"echo","params":"hi"}`,
		`{"jsonrpc":"2.0","id":2,"method":"nothing"}`,
		`{"jsonrpc":"2.0","id":3,"method":"missing"}`,
		`{"jsonrpc":"2.0","id":4,"method":"fail"}`,
		`{"jsonrpc":"2.0","method":"note"}`,
	} {
		in.WriteString(frame(msg))
	}

	var notes int
	h := HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		switch req.Method {
		case "echo":
			var s string
			_ = json.Unmarshal(req.Params, &s)
			return s, nil
		case "nothing":
			return nil, nil
		case "fail":
			return nil, errors.New("boom")
		case "note":
			notes++
			return nil, nil
		}
		return nil, ErrMethodNotFound
	})

	var out bytes.Buffer
	conn := NewConn(&mockConn{Reader: &in, Writer: &out}, h)
	if err := conn.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if notes != 1 {
		t.Errorf("notification handled %d times, want 1", notes)
	}

	got := map[string]Response{}
	reader := NewConn(&mockConn{Reader: &out, Writer: io.Discard}, nil)
	for {
		msg, err := reader.readMessage()
		if err != nil {
			break
		}
		var resp Response
		if err := json.Unmarshal(msg, &resp); err != nil {
			t.Fatalf("bad response %s: %v", msg, err)
		}
		got[string(*resp.ID)] = resp
		if string(*resp.ID) == "2" && !bytes.Contains(msg, []byte(`"result":null`)) {
			t.Errorf("nil result should be sent as null, got %s", msg)
		}
	}
	if len(got) != 4 {
		t.Fatalf("got %d responses, want 4", len(got))
	}
	if got["1"].Result != "hi" {
		t.Errorf("echo result = %v, want %q", got["1"].Result, "hi")
	}
	if e := got["3"].Error; e == nil || e.Code != CodeMethodNotFound {
		t.Errorf("missing method error = %v, want code %d", e, CodeMethodNotFound)
	}
	if e := got["4"].Error; e == nil || e.Code != CodeInternalError || e.Message != "boom" {
		t.Errorf("failing handler error = %v, want internal error boom", e)
	}
}

func TestConnRun_LifecycleOrder(t *testing.T) {
	var in bytes.Buffer
	for _, msg := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"slow"}`,
		`{"jsonrpc":"2.0","id":3,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	} {
		in.WriteString(frame(msg))
	}

	var (
		mu    sync.Mutex
		order []string
	)
	h := HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		switch req.Method {
		case "initialize", "slow":
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, req.Method)
		mu.Unlock()
		return nil, nil
	})

	var out bytes.Buffer
	conn := NewConn(&mockConn{Reader: &in, Writer: &out}, h)
	if err := conn.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"initialize", "initialized", "slow", "shutdown", "exit"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("handling order mismatch (-want +got):\n%s", diff)
	}
}

type mockConn struct {
	io.Reader
	io.Writer
}

func (m *mockConn) Close() error {
	return nil
}

func frame(body string) string {
	return "Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
}
