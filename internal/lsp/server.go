package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/tcjs/internal/annotations"
	"github.com/albertocavalcante/tcjs/internal/version"
)

// Server handles LSP requests for JavaScript files.
type Server struct {
	conn *Conn

	// mu protects the fields below.
	mu          sync.RWMutex
	initialized bool
	shutdown    bool
	documents   map[protocol.DocumentURI]*Document
	rootURI     protocol.DocumentURI

	onExit func()
}

// Document represents an open text document.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Content string

	// file is the scan of Content.
	file *annotations.File
}

// NewServer creates a new LSP server. onExit is called when the client
// sends the exit notification.
func NewServer(onExit func()) *Server {
	return &Server{
		documents: make(map[protocol.DocumentURI]*Document),
		onExit:    onExit,
	}
}

// SetConn sets the connection used for notifications.
func (s *Server) SetConn(conn *Conn) {
	s.conn = conn
}

// Handle implements Handler interface - routes requests to methods.
func (s *Server) Handle(ctx context.Context, req *Request) (any, error) {
	s.mu.RLock()
	shutdown := s.shutdown
	initialized := s.initialized
	s.mu.RUnlock()

	if shutdown && req.Method != "exit" {
		return nil, &ResponseError{
			Code:    CodeInvalidRequest,
			Message: "server is shutting down",
		}
	}

	if !initialized {
		switch req.Method {
		case "initialize", "initialized", "shutdown", "exit":
		default:
			return nil, &ResponseError{
				Code:    CodeInvalidRequest,
				Message: "server not initialized",
			}
		}
	}

	switch req.Method {
	// Lifecycle
	case "initialize":
		return s.handleInitialize(ctx, req.Params)
	case "initialized":
		return s.handleInitialized(ctx, req.Params)
	case "shutdown":
		return s.handleShutdown(ctx)
	case "exit":
		return s.handleExit(ctx)

	// Text document sync
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, req.Params)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, req.Params)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, req.Params)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, req.Params)

	// Language features
	case "textDocument/hover":
		return s.handleHover(ctx, req.Params)
	case "textDocument/formatting":
		return s.handleFormatting(ctx, req.Params)

	default:
		log.Printf("unhandled method: %s", req.Method)
		if req.ID == nil {
			return nil, nil
		}
		return nil, ErrMethodNotFound
	}
}

// --- Lifecycle methods ---

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (any, error) {
	var p protocol.InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &ResponseError{Code: CodeInvalidParams, Message: fmt.Sprintf("parsing initialize params: %v", err)}
	}

	s.mu.Lock()
	if len(p.WorkspaceFolders) > 0 {
		s.rootURI = protocol.DocumentURI(p.WorkspaceFolders[0].URI)
	} else if p.RootURI != "" {
		s.rootURI = p.RootURI
	}
	root := s.rootURI
	s.mu.Unlock()

	log.Printf("initialize: root=%s", root)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: true,
				},
			},
			HoverProvider:              true,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "tcjs",
			Version: version.Version,
		},
	}, nil
}

func (s *Server) handleInitialized(_ context.Context, _ json.RawMessage) (any, error) {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	log.Printf("initialized")
	return nil, nil
}

func (s *Server) handleShutdown(_ context.Context) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	log.Printf("shutdown")
	return nil, nil
}

func (s *Server) handleExit(_ context.Context) (any, error) {
	log.Printf("exit")
	if s.onExit != nil {
		s.onExit()
	}
	return nil, nil
}

// --- Text document sync ---

func (s *Server) handleDidOpen(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	log.Printf("didOpen: %s", p.TextDocument.URI)
	s.update(ctx, p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
	return nil, nil
}

func (s *Server) handleDidChange(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if len(p.ContentChanges) == 0 {
		return nil, nil
	}

	log.Printf("didChange: %s v%d", p.TextDocument.URI, p.TextDocument.Version)
	// Full sync: the last change holds the whole document.
	s.update(ctx, p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges[len(p.ContentChanges)-1].Text)
	return nil, nil
}

func (s *Server) handleDidClose(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.documents, p.TextDocument.URI)
	s.mu.Unlock()

	log.Printf("didClose: %s", p.TextDocument.URI)
	s.notifyDiagnostics(ctx, p.TextDocument.URI, []protocol.Diagnostic{})
	return nil, nil
}

func (s *Server) handleDidSave(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	log.Printf("didSave: %s", p.TextDocument.URI)

	doc := s.document(p.TextDocument.URI)
	switch {
	case p.Text != "":
		var v int32
		if doc != nil {
			v = doc.Version
		}
		s.update(ctx, p.TextDocument.URI, v, p.Text)
	case doc != nil:
		s.publishDiagnostics(ctx, doc)
	}
	return nil, nil
}

// update stores new content for uri and publishes its diagnostics.
func (s *Server) update(ctx context.Context, uri protocol.DocumentURI, v int32, content string) {
	doc := &Document{
		URI:     uri,
		Version: v,
		Content: content,
		file:    annotations.Scan(uriToPath(uri), []byte(content)),
	}
	s.mu.Lock()
	s.documents[uri] = doc
	s.mu.Unlock()

	s.publishDiagnostics(ctx, doc)
}

func (s *Server) document(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[uri]
}

// --- Language features ---

func (s *Server) handleHover(_ context.Context, params json.RawMessage) (any, error) {
	var p protocol.HoverParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc := s.document(p.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	off := doc.file.Offset(int(p.Position.Line)+1, int(p.Position.Character)+1)
	a := doc.file.AnnotationAt(off)
	if a == nil {
		return nil, nil
	}

	log.Printf("hover: %s @ %d:%d -> %q", p.TextDocument.URI, p.Position.Line, p.Position.Character, a.Text)

	rng := offsetRange(doc.file, a.Start, a.End)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: hoverMarkdown(a),
		},
		Range: &rng,
	}, nil
}

func (s *Server) handleFormatting(_ context.Context, params json.RawMessage) (any, error) {
	var p protocol.DocumentFormattingParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc := s.document(p.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	log.Printf("formatting: %s", p.TextDocument.URI)

	var edits []protocol.TextEdit
	for _, a := range doc.file.Annotations {
		canon := a.Canonical()
		if canon == "" || canon == doc.Content[a.Start:a.End] {
			continue
		}
		edits = append(edits, protocol.TextEdit{
			Range:   offsetRange(doc.file, a.Start, a.End),
			NewText: canon,
		})
	}
	if edits == nil {
		edits = []protocol.TextEdit{}
	}
	return edits, nil
}

// uriToPath converts a document URI to a file path.
func uriToPath(uri protocol.DocumentURI) string {
	return strings.TrimPrefix(string(uri), "file://")
}

// offsetRange converts byte offsets into a 0-based LSP range.
func offsetRange(f *annotations.File, start, end int) protocol.Range {
	return protocol.Range{
		Start: lspPosition(f.Position(start)),
		End:   lspPosition(f.Position(end)),
	}
}

func lspPosition(p annotations.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line - 1), Character: uint32(p.Column - 1)}
}

// --- Diagnostics ---

// publishDiagnostics sends the scan diagnostics of doc to the client.
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	diagnostics := make([]protocol.Diagnostic, 0, len(doc.file.Diagnostics))
	for _, d := range doc.file.Diagnostics {
		diagnostics = append(diagnostics, toLSPDiagnostic(d))
	}
	s.notifyDiagnostics(ctx, doc.URI, diagnostics)
	log.Printf("published %d diagnostics for %s", len(diagnostics), doc.URI)
}

func (s *Server) notifyDiagnostics(ctx context.Context, uri protocol.DocumentURI, diagnostics []protocol.Diagnostic) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}); err != nil {
		log.Printf("failed to publish diagnostics: %v", err)
	}
}

// toLSPDiagnostic converts a scan diagnostic to an LSP diagnostic.
func toLSPDiagnostic(d annotations.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	if d.Severity == annotations.SeverityWarning {
		severity = protocol.DiagnosticSeverityWarning
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: lspPosition(d.Pos),
			End:   lspPosition(d.End),
		},
		Severity: severity,
		Code:     d.Code,
		Source:   "tcjs",
		Message:  d.Message,
	}
}
