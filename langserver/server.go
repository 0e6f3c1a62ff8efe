// Package langserver provides a stdio language server for fern grammar
// files. It compiles a document on open and on every change and
// publishes the resulting compile diagnostics.
package langserver

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/fern/parser"
)

const lsName = "fern"

type Server struct {
	handler protocol.Handler
	server  *server.Server
	version string
}

func New(version string) *Server {
	s := &Server{version: version}

	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		SetTrace:              s.setTrace,
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.publishDiagnostics(ctx, params.TextDocument.URI, textChange.Text)
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	// Clear any diagnostics for the closed document.
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string, text string) {
	path, err := uriToPath(uri)
	if err != nil {
		path = uri
	}

	diagnostics := CheckDocument(path, []byte(text))
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// CheckDocument compiles one grammar document and converts its compile
// error, if any, into LSP diagnostics. The list is empty, never nil,
// when the document compiles.
func CheckDocument(path string, data []byte) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	_, err := parser.Compile(parser.Source{Name: path, Data: data})
	if err == nil {
		return diagnostics
	}

	var compileErr *parser.CompileError
	if !errors.As(err, &compileErr) {
		return append(diagnostics, makeDiagnostic(0, 0, err.Error()))
	}

	line, column := 0, 0
	if compileErr.Pos.Line > 0 {
		line = compileErr.Pos.Line - 1
		column = compileErr.Pos.Column - 1
	}
	return append(diagnostics, makeDiagnostic(line, column, compileErr.Msg))
}

func makeDiagnostic(line, column int, message string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lsName
	pos := protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(column)}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
