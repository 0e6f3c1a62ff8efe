package langserver

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestCheckDocumentValid(t *testing.T) {
	diagnostics := CheckDocument("test.fern", []byte(`[Main]{ + start Main.top, top <- "a", }`))
	if len(diagnostics) != 0 {
		t.Errorf("diagnostics = %d, want 0: %v", len(diagnostics), diagnostics)
	}
}

func TestCheckDocumentCompileError(t *testing.T) {
	src := "[Main]{\n    + start Main.top,\n    top <- missing,\n}\n"
	diagnostics := CheckDocument("test.fern", []byte(src))
	if len(diagnostics) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diagnostics))
	}

	d := diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", d.Severity)
	}
	if d.Source == nil || *d.Source != "fern" {
		t.Errorf("source = %v, want fern", d.Source)
	}
	// LSP positions are zero-based.
	if d.Range.Start.Line != 2 || d.Range.Start.Character != 11 {
		t.Errorf("start = %d:%d, want 2:11", d.Range.Start.Line, d.Range.Start.Character)
	}
	if !strings.Contains(d.Message, "missing") {
		t.Errorf("message = %q, want it to name the undefined rule", d.Message)
	}
}

func TestUriToPath(t *testing.T) {
	tests := []struct {
		uri  string
		path string
	}{
		{"file:///home/user/g.fern", "/home/user/g.fern"},
		{"/plain/path.fern", "/plain/path.fern"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := uriToPath(tt.uri)
			if err != nil {
				t.Fatalf("uriToPath: %v", err)
			}
			if got != tt.path {
				t.Errorf("got %q, want %q", got, tt.path)
			}
		})
	}
}
