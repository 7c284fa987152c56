package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

type client struct {
	diags chan PublishDiagnosticsParams
}

func (c *client) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method != "textDocument/publishDiagnostics" || req.Params == nil {
		return
	}
	var p PublishDiagnosticsParams
	if err := json.Unmarshal(*req.Params, &p); err == nil {
		c.diags <- p
	}
}

func connect(t *testing.T) (*jsonrpc2.Conn, *client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverSide, clientSide := net.Pipe()
	go Serve(ctx, serverSide)

	c := &client{diags: make(chan PublishDiagnosticsParams, 8)}
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), c)
	t.Cleanup(func() { conn.Close() })
	return conn, c
}

func (c *client) wait(t *testing.T) PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-c.diags:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return PublishDiagnosticsParams{}
	}
}

func TestInitialize(t *testing.T) {
	conn, _ := connect(t)
	ctx := context.Background()

	var result InitializeResult
	if err := conn.Call(ctx, "initialize", InitializeParams{}, &result); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if result.Capabilities.TextDocumentSync != SyncFull || result.ServerInfo.Name != "godasm" {
		t.Errorf("unexpected result %+v", result)
	}

	err := conn.Call(ctx, "textDocument/hover", struct{}{}, nil)
	if e, ok := err.(*jsonrpc2.Error); !ok || e.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("expected method not found, got %v", err)
	}

	if err := conn.Call(ctx, "shutdown", nil, nil); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestDiagnostics(t *testing.T) {
	conn, c := connect(t)
	ctx := context.Background()

	uri := DocumentURI("file:///project/main.asm")
	err := conn.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text:    "\tORG $1000\n\tLDA #$100\n\tJMP NOWHERE\n",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	p := c.wait(t)
	if p.URI != uri || p.Version != 1 || len(p.Diagnostics) != 2 {
		t.Fatalf("unexpected diagnostics %+v", p)
	}
	d := p.Diagnostics[0]
	if d.Range.Start.Line != 1 || d.Severity != SeverityError || d.Message != "value out of range" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if d.Range.End.Character != len("\tLDA #$100") || d.Range.Start.Character > d.Range.End.Character {
		t.Errorf("unexpected range %+v", d.Range)
	}
	if p.Diagnostics[1].Range.Start.Line != 2 {
		t.Errorf("unexpected diagnostic %+v", p.Diagnostics[1])
	}

	err = conn.Notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "\tORG $1000\nSTART\tJMP START\n"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := c.wait(t); p.Version != 2 || len(p.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %+v", p)
	}

	err = conn.Notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := c.wait(t); p.URI != uri || len(p.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %+v", p)
	}
}

func TestOpenIncludes(t *testing.T) {
	conn, c := connect(t)
	ctx := context.Background()

	conn.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:  "file:///project/defs.h",
			Text: "VALUE = 5\n",
		},
	})
	c.wait(t)

	conn.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:  "file:///project/main.asm",
			Text: "\tINCLUDE \"defs.h\"\n\tLDA #VALUE\n",
		},
	})
	if p := c.wait(t); len(p.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %+v", p.Diagnostics)
	}
}

func TestConvertDiagnostics(t *testing.T) {
	doc := &document{filename: "main.asm", text: "\tNOP\n\tBAD\n"}
	diags := convertDiagnostics(doc, nil)
	if diags == nil || len(diags) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", diags)
	}
}
