// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lsp implements a language server that assembles open documents
// and publishes the assembler's diagnostics to the editor.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/godasm/asm"
	"github.com/golang/glog"
	"github.com/sourcegraph/jsonrpc2"
)

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// Serve runs a language server session over a stream. It returns when the
// client disconnects or the context is canceled.
func Serve(ctx context.Context, rwc io.ReadWriteCloser) {
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), newHandler())
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
}

// ServeStdio runs a language server session over stdin and stdout.
func ServeStdio(ctx context.Context) {
	Serve(ctx, stdrwc{})
}

// ListenAndServeTCP accepts language server connections on addr until the
// context is canceled. Each connection is served on its own goroutine.
func ListenAndServeTCP(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not bind to address %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	glog.Infof("Language server listening for TCP connections on %s", addr)
	for id := 1; ; id++ {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		glog.V(1).Infof("Language server connection #%d opened", id)
		go func(id int) {
			Serve(ctx, conn)
			glog.V(1).Infof("Language server connection #%d closed", id)
		}(id)
	}
}

// A document is a source file open in the editor.
type document struct {
	uri      DocumentURI
	filename string
	version  int
	text     string
}

// A handler holds the state of a single language server connection.
// Requests on a connection are handled one at a time.
type handler struct {
	docs map[DocumentURI]*document
}

func newHandler() *handler {
	return &handler{docs: make(map[DocumentURI]*document)}
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	glog.V(2).Infof("Language server request: %s", req.Method)

	var err error
	switch req.Method {
	case "initialize":
		err = conn.Reply(ctx, req.ID, InitializeResult{
			Capabilities: ServerCapabilities{TextDocumentSync: SyncFull},
			ServerInfo:   ServerInfo{Name: "godasm"},
		})
	case "initialized":
	case "textDocument/didOpen":
		var p DidOpenTextDocumentParams
		if err = decodeParams(req, &p); err == nil {
			d := &document{
				uri:      p.TextDocument.URI,
				filename: uriToFilename(p.TextDocument.URI),
				version:  p.TextDocument.Version,
				text:     p.TextDocument.Text,
			}
			h.docs[d.uri] = d
			err = h.publish(ctx, conn, d)
		}
	case "textDocument/didChange":
		var p DidChangeTextDocumentParams
		if err = decodeParams(req, &p); err == nil {
			d, ok := h.docs[p.TextDocument.URI]
			if !ok || len(p.ContentChanges) == 0 {
				return
			}
			d.version = p.TextDocument.Version
			d.text = p.ContentChanges[len(p.ContentChanges)-1].Text
			err = h.publish(ctx, conn, d)
		}
	case "textDocument/didClose":
		var p DidCloseTextDocumentParams
		if err = decodeParams(req, &p); err == nil {
			delete(h.docs, p.TextDocument.URI)
			err = conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
				URI:         p.TextDocument.URI,
				Diagnostics: []Diagnostic{},
			})
		}
	case "shutdown":
		err = conn.Reply(ctx, req.ID, nil)
	case "exit":
		err = conn.Close()
	default:
		if !req.Notif {
			err = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeMethodNotFound,
				Message: fmt.Sprintf("method not supported: %s", req.Method),
			})
		}
	}

	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		glog.Warningf("Language server %s: %v", req.Method, err)
		if !req.Notif {
			conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInvalidParams,
				Message: err.Error(),
			})
		}
	}
}

var errMissingParams = errors.New("missing parameters")

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errMissingParams
	}
	return json.Unmarshal(*req.Params, v)
}

// Assemble a document and publish its diagnostics.
func (h *handler) publish(ctx context.Context, conn *jsonrpc2.Conn, d *document) error {
	r := asm.Assemble(d.text, asm.Options{
		Filename: d.filename,
		Resolver: &docResolver{docs: h.docs},
	})
	return conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         d.uri,
		Version:     d.version,
		Diagnostics: convertDiagnostics(d, r.Diagnostics),
	})
}

// Convert assembler diagnostics to protocol diagnostics. Diagnostics
// raised in included files are reported on the first line of the
// document.
func convertDiagnostics(d *document, diags []asm.Diagnostic) []Diagnostic {
	lines := strings.Split(d.text, "\n")
	result := []Diagnostic{}
	for _, ad := range diags {
		var rng Range
		msg := ad.Message
		switch {
		case ad.Line > 0 && ad.File == d.filename:
			line := ad.Line - 1
			start, end := max(ad.Column-1, 0), 0
			if line < len(lines) {
				end = len(strings.TrimRight(lines[line], "\r"))
			}
			start = min(start, end)
			rng = Range{Start: Position{line, start}, End: Position{line, end}}
		case ad.Line > 0:
			msg = fmt.Sprintf("%s:%d: %s", ad.File, ad.Line, ad.Message)
		}

		result = append(result, Diagnostic{
			Range:    rng,
			Severity: severity(ad.Severity),
			Source:   "godasm",
			Message:  msg,
		})
	}
	return result
}

func severity(s asm.Severity) int {
	switch s {
	case asm.SeverityWarning:
		return SeverityWarning
	case asm.SeverityInfo:
		return SeverityInformation
	default:
		return SeverityError
	}
}

// Return the file name identified by a document URI. URIs that do not
// name a local file are used as-is.
func uriToFilename(uri DocumentURI) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

// A docResolver resolves include files from the documents open in the
// editor, falling back to the file system.
type docResolver struct {
	docs map[DocumentURI]*document
}

func (r *docResolver) Resolve(name, baseDir string, binary bool) ([]byte, error) {
	p := filepath.ToSlash(name)
	if !path.IsAbs(p) {
		p = path.Join(filepath.ToSlash(baseDir), p)
	}
	if !binary {
		for _, d := range r.docs {
			if filepath.ToSlash(d.filename) == p {
				return []byte(d.text), nil
			}
		}
	}
	return asm.DirResolver{}.Resolve(name, baseDir, binary)
}
