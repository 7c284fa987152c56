// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server exposes the assembler to browser clients over a
// websocket. Clients connect to /ws and exchange JSON messages: an
// "assemble" request is answered with a "result" message, and a "ping"
// with a "pong".
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/beevik/godasm/asm"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// A Request is a message sent by a client.
type Request struct {
	Type    string            `json:"type"`
	ID      int               `json:"id,omitempty"`
	Source  string            `json:"source,omitempty"`
	Files   map[string]string `json:"files,omitempty"` // include files by path
	Options Options           `json:"options"`
}

// Options are the assembler options a client may select.
type Options struct {
	Filename      string   `json:"filename,omitempty"`
	Format        int      `json:"format,omitempty"`
	Listing       bool     `json:"listing,omitempty"`
	Symbols       bool     `json:"symbols,omitempty"`
	SortByAddress bool     `json:"sortByAddress,omitempty"`
	MaxPasses     int      `json:"maxPasses,omitempty"`
	AllowIllegal  bool     `json:"allowIllegal,omitempty"`
	Parameters    []string `json:"parameters,omitempty"`
	BigEndian     bool     `json:"bigEndian,omitempty"`
	FillGaps      bool     `json:"fillGaps,omitempty"`
	FillByte      byte     `json:"fillByte,omitempty"`
	Origin        int      `json:"origin,omitempty"`
}

// A Response is a message sent to a client.
type Response struct {
	Type        string       `json:"type"`
	ID          int          `json:"id,omitempty"`
	Success     bool         `json:"success,omitempty"`
	Output      []byte       `json:"output,omitempty"`
	Origin      int          `json:"origin,omitempty"`
	Passes      int          `json:"passes,omitempty"`
	Listing     string       `json:"listing,omitempty"`
	Symbols     string       `json:"symbols,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// A Diagnostic is the wire form of an assembler diagnostic.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Server is an http.Handler serving the assembler websocket.
type Server struct {
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a websocket assembler server.
func New() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.handleWebsocket)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves the assembler websocket on addr until the context
// is canceled.
func ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: New()}

	errc := make(chan error, 1)
	go func() {
		glog.Infof("Assembler server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	glog.V(1).Infof("Client %s connected", r.RemoteAddr)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				glog.Warningf("read from %s: %v", r.RemoteAddr, err)
			}
			break
		}

		if err := conn.WriteJSON(handleMessage(message)); err != nil {
			glog.Warningf("write to %s: %v", r.RemoteAddr, err)
			break
		}
	}
	glog.V(1).Infof("Client %s disconnected", r.RemoteAddr)
}

// Decode a client message and produce its response.
func handleMessage(message []byte) Response {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return Response{Type: "error", Error: fmt.Sprintf("invalid message: %v", err)}
	}

	switch req.Type {
	case "assemble":
		return assemble(&req)
	case "ping":
		return Response{Type: "pong", ID: req.ID}
	default:
		return Response{Type: "error", ID: req.ID, Error: fmt.Sprintf("unknown message type '%s'", req.Type)}
	}
}

// Assemble the request's source. Include files are resolved only from the
// files supplied with the request.
func assemble(req *Request) Response {
	files := make(asm.FileSet)
	for name, text := range req.Files {
		files[name] = []byte(text)
	}

	o := req.Options
	r := asm.Assemble(req.Source, asm.Options{
		Filename:      o.Filename,
		Format:        asm.Format(o.Format),
		Listing:       o.Listing,
		Symbols:       o.Symbols,
		SortByAddress: o.SortByAddress,
		MaxPasses:     o.MaxPasses,
		AllowIllegal:  o.AllowIllegal,
		Parameters:    o.Parameters,
		BigEndian:     o.BigEndian,
		FillGaps:      o.FillGaps,
		FillByte:      o.FillByte,
		Origin:        o.Origin,
		Resolver:      files,
	})

	resp := Response{
		Type:    "result",
		ID:      req.ID,
		Success: r.Success,
		Output:  r.Output,
		Origin:  r.Origin,
		Passes:  r.Passes,
	}
	for _, d := range r.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
			File:     d.File,
			Line:     d.Line,
			Column:   d.Column,
			Severity: d.Severity.String(),
			Message:  d.Message,
		})
	}

	if o.Listing {
		var b bytes.Buffer
		r.WriteListing(&b)
		resp.Listing = b.String()
	}
	if o.Symbols {
		var b bytes.Buffer
		r.WriteSymbols(&b)
		resp.Symbols = b.String()
	}
	return resp
}
