// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beevik/godasm/host"
	"github.com/beevik/godasm/lsp"
	"github.com/beevik/godasm/server"
	"github.com/beevik/term"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	lspAddr   string
)

var shellCmd = &cobra.Command{
	Use:   "shell [script...]",
	Short: "Run the interactive assembler shell",
	Long: `Shell runs the commands contained in each script file and then
accepts commands from standard input. The shell assembles files or
interactively entered code, and inspects the resulting image with the
disassembler, memory dump, source listing and symbol table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := host.New()
		for _, filename := range args {
			file, err := os.Open(filename)
			if err != nil {
				return err
			}
			h.RunCommands(file, os.Stdout, false)
			file.Close()
		}
		h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve assembly requests over a websocket",
	Long: `Serve accepts websocket connections on /ws. Each JSON request
carries source text, the include files it may reference and assembler
options. Each response carries the assembled output, listing, symbol
table and diagnostics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return server.ListenAndServe(ctx, serveAddr)
	},
}

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server",
	Long: `Lsp runs a language server that assembles the documents open in
an editor and publishes their diagnostics. The server communicates over
standard input and output unless a TCP address is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		if lspAddr != "" {
			return lsp.ListenAndServeTCP(ctx, lspAddr)
		}
		glog.V(1).Info("Language server running on stdio")
		lsp.ServeStdio(ctx)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":6502", "address to listen on")
	lspCmd.Flags().StringVar(&lspAddr, "tcp", "", "listen for TCP connections on this address")

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lspCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
