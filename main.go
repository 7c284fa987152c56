// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/beevik/godasm/asm"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	outFile      string
	format       int
	listFile     string
	symbolFile   string
	sortByAddr   bool
	maxPasses    int
	includeDir   string
	defines      []string
	allowIllegal bool
	verbosity    int
)

var errFailed = errors.New("assembly failed")

var rootCmd = &cobra.Command{
	Use:   "godasm [flags] file...",
	Short: "A DASM-compatible 6502 cross-assembler",
	Long: `Godasm assembles 6502, 6507 and 65C02 source code written in DASM
syntax into a binary image, with an optional listing and symbol table.

When several source files are given they are assembled in parallel, and
each file's output is written next to it with a .bin extension. Listing
and symbol files are then named after the source with .lst and .sym
extensions.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return assembleFiles(args)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&outFile, "output", "o", "a.out", "output file")
	f.IntVarP(&format, "format", "f", int(asm.FormatDefault), "output format (1, 2 or 3)")
	f.StringVarP(&listFile, "listing", "l", "", "listing file")
	f.StringVarP(&symbolFile, "symbols", "s", "", "symbol file")
	f.BoolVarP(&sortByAddr, "sort-address", "T", false, "sort the symbol table by address")
	f.IntVarP(&maxPasses, "passes", "p", 10, "maximum number of passes")
	f.StringVarP(&includeDir, "include", "I", "", "include directory searched first")
	f.StringArrayVarP(&defines, "define", "D", nil, "define a symbol (NAME or NAME=value)")
	f.BoolVarP(&allowIllegal, "illegal", "i", false, "allow undocumented NMOS opcodes")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "verbosity level")
}

// Route glog output to stderr at the requested verbosity.
func initLogging() error {
	if err := flag.Set("logtostderr", "true"); err != nil {
		return err
	}
	if err := flag.Set("v", strconv.Itoa(verbosity)); err != nil {
		return err
	}
	return flag.CommandLine.Parse(nil)
}

func main() {
	err := rootCmd.Execute()
	glog.Flush()
	switch {
	case errors.Is(err, errFailed):
		os.Exit(1)
	case err != nil:
		exitOnError(err)
	}
}

// A job is the assembly of one source file.
type job struct {
	source  string
	output  string
	listing string
	symbols string
	out     bytes.Buffer // ECHO and verbose output
	report  bytes.Buffer // diagnostics and status
	ok      bool
}

func newJobs(files []string) []*job {
	jobs := make([]*job, len(files))
	for i, f := range files {
		j := &job{source: f, output: outFile, listing: listFile, symbols: symbolFile}
		if len(files) > 1 {
			prefix := strings.TrimSuffix(f, filepath.Ext(f))
			j.output = prefix + ".bin"
			if listFile != "" {
				j.listing = prefix + ".lst"
			}
			if symbolFile != "" {
				j.symbols = prefix + ".sym"
			}
		}
		jobs[i] = j
	}
	return jobs
}

func options() asm.Options {
	var params []string
	for _, d := range defines {
		params = append(params, "-D"+d)
	}
	return asm.Options{
		Format:        asm.Format(format),
		Listing:       listFile != "",
		Symbols:       symbolFile != "",
		SortByAddress: sortByAddr,
		MaxPasses:     maxPasses,
		AllowIllegal:  allowIllegal,
		IncludeDir:    includeDir,
		Parameters:    params,
	}
}

// Assemble each file, in parallel when there are several. Reports are
// printed in command-line order.
func assembleFiles(files []string) error {
	if format < 1 || format > 3 {
		return fmt.Errorf("invalid output format %d", format)
	}

	jobs := newJobs(files)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, j := range jobs {
		g.Go(func() error {
			opts := options()
			opts.Verbose = verbosity >= 3
			opts.Out = &j.out
			return j.run(opts)
		})
	}
	err := g.Wait()

	failed := false
	for _, j := range jobs {
		os.Stdout.Write(j.out.Bytes())
		os.Stderr.Write(j.report.Bytes())
		failed = failed || !j.ok
	}
	switch {
	case err != nil:
		return err
	case failed:
		return errFailed
	}
	return nil
}

// Assemble the job's source file and write its outputs. Assembly errors
// are recorded in the job's report; only I/O failures are returned.
func (j *job) run(opts asm.Options) error {
	glog.V(1).Infof("Assembling '%s'", j.source)
	r, err := asm.AssembleFile(j.source, opts)
	if err != nil {
		return err
	}

	for _, d := range r.Diagnostics {
		fmt.Fprintln(&j.report, d)
	}

	if j.listing != "" {
		if err := writeFile(j.listing, r.WriteListing); err != nil {
			return err
		}
	}
	if j.symbols != "" {
		if err := writeFile(j.symbols, r.WriteSymbols); err != nil {
			return err
		}
	}

	if !r.Success {
		fmt.Fprintf(&j.report, "Unrecoverable error(s) in '%s', no output written.\n", j.source)
		return nil
	}

	err = writeFile(j.output, func(w io.Writer) error {
		return r.WriteBinary(w, opts.Format)
	})
	if err != nil {
		return err
	}

	j.ok = true
	fmt.Fprintf(&j.report, "Complete. (%d passes) '%s' -> '%s'\n", r.Passes, j.source, j.output)
	return nil
}

func writeFile(filename string, write func(w io.Writer) error) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", filename, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write '%s': %w", filename, err)
	}
	return file.Close()
}
