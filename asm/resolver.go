// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by a Resolver when a requested file does not
// exist.
var ErrNotFound = errors.New("file not found")

// A Resolver supplies the contents of files named by INCLUDE and INCBIN
// directives. The name is interpreted relative to baseDir unless it is
// absolute. The binary flag is true for INCBIN requests.
type Resolver interface {
	Resolve(name, baseDir string, binary bool) ([]byte, error)
}

// Return the path identifying a file named relative to a directory.
func joinPath(baseDir, name string) string {
	name = filepath.ToSlash(name)
	if path.IsAbs(name) || baseDir == "" {
		return path.Clean(name)
	}
	return path.Join(filepath.ToSlash(baseDir), name)
}

// A FileSet is an in-memory collection of files keyed by slash-separated
// path. It is useful for assembling programs that do not live on disk.
type FileSet map[string][]byte

// Resolve returns the contents of the named file.
func (s FileSet) Resolve(name, baseDir string, binary bool) ([]byte, error) {
	p := joinPath(baseDir, name)
	if b, ok := s[p]; ok {
		return b, nil
	}
	if b, ok := s[strings.TrimPrefix(p, "./")]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}

// A DirResolver reads files from the operating system's file system.
// Relative base directories are interpreted relative to Root, or to the
// working directory if Root is empty.
type DirResolver struct {
	Root string
}

// Resolve returns the contents of the named file.
func (d DirResolver) Resolve(name, baseDir string, binary bool) ([]byte, error) {
	p := filepath.FromSlash(joinPath(baseDir, name))
	if d.Root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(d.Root, p)
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Find a file by searching each include directory in order, followed by
// the directory of the including file. Returns the identifying path of the
// file found along with its contents.
func (a *assembler) resolve(name string, f *frame, binary bool) (string, []byte, error) {
	dirs := make([]string, 0, len(f.incdirs)+1)
	dirs = append(dirs, f.incdirs...)
	dirs = append(dirs, f.dir)

	for _, dir := range dirs {
		p := joinPath(dir, name)
		if b, ok := a.fileCache[p]; ok {
			return p, b, nil
		}
		b, err := a.resolver.Resolve(name, dir, binary)
		switch {
		case err == nil:
			a.fileCache[p] = b
			return p, b, nil
		case !errors.Is(err, ErrNotFound):
			return p, nil, err
		}
	}
	return "", nil, ErrNotFound
}
