// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated string")

// A sourceLine holds the fields of a single line of assembly code.
type sourceLine struct {
	raw      fstring // the complete line
	label    fstring // label field, without any trailing colon
	mnemonic fstring // mnemonic or pseudo-op, without its extension
	ext      string  // lower-case mnemonic extension (e.g., "w" for LDA.w)
	operand  fstring // everything following the mnemonic
	comment  string  // trailing comment text
}

// Return the lower-case mnemonic.
func (ln *sourceLine) op() string {
	return strings.ToLower(ln.mnemonic.str)
}

func (ln *sourceLine) isEmpty() bool {
	return ln.label.isEmpty() && ln.mnemonic.isEmpty()
}

// Split a line into label, mnemonic, operand and comment fields. The
// isKeyword function reports whether a word names a mnemonic, pseudo-op
// or macro; a keyword in column 0 is not a label. A line with an
// unterminated string is returned without an operand along with
// errUnterminated.
func tokenize(raw fstring, isKeyword func(name string) bool) (ln sourceLine, err error) {
	ln.raw = raw
	if raw.startsWithChar('*') || raw.startsWith(commentChar) {
		ln.comment = raw.str[1:]
		return ln, nil
	}

	code, comment, ok := raw.stripTrailingComment()
	ln.comment = comment
	if !ok {
		err = errUnterminated
	}

	indented := code.startsWith(whitespace)
	line := code.consumeWhitespace()
	if line.isEmpty() {
		return ln, err
	}

	// Handle the compact "NAME=expr" assignment form.
	first, rest := line.consumeUntil(whitespace)
	if n := strings.IndexByte(first.str, '='); n > 0 {
		ln.label = line.trunc(n)
		ln.mnemonic = line.consume(n).trunc(1)
		ln.operand = line.consume(n + 1).consumeWhitespace()
		return ln.finish(err)
	}

	rest = rest.consumeWhitespace()
	switch {
	case strings.HasSuffix(first.str, ":"):
		ln.label = first.trunc(len(first.str) - 1)
	case !indented && !isKeyword(baseName(first.str)):
		ln.label = first
	case indented && isAssignment(rest):
		ln.label = first
	default:
		ln.mnemonic, ln.operand = first, rest
		return ln.finish(err)
	}

	ln.mnemonic, rest = rest.consumeUntil(whitespace)
	ln.operand = rest.consumeWhitespace()
	return ln.finish(err)
}

// Split the extension from the mnemonic and drop the operand of a line
// that failed to lex.
func (ln sourceLine) finish(err error) (sourceLine, error) {
	if i := strings.IndexByte(ln.mnemonic.str, '.'); i > 0 {
		ln.ext = strings.ToLower(ln.mnemonic.str[i+1:])
		ln.mnemonic = ln.mnemonic.trunc(i)
	}
	if err != nil {
		ln.operand = ln.operand.trunc(0)
	}
	return ln, err
}

// Return the name of a mnemonic with any extension removed.
func baseName(word string) string {
	if i := strings.IndexByte(word, '.'); i > 0 {
		return word[:i]
	}
	return word
}

// Return true if the next word on the line is an assignment pseudo-op.
func isAssignment(l fstring) bool {
	word, _ := l.consumeUntil(whitespace)
	switch strings.ToLower(word.str) {
	case "=", "equ", ".equ", ".eq", "set", ".set":
		return true
	}
	return false
}
