// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// An fstring is a string that keeps track of its position within the
// file from which it was read.
type fstring struct {
	fileIndex int    // index of file in the assembly
	row       int    // 1-based line number of substring
	column    int    // 0-based column of start of substring
	str       string // the actual substring of interest
	full      string // the full line as originally read from the file
}

func newFstring(fileIndex, row int, str string) fstring {
	return fstring{fileIndex, row, 0, str, str}
}

func (l fstring) String() string {
	return l.str
}

func (l *fstring) advanceColumn(n int) int {
	c := l.column
	for i := 0; i < n; i++ {
		if l.str[i] == '\t' {
			c += 8 - (c % 8)
		} else {
			c++
		}
	}
	return c
}

func (l fstring) consume(n int) fstring {
	col := l.advanceColumn(n)
	return fstring{l.fileIndex, l.row, col, l.str[n:], l.full}
}

func (l fstring) trunc(n int) fstring {
	return fstring{l.fileIndex, l.row, l.column, l.str[:n], l.full}
}

func (l fstring) trimRight() fstring {
	return l.trunc(len(strings.TrimRight(l.str, " \t\r")))
}

func (l *fstring) isEmpty() bool {
	return len(l.str) == 0
}

func (l *fstring) startsWith(fn func(c byte) bool) bool {
	return len(l.str) > 0 && fn(l.str[0])
}

func (l *fstring) startsWithChar(c byte) bool {
	return len(l.str) > 0 && l.str[0] == c
}

func (l *fstring) startsWithString(s string) bool {
	return len(l.str) >= len(s) && l.str[:len(s)] == s
}

// Case-insensitive prefix test.
func (l *fstring) startsWithFold(s string) bool {
	return len(l.str) >= len(s) && strings.EqualFold(l.str[:len(s)], s)
}

func (l fstring) consumeWhitespace() fstring {
	return l.consume(l.scanWhile(whitespace))
}

func (l *fstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(l.str) && fn(l.str[i]); i++ {
	}
	return i
}

func (l *fstring) scanUntil(fn func(c byte) bool) int {
	i := 0
	for ; i < len(l.str) && !fn(l.str[i]); i++ {
	}
	return i
}

func (l *fstring) consumeWhile(fn func(c byte) bool) (consumed, remain fstring) {
	i := l.scanWhile(fn)
	consumed, remain = l.trunc(i), l.consume(i)
	return
}

func (l *fstring) consumeUntil(fn func(c byte) bool) (consumed, remain fstring) {
	i := l.scanUntil(fn)
	consumed, remain = l.trunc(i), l.consume(i)
	return
}

// Return the index just past the quoted literal starting at index i. A
// double-quoted literal must be closed on the same line. A single quote
// introduces a character literal, with the closing quote optional.
func (l *fstring) skipQuoted(i int) (end int, ok bool) {
	q := l.str[i]
	if q == '\'' {
		switch {
		case i+1 >= len(l.str):
			return len(l.str), false
		case i+2 < len(l.str) && l.str[i+2] == '\'':
			return i + 3, true
		default:
			return i + 2, true
		}
	}
	for j := i + 1; j < len(l.str); j++ {
		if l.str[j] == q {
			return j + 1, true
		}
	}
	return len(l.str), false
}

// Scan to the first occurrence of c that is outside a quoted literal.
func (l *fstring) scanUntilUnquotedChar(c byte) int {
	i := 0
	for i < len(l.str) {
		switch {
		case l.str[i] == c:
			return i
		case stringQuote(l.str[i]):
			i, _ = l.skipQuoted(i)
		default:
			i++
		}
	}
	return i
}

func (l *fstring) consumeUntilUnquotedChar(c byte) (consumed, remain fstring) {
	i := l.scanUntilUnquotedChar(c)
	consumed, remain = l.trunc(i), l.consume(i)
	return
}

// Split the string on unquoted separator characters, trimming whitespace
// from each field.
func (l fstring) splitUnquoted(sep byte) []fstring {
	var fields []fstring
	remain := l.consumeWhitespace()
	for {
		var field fstring
		field, remain = remain.consumeUntilUnquotedChar(sep)
		fields = append(fields, field.trimRight())
		if remain.isEmpty() {
			break
		}
		remain = remain.consume(1).consumeWhitespace()
	}
	return fields
}

// Remove a trailing comment and trailing whitespace. Returns the comment
// text, and false if a quoted literal is left unterminated.
func (l fstring) stripTrailingComment() (code fstring, comment string, ok bool) {
	ok = true
	i := 0
	for i < len(l.str) {
		c := l.str[i]
		if commentChar(c) {
			comment = l.str[i+1:]
			break
		}
		if stringQuote(c) {
			var closed bool
			i, closed = l.skipQuoted(i)
			if !closed {
				ok = false
			}
			continue
		}
		i++
	}
	return l.trunc(i).trimRight(), comment, ok
}

//
// character helper functions
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func wordChar(c byte) bool {
	return c != ' ' && c != '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return (c >= '0' && c <= '9')
}

func octal(c byte) bool {
	return (c >= '0' && c <= '7')
}

func commentChar(c byte) bool {
	return c == ';'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binarynum(c byte) bool {
	return c == '0' || c == '1'
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '.'
}

func identifierChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_' || c == '.'
}

func stringQuote(c byte) bool {
	return c == '"' || c == '\''
}
