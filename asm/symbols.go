// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"slices"
	"strings"
)

// A value is the result of evaluating an expression during a pass.
type value struct {
	n         int
	resolved  bool // every symbol in the expression had a value
	tentative bool // derived from a value that may still change
}

// Return true if the value is resolved and fits in a byte.
func (v value) isByte() bool {
	return v.resolved && v.n >= 0 && v.n <= 0xff
}

// Return true if the value is resolved and no longer subject to change.
func (v value) concrete() bool {
	return v.resolved && !v.tentative
}

func combine(a, b value, n int) value {
	return value{
		n:         n,
		resolved:  a.resolved && b.resolved,
		tentative: a.tentative || b.tentative,
	}
}

// SymbolKind describes how a symbol was defined.
type SymbolKind byte

// Symbol kinds
const (
	KindLabel    SymbolKind = iota // address label
	KindConstant                   // EQU or = definition
	KindVariable                   // SET definition, may be reassigned
)

func (k SymbolKind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	default:
		return "label"
	}
}

type symbol struct {
	name        string
	value       int
	kind        SymbolKind
	resolved    bool
	tentative   bool
	referenced  bool
	pseudo      bool // defined on the command line
	definedPass int  // most recent pass in which the symbol was defined
	site        fstring
}

var (
	errRedefined = fmt.Errorf("symbol redefined")
	errMismatch  = fmt.Errorf("value mismatch from previous pass")
)

// A symbolTable holds all symbols defined by the program. It survives
// across passes and tracks whether any symbol changed during the
// current pass.
type symbolTable struct {
	syms    map[string]*symbol
	pass    int
	changed bool
}

func newSymbolTable() *symbolTable {
	return &symbolTable{syms: make(map[string]*symbol)}
}

// Begin a new pass.
func (t *symbolTable) beginPass(pass int) {
	t.pass = pass
	t.changed = false
}

// Define a symbol. A symbol may be defined only once per pass unless it is
// a variable. A symbol that held a concrete value in an earlier pass may
// only be redefined with the same value.
func (t *symbolTable) define(name string, v value, kind SymbolKind, site fstring) error {
	s, ok := t.syms[name]
	if !ok {
		t.syms[name] = &symbol{
			name:        name,
			value:       v.n,
			kind:        kind,
			resolved:    v.resolved,
			tentative:   v.tentative,
			definedPass: t.pass,
			site:        site,
		}
		if t.pass > 1 && kind != KindVariable {
			t.changed = true
		}
		return nil
	}

	if s.pseudo {
		return nil
	}

	if s.definedPass == t.pass && !(kind == KindVariable && s.kind == KindVariable) {
		switch {
		case s.resolved && v.resolved && s.value != v.n:
			return errRedefined
		case s.resolved || !v.resolved:
			return nil
		}
	}

	if s.definedPass < t.pass && kind != KindVariable {
		if s.resolved && !s.tentative && v.concrete() && s.value != v.n {
			return errMismatch
		}
	}

	if kind != KindVariable && (s.resolved != v.resolved || s.value != v.n) {
		t.changed = true
	}
	s.value = v.n
	s.kind = kind
	s.resolved = v.resolved
	s.tentative = v.tentative
	s.definedPass = t.pass
	s.site = site
	return nil
}

// Define a symbol supplied outside the source code.
func (t *symbolTable) definePseudo(name string, n int) {
	t.syms[name] = &symbol{
		name:     name,
		value:    n,
		kind:     KindConstant,
		resolved: true,
		pseudo:   true,
	}
}

// Look up a symbol's current value and mark it referenced.
func (t *symbolTable) lookup(name string) (value, bool) {
	s, ok := t.syms[name]
	if !ok {
		return value{}, false
	}
	s.referenced = true
	return value{n: s.value, resolved: s.resolved, tentative: s.tentative}, true
}

// Mark every symbol's value as final. Called once the passes converge.
func (t *symbolTable) settle() {
	for _, s := range t.syms {
		s.tentative = false
	}
}

// Return the value of every resolved symbol.
func (t *symbolTable) values() map[string]int {
	m := make(map[string]int, len(t.syms))
	for _, s := range t.syms {
		if s.resolved {
			m[s.name] = s.value
		}
	}
	return m
}

// A SymbolRecord describes a symbol in the assembled program.
type SymbolRecord struct {
	Name       string
	Value      int
	Kind       SymbolKind
	Resolved   bool
	Referenced bool
	Pseudo     bool // defined on the command line
}

// Return records of all symbols, sorted by name or by value.
func (t *symbolTable) records(byAddress bool) []SymbolRecord {
	recs := make([]SymbolRecord, 0, len(t.syms))
	for _, s := range t.syms {
		recs = append(recs, SymbolRecord{
			Name:       s.name,
			Value:      s.value,
			Kind:       s.kind,
			Resolved:   s.resolved,
			Referenced: s.referenced,
			Pseudo:     s.pseudo,
		})
	}
	slices.SortFunc(recs, func(a, b SymbolRecord) int {
		if byAddress && a.Value != b.Value {
			return a.Value - b.Value
		}
		return strings.Compare(a.Name, b.Name)
	})
	return recs
}
