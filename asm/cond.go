// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

type condState byte

const (
	condActive   condState = iota // assembling the current branch
	condInactive                  // skipping, a later branch may be taken
	condDone                      // skipping all remaining branches
)

// A condBlock tracks one level of IF/ELSE/ENDIF nesting.
type condBlock struct {
	state   condState
	hasElse bool
	site    fstring
}

type condStack []condBlock

// Return true if lines at the current nesting level are assembled.
func (s condStack) active() bool {
	return len(s) == 0 || s[len(s)-1].state == condActive
}

func isConditional(op string) bool {
	switch op {
	case "if", "ifconst", "ifnconst", "else", "endif", "eif":
		return true
	}
	return false
}

// Process a conditional-assembly directive. Directives are processed even
// inside inactive regions so that nesting is tracked.
func (a *assembler) conditional(ln *sourceLine) {
	switch ln.op() {
	case "if", "ifconst", "ifnconst":
		if !a.conds.active() {
			a.conds = append(a.conds, condBlock{state: condDone, site: ln.raw})
			return
		}
		state := condInactive
		if a.evalCondition(ln) {
			state = condActive
		}
		a.conds = append(a.conds, condBlock{state: state, site: ln.raw})
		a.logLine(ln.raw, "cond=%v", state == condActive)

	case "else":
		if len(a.conds) == 0 {
			a.addError(ln.mnemonic, "ELSE without IF")
			return
		}
		top := &a.conds[len(a.conds)-1]
		if top.hasElse {
			a.addError(ln.mnemonic, "duplicate ELSE")
			return
		}
		top.hasElse = true
		switch top.state {
		case condActive:
			top.state = condDone
		case condInactive:
			top.state = condActive
		}

	case "endif", "eif":
		if len(a.conds) == 0 {
			a.addError(ln.mnemonic, "ENDIF without IF")
			return
		}
		a.conds = a.conds[:len(a.conds)-1]
	}
}

// Evaluate the condition of an IF, IFCONST or IFNCONST directive.
//
// An IF whose condition resolves to a concrete value latches the branch
// taken. If a later pass resolves the same IF concretely to the opposite
// branch, the program cannot converge and an error is reported. An
// unresolved condition is treated as false until it resolves.
//
// IFCONST and IFNCONST never latch. A symbol that is not yet defined may
// be defined later in the pass, so the answer is tentative and another
// pass is requested.
func (a *assembler) evalCondition(ln *sourceLine) bool {
	e, err := a.parseExpr(ln.operand)
	if err != nil {
		return false
	}

	switch ln.op() {
	case "ifconst", "ifnconst":
		a.quiet = true
		v, err := e.eval(a)
		a.quiet = false
		if err != nil {
			a.addError(ln.operand, "%v", err)
			return false
		}
		if !v.resolved {
			a.unresolved = true
			a.markTentative(v)
		}
		return v.resolved == (ln.op() == "ifconst")
	}

	v, err := e.eval(a)
	if err != nil {
		a.addError(ln.operand, "%v", err)
		return false
	}
	a.markTentative(v)

	taken := v.resolved && v.n != 0
	latch, latched := a.latches[a.cur.site]
	switch {
	case !v.resolved:
		if latched {
			taken = latch
		}
	case v.tentative:
	case latched && latch != taken:
		a.addStickyError(ln.operand, "conditional changed between passes")
		taken = latch
	default:
		a.latches[a.cur.site] = taken
	}
	return taken
}
