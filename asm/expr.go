// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var errDivideByZero = errors.New("division by zero")

//
// exprOp
//

type exprOp byte

const (
	// unary operations
	opNegate exprOp = iota
	opIdentity
	opBitwiseNOT
	opLogicalNOT
	opLowByte
	opHighByte

	// binary operations
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opShiftLeft
	opShiftRight
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opEqual
	opEqualAlt
	opNotEqual
	opBitwiseAND
	opBitwiseXOR
	opBitwiseOR
	opLogicalAND
	opLogicalOR

	// value "operations"
	opNumber
	opIdentifier
	opHere

	// pseudo-operations (used only during parsing but not stored in expr's)
	opLeftParen
	opLeftBracket
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
	eval            func(a, b int) int
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var ops = []opdata{
	// unary operations
	{11, false, false, "-", func(a, b int) int { return -a }},
	{11, false, false, "+", func(a, b int) int { return a }},
	{11, false, false, "~", func(a, b int) int { return ^a }},
	{11, false, false, "!", func(a, b int) int { return boolInt(a == 0) }},
	{11, false, false, "<", func(a, b int) int { return a & 0xff }},
	{11, false, false, ">", func(a, b int) int { return (a >> 8) & 0xff }},

	// binary operations
	{10, true, true, "*", func(a, b int) int { return a * b }},
	{10, true, true, "/", func(a, b int) int { return a / b }},
	{10, true, true, "%", func(a, b int) int { return a % b }},
	{9, true, true, "+", func(a, b int) int { return a + b }},
	{9, true, true, "-", func(a, b int) int { return a - b }},
	{8, true, true, "<<", func(a, b int) int { return a << shiftCount(b) }},
	{8, true, true, ">>", func(a, b int) int { return a >> shiftCount(b) }},
	{7, true, true, "<", func(a, b int) int { return boolInt(a < b) }},
	{7, true, true, "<=", func(a, b int) int { return boolInt(a <= b) }},
	{7, true, true, ">", func(a, b int) int { return boolInt(a > b) }},
	{7, true, true, ">=", func(a, b int) int { return boolInt(a >= b) }},
	{6, true, true, "==", func(a, b int) int { return boolInt(a == b) }},
	{6, true, true, "=", func(a, b int) int { return boolInt(a == b) }},
	{6, true, true, "!=", func(a, b int) int { return boolInt(a != b) }},
	{5, true, true, "&", func(a, b int) int { return a & b }},
	{4, true, true, "^", func(a, b int) int { return a ^ b }},
	{3, true, true, "|", func(a, b int) int { return a | b }},
	{2, true, true, "&&", func(a, b int) int { return boolInt(a != 0 && b != 0) }},
	{1, true, true, "||", func(a, b int) int { return boolInt(a != 0 || b != 0) }},

	// value operations
	{0, false, false, "", nil}, // number
	{0, false, false, "", nil}, // identifier
	{0, false, false, "", nil}, // here

	// pseudo-operations
	{0, false, false, "(", nil},
	{0, false, false, "[", nil},
}

func shiftCount(b int) uint {
	if b < 0 {
		return 0
	}
	if b > 63 {
		return 63
	}
	return uint(b)
}

// Operator candidates for each token position, longest symbols first.
var unaryOps, binaryOps []exprOp

func init() {
	for i, o := range ops {
		switch {
		case o.eval == nil:
		case o.binary:
			binaryOps = append(binaryOps, exprOp(i))
		default:
			unaryOps = append(unaryOps, exprOp(i))
		}
	}
	sort.SliceStable(binaryOps, func(i, j int) bool {
		return len(ops[binaryOps[i]].symbol) > len(ops[binaryOps[j]].symbol)
	})
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

func (op exprOp) symbol() string {
	return ops[op].symbol
}

func (op exprOp) isCollapsible() bool {
	return ops[op].precedence > 0
}

// Compare the precendence and associativity of 'op' to 'other'.
// Return true if the shunting yard algorithm should cause an
// expression node collapse.
func (op exprOp) collapses(other exprOp) bool {
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[other].precedence
	}
	return ops[op].precedence < ops[other].precedence
}

//
// expr
//

// An expr represents a single node in a binary expression tree.
// The root node represents an entire expression.
type expr struct {
	op         exprOp
	number     int
	identifier fstring // symbol name as written
	symbol     string  // symbol name after local scoping
	child0     *expr
	child1     *expr
}

// Return the expression as a postfix notation string.
func (e *expr) String() string {
	switch {
	case e.op == opNumber:
		return fmt.Sprintf("%d", e.number)
	case e.op == opIdentifier:
		return e.symbol
	case e.op == opHere:
		return "."
	case e.op.isBinary():
		return fmt.Sprintf("%s %s %s", e.child0.String(), e.child1.String(), e.op.symbol())
	default:
		return fmt.Sprintf("%s [%s]", e.child0.String(), e.op.symbol())
	}
}

// An evalContext supplies the values of identifiers and the program
// counter to an expression.
type evalContext interface {
	symbolValue(e *expr) (value, error)
	here() value
}

// Evaluate the expression tree.
func (e *expr) eval(ctx evalContext) (value, error) {
	switch {
	case e.op == opNumber:
		return value{n: e.number, resolved: true}, nil

	case e.op == opIdentifier:
		return ctx.symbolValue(e)

	case e.op == opHere:
		return ctx.here(), nil

	case e.op.isBinary():
		a, err := e.child0.eval(ctx)
		if err != nil {
			return value{}, err
		}
		b, err := e.child1.eval(ctx)
		if err != nil {
			return value{}, err
		}
		if !a.resolved || !b.resolved {
			return combine(a, b, 0), nil
		}
		if (e.op == opDivide || e.op == opModulo) && b.n == 0 {
			return value{}, errDivideByZero
		}
		return combine(a, b, ops[e.op].eval(a.n, b.n)), nil

	default:
		a, err := e.child0.eval(ctx)
		if err != nil || !a.resolved {
			return a, err
		}
		a.n = ops[e.op].eval(a.n, 0)
		return a, nil
	}
}

//
// token
//

type tokentype byte

const (
	tokenNil tokentype = iota
	tokenOp
	tokenNumber
	tokenIdentifier
	tokenHere
	tokenLeftParen
	tokenRightParen
)

func (tt tokentype) isValue() bool {
	return tt == tokenNumber || tt == tokenIdentifier || tt == tokenHere
}

type token struct {
	tt         tokentype
	number     int
	identifier fstring
	op         exprOp
	closer     byte
}

//
// exprParser
//

type exprParser struct {
	operandStack  exprStack
	operatorStack opStack
	prevToken     token
	scope         func(name string) string
	errors        []asmerror
}

// Parse an expression from the line until it is exhausted. The scope
// function maps local symbol names to their scoped names.
func (p *exprParser) parse(line fstring, scope func(name string) string) (e *expr, err error) {
	p.errors = nil
	p.prevToken = token{}
	p.scope = scope
	defer p.reset()

	if line.isEmpty() {
		p.addError(line, "missing expression")
		return nil, errParse
	}

	// Process expression using Dijkstra's shunting-yard algorithm
	for err == nil {
		var t token
		var out fstring
		t, out, err = p.parseToken(line)
		if err != nil || t.tt == tokenNil {
			break
		}

		switch t.tt {
		case tokenNumber:
			p.operandStack.push(&expr{op: opNumber, number: t.number})

		case tokenIdentifier:
			p.operandStack.push(&expr{op: opIdentifier, identifier: t.identifier, symbol: p.scope(t.identifier.str)})

		case tokenHere:
			p.operandStack.push(&expr{op: opHere})

		case tokenOp:
			for err == nil && !p.operatorStack.empty() && t.op.collapses(p.operatorStack.peek()) {
				err = p.operandStack.collapse(p.operatorStack.pop())
				if err != nil {
					p.addError(line, "expression syntax error")
				}
			}
			p.operatorStack.push(t.op)

		case tokenLeftParen:
			p.operatorStack.push(t.op)

		case tokenRightParen:
			open := opLeftParen
			if t.closer == ']' {
				open = opLeftBracket
			}
			for err == nil {
				if p.operatorStack.empty() {
					p.addError(line, "mismatched parentheses")
					err = errParse
					break
				}
				op := p.operatorStack.pop()
				if op == opLeftParen || op == opLeftBracket {
					if op != open {
						p.addError(line, "mismatched parentheses")
						err = errParse
					}
					break
				}
				err = p.operandStack.collapse(op)
				if err != nil {
					p.addError(line, "expression syntax error")
				}
			}
		}
		line = out
	}

	// Collapse any operators (and operands) remaining on the stack
	for err == nil && !p.operatorStack.empty() {
		op := p.operatorStack.pop()
		if op == opLeftParen || op == opLeftBracket {
			p.addError(line, "mismatched parentheses")
			err = errParse
			break
		}
		err = p.operandStack.collapse(op)
		if err != nil {
			p.addError(line, "expression syntax error")
		}
	}

	if err == nil {
		if len(p.operandStack.data) != 1 {
			p.addError(line, "expression syntax error")
			return nil, errParse
		}
		e = p.operandStack.peek()
	}
	return e, err
}

// Attempt to parse the next token from the line.
func (p *exprParser) parseToken(line fstring) (t token, out fstring, err error) {
	line = line.consumeWhitespace()
	if line.isEmpty() {
		t.tt, out = tokenNil, line
		return
	}

	afterValue := p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen

	switch {
	case afterValue:
		// Only a closing bracket or a binary operator may follow a value.
		switch {
		case line.startsWithChar(')') || line.startsWithChar(']'):
			t.tt, t.closer, out = tokenRightParen, line.str[0], line.consume(1)
		default:
			for _, op := range binaryOps {
				if line.startsWithString(op.symbol()) {
					t.tt, t.op, out = tokenOp, op, line.consume(len(op.symbol()))
					break
				}
			}
			if t.tt != tokenOp {
				p.addError(line, "expression syntax error")
				err = errParse
			}
		}

	case line.startsWithChar('(') || line.startsWithChar('['):
		t.tt, out = tokenLeftParen, line.consume(1)
		t.op = opLeftParen
		if line.str[0] == '[' {
			t.op = opLeftBracket
		}

	case line.startsWithChar('\'') || line.startsWithChar('"'):
		t.tt = tokenNumber
		t.number, out, err = p.parseChar(line)

	case line.startsWith(decimal):
		// A run of digits followed by '$' is a temporary label.
		digits, rest := line.consumeWhile(decimal)
		if rest.startsWithChar('$') {
			t.tt = tokenIdentifier
			t.identifier, out = line.trunc(len(digits.str)+1), rest.consume(1)
			break
		}
		t.tt = tokenNumber
		t.number, out, err = p.parseNumber(line)

	case line.startsWithChar('$'):
		if next := line.consume(1); !next.startsWith(hexadecimal) {
			t.tt, out = tokenHere, next
			break
		}
		t.tt = tokenNumber
		t.number, out, err = p.parseNumber(line)

	case line.startsWithChar('%'):
		if next := line.consume(1); !next.startsWith(binarynum) {
			p.addError(line, "expression syntax error")
			err = errParse
			break
		}
		t.tt = tokenNumber
		t.number, out, err = p.parseNumber(line)

	case line.startsWithChar('*'):
		t.tt, out = tokenHere, line.consume(1)

	case line.startsWithChar('.') && (len(line.str) == 1 || !identifierChar(line.str[1])):
		t.tt, out = tokenHere, line.consume(1)

	case line.startsWith(identifierStartChar):
		t.tt = tokenIdentifier
		t.identifier, out = line.consumeWhile(identifierChar)

	default:
		for _, op := range unaryOps {
			if line.startsWithString(op.symbol()) {
				t.tt, t.op, out = tokenOp, op, line.consume(len(op.symbol()))
				break
			}
		}
		if t.tt != tokenOp {
			p.addError(line, "expression syntax error")
			err = errParse
		}
	}

	p.prevToken = t
	return
}

// Parse a character literal. Both 'A' and the unterminated 'A form are
// accepted, as is a single-character double-quoted string.
func (p *exprParser) parseChar(line fstring) (n int, remain fstring, err error) {
	end, ok := line.skipQuoted(0)
	lit := line.str[1:end]
	if len(lit) > 0 && lit[len(lit)-1] == line.str[0] {
		lit = lit[:len(lit)-1]
	}
	if !ok || len(lit) != 1 {
		p.addError(line, "invalid character literal")
		return 0, line.consume(end), errParse
	}
	return int(lit[0]), line.consume(end), nil
}

// Parse a number from the line. The following numeric formats are allowed:
//
//	[1-9][0-9]*      Decimal number
//	0[0-7]*          Octal number
//	$[0-9a-fA-F]+    Hexadecimal number
//	0x[0-9a-fA-F]+   Hexadecimal number
//	%[01]+           Binary number
//	0b[01]+          Binary number
func (p *exprParser) parseNumber(line fstring) (value int, remain fstring, err error) {
	base, fn := 10, decimal
	switch {
	case line.startsWithChar('$'):
		line = line.consume(1)
		base, fn = 16, hexadecimal
	case line.startsWithChar('%'):
		line = line.consume(1)
		base, fn = 2, binarynum
	case line.startsWithFold("0x") && len(line.str) > 2 && hexadecimal(line.str[2]):
		line = line.consume(2)
		base, fn = 16, hexadecimal
	case line.startsWithFold("0b") && len(line.str) > 2 && binarynum(line.str[2]):
		line = line.consume(2)
		base, fn = 2, binarynum
	case line.startsWithChar('0'):
		base, fn = 8, octal
	}

	// Consume the number and update the remaining line
	numstr, remain := line.consumeWhile(fn)
	if remain.startsWith(identifierChar) {
		p.addError(remain, "invalid numeric literal")
		return 0, remain, errParse
	}

	num64, converr := strconv.ParseInt(numstr.str, base, 64)
	if converr != nil {
		p.addError(numstr, "failed to parse integer")
		return 0, remain, errParse
	}
	return int(num64), remain, nil
}

func (p *exprParser) addError(line fstring, msg string) {
	p.errors = append(p.errors, asmerror{line, msg})
}

func (p *exprParser) reset() {
	p.operandStack.data, p.operatorStack.data = nil, nil
}

//
// exprStack
//

type exprStack struct {
	data []*expr
}

func (s *exprStack) empty() bool {
	return len(s.data) == 0
}

func (s *exprStack) push(e *expr) {
	s.data = append(s.data, e)
}

func (s *exprStack) pop() *expr {
	l := len(s.data)
	e := s.data[l-1]
	s.data = s.data[:l-1]
	return e
}

func (s *exprStack) peek() *expr {
	if len(s.data) == 0 {
		return nil
	}
	return s.data[len(s.data)-1]
}

// Collapse one or more expression nodes on the top of the
// stack into a combined expression node, and push the combined
// node back onto the stack.
func (s *exprStack) collapse(op exprOp) error {
	switch {
	case !op.isCollapsible():
		return errParse
	case op.isBinary():
		if len(s.data) < 2 {
			return errParse
		}
		s.push(&expr{op: op, child1: s.pop(), child0: s.pop()})
	default:
		if s.empty() {
			return errParse
		}
		s.push(&expr{op: op, child0: s.pop()})
	}
	return nil
}

//
// opStack
//

type opStack struct {
	data []exprOp
}

func (s *opStack) push(op exprOp) {
	s.data = append(s.data, op)
}

func (s *opStack) pop() exprOp {
	op := s.data[len(s.data)-1]
	s.data = s.data[0 : len(s.data)-1]
	return op
}

func (s *opStack) empty() bool {
	return len(s.data) == 0
}

func (s *opStack) peek() exprOp {
	return s.data[len(s.data)-1]
}

//
// Standalone evaluation
//

// A symbolMap evaluates expressions against a fixed set of symbols.
type symbolMap struct {
	pc      int
	symbols map[string]int
}

func (m *symbolMap) symbolValue(e *expr) (value, error) {
	if v, ok := m.symbols[e.symbol]; ok {
		return value{n: v, resolved: true}, nil
	}
	return value{}, fmt.Errorf("undefined symbol '%s'", e.symbol)
}

func (m *symbolMap) here() value {
	return value{n: m.pc, resolved: true}
}

// Evaluate parses and evaluates an expression using the provided symbol
// values. The current program counter is used to evaluate the '.' and '*'
// operands.
func Evaluate(s string, pc int, symbols map[string]int) (int, error) {
	var p exprParser
	e, err := p.parse(newFstring(0, 1, s), func(name string) string { return name })
	if err != nil {
		if len(p.errors) > 0 {
			return 0, fmt.Errorf("%s", p.errors[0].msg)
		}
		return 0, err
	}
	v, err := e.eval(&symbolMap{pc, symbols})
	if err != nil {
		return 0, err
	}
	return v.n, nil
}
