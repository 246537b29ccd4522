/*
Copyright © 2024 the simcore authors.
This file is part of simcore.

simcore is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

simcore is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with simcore.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package pushdown implements the stack-based evaluator for the DSL's
// expression language: arithmetic, comparisons, logic, the ternary
// conditional, limit clamping, and probabilistic sampling. The AST
// (package lang) is compiled once into a flat instruction list and then
// run against an explicit value stack, rather than recursively walked, so
// that expression evaluation is a distinct component from the
// tree-walking interpreter that drives commands (spec.md §4.2/§4.3).
package pushdown

import (
	"fmt"
	"math/rand"

	"github.com/kigamiprotocol/simcore/lang"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"
)

// Value is a stack cell: a decimal magnitude with an optional unit. Most
// intermediate arithmetic carries no unit; only literals and Get results
// do, and it is propagated through left-associated binary operations.
type Value struct {
	Num  decimal.Decimal
	Unit string
}

// Env supplies the bindings and side channels an expression may reference:
// free variables bound by `define`, the protected yearsElapsed/yearAbsolute
// identifiers, a `get` callback into the engine, and a seeded PRNG.
type Env interface {
	LookupVar(name string) (Value, bool)
	YearsElapsed() int
	YearAbsolute() int
	GetStream(stream, ofSubstance, asUnit string) (Value, error)
	Rand() *rand.Rand
}

type opcode int

const (
	opPushLit opcode = iota
	opPushVar
	opBinary
	opUnaryNeg
	opJumpIfFalse
	opJump
	opSampleUniform
	opSampleNormal
	opLimit
	opGet
)

type instr struct {
	op     opcode
	num    decimal.Decimal
	unit   string
	ident  string
	target int
	of     string
}

// Program is a compiled expression, ready to be run repeatedly (e.g. once
// per trial) against different Envs.
type Program struct {
	code []instr
}

// Compile flattens an expression AST into a linear instruction list.
func Compile(e *lang.Expr) *Program {
	var code []instr
	compile(e, &code)
	return &Program{code: code}
}

func compile(e *lang.Expr, code *[]instr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case lang.ExprLiteral:
		*code = append(*code, instr{op: opPushLit, num: e.Number})
	case lang.ExprUnitLiteral:
		*code = append(*code, instr{op: opPushLit, num: e.Number, unit: e.Unit})
	case lang.ExprIdent:
		*code = append(*code, instr{op: opPushVar, ident: e.Ident})
	case lang.ExprBinary:
		compile(e.Left, code)
		compile(e.Right, code)
		*code = append(*code, instr{op: opBinary, ident: e.Op})
	case lang.ExprUnary:
		compile(e.Left, code)
		*code = append(*code, instr{op: opUnaryNeg})
	case lang.ExprTernary:
		compile(e.Cond, code)
		jf := len(*code)
		*code = append(*code, instr{op: opJumpIfFalse})
		compile(e.Left, code)
		j := len(*code)
		*code = append(*code, instr{op: opJump})
		(*code)[jf].target = len(*code)
		compile(e.Right, code)
		(*code)[j].target = len(*code)
	case lang.ExprLimit:
		compile(e.Left, code)
		compile(e.Low, code)
		compile(e.High, code)
		*code = append(*code, instr{op: opLimit})
	case lang.ExprSampleUniform:
		compile(e.Low, code)
		compile(e.High, code)
		*code = append(*code, instr{op: opSampleUniform})
	case lang.ExprSampleNormal:
		compile(e.Mean, code)
		compile(e.Std, code)
		*code = append(*code, instr{op: opSampleNormal})
	case lang.ExprGet:
		*code = append(*code, instr{op: opGet, ident: e.Ident, of: e.OfSubstance, unit: e.Unit})
	}
}

// Run executes the compiled program against env and returns the resulting
// stack-top value.
func (p *Program) Run(env Env) (Value, error) {
	var stack []Value
	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for pc := 0; pc < len(p.code); pc++ {
		in := p.code[pc]
		switch in.op {
		case opPushLit:
			push(Value{Num: in.num, Unit: in.unit})
		case opPushVar:
			switch in.ident {
			case "yearsElapsed":
				push(Value{Num: decimal.NewFromInt(int64(env.YearsElapsed()))})
			case "yearAbsolute":
				push(Value{Num: decimal.NewFromInt(int64(env.YearAbsolute()))})
			default:
				v, ok := env.LookupVar(in.ident)
				if !ok {
					return Value{}, fmt.Errorf("reference error: unknown variable %q", in.ident)
				}
				push(v)
			}
		case opBinary:
			rhs := pop()
			lhs := pop()
			v, err := binary(in.ident, lhs, rhs)
			if err != nil {
				return Value{}, err
			}
			push(v)
		case opUnaryNeg:
			v := pop()
			push(Value{Num: v.Num.Neg(), Unit: v.Unit})
		case opJumpIfFalse:
			cond := pop()
			if cond.Num.IsZero() {
				pc = in.target - 1
			}
		case opJump:
			pc = in.target - 1
		case opLimit:
			high := pop()
			low := pop()
			inner := pop()
			v := inner
			if v.Num.LessThan(low.Num) {
				v.Num = low.Num
			}
			if v.Num.GreaterThan(high.Num) {
				v.Num = high.Num
			}
			push(v)
		case opSampleUniform:
			high := pop()
			low := pop()
			d := distuv.Uniform{Min: toFloat(low.Num), Max: toFloat(high.Num), Src: env.Rand()}
			push(Value{Num: decimal.NewFromFloat(d.Rand())})
		case opSampleNormal:
			std := pop()
			mean := pop()
			d := distuv.Normal{Mu: toFloat(mean.Num), Sigma: toFloat(std.Num), Src: env.Rand()}
			push(Value{Num: decimal.NewFromFloat(d.Rand())})
		case opGet:
			v, err := env.GetStream(in.ident, in.of, in.unit)
			if err != nil {
				return Value{}, err
			}
			push(v)
		}
	}
	if len(stack) != 1 {
		return Value{}, fmt.Errorf("internal error: expression evaluation left %d values on the stack", len(stack))
	}
	return stack[0], nil
}

// toFloat converts a decimal to float64 for sampling only; draws are
// immediately rounded back into the decimal domain by NewFromFloat.
func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func binary(op string, lhs, rhs Value) (Value, error) {
	unit := lhs.Unit
	if unit == "" {
		unit = rhs.Unit
	}
	boolVal := func(b bool) Value {
		if b {
			return Value{Num: decimal.NewFromInt(1)}
		}
		return Value{Num: decimal.NewFromInt(0)}
	}
	switch op {
	case "+":
		return Value{Num: lhs.Num.Add(rhs.Num), Unit: unit}, nil
	case "-":
		return Value{Num: lhs.Num.Sub(rhs.Num), Unit: unit}, nil
	case "*":
		return Value{Num: lhs.Num.Mul(rhs.Num), Unit: unit}, nil
	case "/":
		if rhs.Num.IsZero() {
			return Value{}, fmt.Errorf("domain error: division by zero")
		}
		return Value{Num: lhs.Num.DivRound(rhs.Num, 10), Unit: unit}, nil
	case "^":
		exp := rhs.Num.IntPart()
		return Value{Num: lhs.Num.Pow(decimal.NewFromInt(exp)), Unit: unit}, nil
	case "<":
		return boolVal(lhs.Num.LessThan(rhs.Num)), nil
	case "<=":
		return boolVal(lhs.Num.LessThanOrEqual(rhs.Num)), nil
	case ">":
		return boolVal(lhs.Num.GreaterThan(rhs.Num)), nil
	case ">=":
		return boolVal(lhs.Num.GreaterThanOrEqual(rhs.Num)), nil
	case "==":
		return boolVal(lhs.Num.Equal(rhs.Num)), nil
	case "!=":
		return boolVal(!lhs.Num.Equal(rhs.Num)), nil
	case "and":
		return boolVal(!lhs.Num.IsZero() && !rhs.Num.IsZero()), nil
	case "or":
		return boolVal(!lhs.Num.IsZero() || !rhs.Num.IsZero()), nil
	case "xor":
		return boolVal(!lhs.Num.IsZero() != !rhs.Num.IsZero()), nil
	default:
		return Value{}, fmt.Errorf("internal error: unknown operator %q", op)
	}
}
