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

package pushdown

import (
	"math/rand"
	"testing"

	"github.com/kigamiprotocol/simcore/lang"
	"github.com/shopspring/decimal"
)

type fakeEnv struct {
	vars     map[string]Value
	years    int
	absYear  int
	rnd      *rand.Rand
	getCalls int
	getVal   Value
}

func (f *fakeEnv) LookupVar(name string) (Value, bool) { v, ok := f.vars[name]; return v, ok }
func (f *fakeEnv) YearsElapsed() int                    { return f.years }
func (f *fakeEnv) YearAbsolute() int                    { return f.absYear }
func (f *fakeEnv) Rand() *rand.Rand                     { return f.rnd }
func (f *fakeEnv) GetStream(stream, of, unit string) (Value, error) {
	f.getCalls++
	return f.getVal, nil
}

func num(n int64) *lang.Expr { return &lang.Expr{Kind: lang.ExprLiteral, Number: decimal.NewFromInt(n)} }

func newFakeEnv() *fakeEnv {
	return &fakeEnv{vars: map[string]Value{}, rnd: rand.New(rand.NewSource(1))}
}

func TestRunAdditiveAndMultiplicativePrecedenceIsAlreadyResolvedByCompile(t *testing.T) {
	// (2 + 3) * 4, built directly as the AST the parser would already have
	// produced (pushdown trusts the AST's shape, it does no precedence work
	// of its own).
	expr := &lang.Expr{
		Kind: lang.ExprBinary,
		Op:   "*",
		Left: &lang.Expr{Kind: lang.ExprBinary, Op: "+", Left: num(2), Right: num(3)},
		Right: num(4),
	}
	v, err := Compile(expr).Run(newFakeEnv())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(20); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s", v.Num, want)
	}
}

func TestRunDivisionByZeroIsAnError(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprBinary, Op: "/", Left: num(1), Right: num(0)}
	if _, err := Compile(expr).Run(newFakeEnv()); err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestRunUnaryNegation(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprUnary, Left: num(5)}
	v, err := Compile(expr).Run(newFakeEnv())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(-5); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s", v.Num, want)
	}
}

func TestRunTernaryTakesTrueBranchWhenConditionNonzero(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprTernary, Cond: num(1), Left: num(10), Right: num(20)}
	v, err := Compile(expr).Run(newFakeEnv())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(10); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s (true branch)", v.Num, want)
	}
}

func TestRunTernaryTakesFalseBranchWhenConditionZero(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprTernary, Cond: num(0), Left: num(10), Right: num(20)}
	v, err := Compile(expr).Run(newFakeEnv())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(20); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s (false branch)", v.Num, want)
	}
}

func TestRunLimitClampsToRange(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprLimit, Left: num(100), Low: num(0), High: num(50)}
	v, err := Compile(expr).Run(newFakeEnv())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(50); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s (clamped to high)", v.Num, want)
	}
}

func TestRunPushVarResolvesProtectedIdentifiersWithoutConsultingEnvLookup(t *testing.T) {
	env := newFakeEnv()
	env.years = 7
	expr := &lang.Expr{Kind: lang.ExprIdent, Ident: "yearsElapsed"}
	v, err := Compile(expr).Run(env)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := decimal.NewFromInt(7); !v.Num.Equal(want) {
		t.Fatalf("got %s, want %s", v.Num, want)
	}
}

func TestRunPushVarUnknownIdentifierIsAReferenceError(t *testing.T) {
	expr := &lang.Expr{Kind: lang.ExprIdent, Ident: "undeclared"}
	if _, err := Compile(expr).Run(newFakeEnv()); err == nil {
		t.Fatal("expected a reference error for an unbound identifier")
	}
}

func TestRunGetDelegatesToEnv(t *testing.T) {
	env := newFakeEnv()
	env.getVal = Value{Num: decimal.NewFromInt(42), Unit: "kg"}
	expr := &lang.Expr{Kind: lang.ExprGet, Ident: "manufacture", OfSubstance: "HFC-134a", Unit: "kg"}
	v, err := Compile(expr).Run(env)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if env.getCalls != 1 {
		t.Fatalf("GetStream called %d times, want 1", env.getCalls)
	}
	if !v.Num.Equal(decimal.NewFromInt(42)) || v.Unit != "kg" {
		t.Fatalf("got %+v, want 42 kg", v)
	}
}
