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

package lang

import (
	"strconv"
	"strings"

	"github.com/kigamiprotocol/simcore/lang/langerr"
	"github.com/shopspring/decimal"
)

// unitWords is the closed set of bare unit tokens the parser recognizes
// when reading a trailing unit suffix (spec.md §4.1).
var unitWords = map[string]bool{
	"kg": true, "mt": true, "tco2e": true, "unit": true, "units": true,
	"kwh": true, "year": true, "years": true,
	"month": true, "months": true, "day": true, "days": true,
}

// Parser is a hand-written recursive-descent parser over a pre-lexed
// token stream, producing a Program Fragment tree.
type Parser struct {
	toks []Token
	pos  int
	errs *langerr.ParseErrors
}

// Parse lexes and parses source into a Program, or returns a
// *langerr.ParseErrors naming every syntax problem found. The program is
// rejected wholesale on any error, per spec.md §7.
func Parse(source string) (*Program, error) {
	lx := NewLexer(source)
	toks := lx.Tokens()
	if lx.Errors().HasErrors() {
		return nil, lx.Errors()
	}
	p := &Parser{toks: toks, errs: &langerr.ParseErrors{}}
	prog := p.parseProgram()
	if p.errs.HasErrors() {
		return nil, p.errs
	}
	return prog, nil
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool        { return p.cur().Kind == TokEOF }
func (p *Parser) atKeyword(k string) bool { return p.cur().Kind == TokKeyword && p.cur().Text == k }
func (p *Parser) atSymbol(s string) bool  { return p.cur().Kind == TokSymbol && p.cur().Text == s }
func (p *Parser) atNewline() bool         { return p.atSymbol("\n") }

func (p *Parser) skipNewlines() {
	for p.atNewline() {
		p.advance()
	}
}

func (p *Parser) errorf(format string, args ...interface{}) {
	t := p.cur()
	p.errs.Add(t.Line, t.Col, format, args...)
}

func (p *Parser) expectKeyword(k string) bool {
	if p.atKeyword(k) {
		p.advance()
		return true
	}
	p.errorf("expected keyword %q, got %s", k, p.cur())
	return false
}

func (p *Parser) expectSymbol(s string) bool {
	if p.atSymbol(s) {
		p.advance()
		return true
	}
	p.errorf("expected %q, got %s", s, p.cur())
	return false
}

func (p *Parser) expectString() string {
	if p.cur().Kind == TokString {
		t := p.advance()
		return t.Text
	}
	p.errorf("expected a quoted string, got %s", p.cur())
	return ""
}

func (p *Parser) expectIdent() string {
	if p.cur().Kind == TokIdent {
		return p.advance().Text
	}
	// Some stream/channel names collide with keywords (e.g. "import",
	// "export" do not, but be permissive: allow any keyword token to
	// double as an identifier here since the grammar context disambiguates.
	if p.cur().Kind == TokKeyword {
		return p.advance().Text
	}
	p.errorf("expected an identifier, got %s", p.cur())
	return ""
}

// skipToNewlineOrEOF is the error-recovery strategy: on a malformed
// statement, skip to the next statement boundary so later errors in the
// same program are still reported.
func (p *Parser) skipToNewlineOrEOF() {
	for !p.atNewline() && !p.atEOF() {
		p.advance()
	}
}

// ---- Program / stanzas ----

func (p *Parser) parseProgram() *Program {
	prog := &Program{Policies: map[string]*Policy{}}
	p.skipNewlines()
	for !p.atEOF() {
		if !p.expectKeyword("start") {
			p.skipToNewlineOrEOF()
			p.skipNewlines()
			continue
		}
		switch {
		case p.atKeyword("about"):
			p.advance()
			p.parseAboutBody()
			prog.About = ""
		case p.atKeyword("default"):
			p.advance()
			pol := p.parsePolicyBody("default")
			prog.Policies["default"] = pol
		case p.atKeyword("policy"):
			p.advance()
			name := p.expectString()
			pol := p.parsePolicyBody(name)
			prog.Policies[name] = pol
		case p.atKeyword("simulations"):
			p.advance()
			prog.Scenarios = p.parseSimulationsBody()
		default:
			p.errorf("expected about/default/policy/simulations stanza, got %s", p.cur())
			p.skipToNewlineOrEOF()
		}
		p.skipNewlines()
	}
	if _, ok := prog.Policies["default"]; !ok {
		prog.Policies["default"] = &Policy{Name: "default"}
	}
	return prog
}

func (p *Parser) parseAboutBody() {
	// "about" is free-form prose for the host UI; the engine does not
	// interpret it. Skip to the matching "end about".
	for !p.atEOF() {
		p.skipNewlines()
		if p.atKeyword("end") {
			p.advance()
			p.expectKeyword("about")
			return
		}
		p.advance()
	}
}

func (p *Parser) parsePolicyBody(name string) *Policy {
	pol := &Policy{Name: name}
	p.skipNewlines()
	for !p.atEOF() && !p.atKeyword("end") {
		if !p.expectKeyword("start") {
			p.skipToNewlineOrEOF()
			p.skipNewlines()
			continue
		}
		if !p.expectKeyword("application") {
			p.skipToNewlineOrEOF()
			p.skipNewlines()
			continue
		}
		appName := p.expectString()
		app := p.parseApplicationBody(appName)
		pol.Applications = append(pol.Applications, app)
		p.skipNewlines()
	}
	p.expectKeyword("end")
	if p.atKeyword("default") || p.atKeyword("policy") {
		p.advance()
	}
	return pol
}

func (p *Parser) parseApplicationBody(name string) *Application {
	app := &Application{Name: name}
	p.skipNewlines()
	for !p.atEOF() && !p.atKeyword("end") {
		if !p.expectKeyword("start") || !p.expectKeyword("substance") {
			p.skipToNewlineOrEOF()
			p.skipNewlines()
			continue
		}
		subName := p.expectString()
		sub := p.parseSubstanceBody(subName)
		app.Substances = append(app.Substances, sub)
		p.skipNewlines()
	}
	p.expectKeyword("end")
	p.expectKeyword("application")
	return app
}

func (p *Parser) parseSubstanceBody(name string) *Substance {
	sub := &Substance{Name: name}
	p.skipNewlines()
	for !p.atEOF() && !p.atKeyword("end") {
		op := p.parseOperation()
		if op != nil {
			sub.Commands = append(sub.Commands, op)
		}
		if !p.atNewline() && !p.atKeyword("end") && !p.atEOF() {
			p.errorf("expected end of statement, got %s", p.cur())
			p.skipToNewlineOrEOF()
		}
		p.skipNewlines()
	}
	p.expectKeyword("end")
	p.expectKeyword("substance")
	return sub
}

func (p *Parser) parseSimulationsBody() []*Scenario {
	var scenarios []*Scenario
	p.skipNewlines()
	for !p.atEOF() && !p.atKeyword("end") {
		p.expectKeyword("simulate")
		name := p.expectString()
		sc := &Scenario{Name: name, TrialCount: 1}
		p.expectKeyword("using")
		sc.Policies = append(sc.Policies, p.expectString())
		for p.atSymbol(",") {
			p.advance()
			sc.Policies = append(sc.Policies, p.expectString())
		}
		p.expectKeyword("from")
		p.expectKeyword("years")
		sc.StartYear = p.expectInt()
		p.expectKeyword("to")
		sc.EndYear = p.expectInt()
		if p.atKeyword("across") {
			p.advance()
			sc.TrialCount = p.expectInt()
			p.expectKeyword("trials")
		}
		if p.atKeyword("seeded") {
			p.advance()
			p.expectKeyword("with")
			sc.Seed = int64(p.expectInt())
			sc.HasSeed = true
		}
		scenarios = append(scenarios, sc)
		if !p.atNewline() && !p.atKeyword("end") && !p.atEOF() {
			p.errorf("expected end of statement, got %s", p.cur())
			p.skipToNewlineOrEOF()
		}
		p.skipNewlines()
	}
	p.expectKeyword("end")
	p.expectKeyword("simulations")
	return scenarios
}

func (p *Parser) expectInt() int {
	if p.cur().Kind == TokNumber {
		t := p.advance()
		n, err := strconv.Atoi(t.Text)
		if err != nil {
			p.errorf("expected an integer, got %q", t.Text)
			return 0
		}
		return n
	}
	p.errorf("expected an integer, got %s", p.cur())
	return 0
}

// ---- Commands ----

func (p *Parser) parseOperation() *Operation {
	line := p.cur().Line
	switch {
	case p.atKeyword("set"):
		return p.parseSetChange(OpSet, line)
	case p.atKeyword("change"):
		return p.parseSetChange(OpChange, line)
	case p.atKeyword("cap"):
		return p.parseCapFloor(OpCap, line)
	case p.atKeyword("floor"):
		return p.parseCapFloor(OpFloor, line)
	case p.atKeyword("equals"):
		return p.parseEquals(line)
	case p.atKeyword("initial"):
		return p.parseInitialCharge(line)
	case p.atKeyword("recharge"):
		return p.parseRecharge(line)
	case p.atKeyword("retire"):
		return p.parseRetire(line)
	case p.atKeyword("recover"):
		return p.parseRecover(line)
	case p.atKeyword("replace"):
		return p.parseReplace(line)
	case p.atKeyword("enable"):
		return p.parseEnable(line)
	case p.atKeyword("define"):
		return p.parseDefine(line)
	case p.atKeyword("get"):
		amt := p.parseGetExpr()
		return &Operation{Kind: OpGet, Line: line, Amount: amt}
	default:
		p.errorf("unknown command, got %s", p.cur())
		p.skipToNewlineOrEOF()
		return nil
	}
}

func (p *Parser) parseDuring() *During {
	if !p.atKeyword("during") {
		return nil
	}
	p.advance()
	d := &During{}
	isYears := false
	if p.atKeyword("years") {
		isYears = true
		p.advance()
	} else {
		p.expectKeyword("year")
	}
	if p.atKeyword("begin") {
		p.advance()
		d.StartIsBegin = true
	} else {
		n := p.expectInt()
		d.StartLiteral = &n
	}
	if isYears {
		p.expectKeyword("to")
		if p.atKeyword("onwards") {
			p.advance()
			d.EndIsOnwards = true
		} else {
			n := p.expectInt()
			d.EndLiteral = &n
		}
	} else {
		d.EndLiteral = d.StartLiteral
	}
	return d
}

func (p *Parser) parseUnitSuffix() string {
	if p.atSymbol("%") {
		p.advance()
		return "%"
	}
	tok := p.cur()
	word := strings.ToLower(tok.Text)
	if (tok.Kind == TokIdent || tok.Kind == TokKeyword) && unitWords[word] {
		p.advance()
		if p.atSymbol("/") {
			p.advance()
			second := strings.ToLower(p.cur().Text)
			if unitWords[second] || p.atSymbol("%") {
				p.advance()
				return word + " / " + second
			}
			p.errorf("expected a unit after '/', got %s", p.cur())
			return word
		}
		return word
	}
	return ""
}

func (p *Parser) parseSetChange(kind OpKind, line int) *Operation {
	p.advance() // set|change
	stream := p.expectIdent()
	if kind == OpSet {
		p.expectKeyword("to")
	} else {
		p.expectKeyword("by")
	}
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	during := p.parseDuring()
	return &Operation{Kind: kind, Line: line, Stream: stream, Amount: amt, Unit: unit, During: during}
}

func (p *Parser) parseCapFloor(kind OpKind, line int) *Operation {
	p.advance() // cap|floor
	stream := p.expectIdent()
	p.expectKeyword("to")
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	op := &Operation{Kind: kind, Line: line, Stream: stream, Amount: amt, Unit: unit}
	if p.atKeyword("displacing") {
		p.advance()
		op.DisplaceTo = p.expectString()
	}
	op.During = p.parseDuring()
	return op
}

func (p *Parser) parseEquals(line int) *Operation {
	p.advance() // equals
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	during := p.parseDuring()
	return &Operation{Kind: OpEquals, Line: line, Amount: amt, Unit: unit, During: during}
}

func (p *Parser) parseInitialCharge(line int) *Operation {
	p.advance() // initial
	p.expectKeyword("charge")
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	p.expectKeyword("for")
	channel := p.expectIdent()
	during := p.parseDuring()
	return &Operation{Kind: OpInitialCharge, Line: line, Amount: amt, Unit: unit, Channel: channel, During: during}
}

func (p *Parser) parseRecharge(line int) *Operation {
	p.advance() // recharge
	pct := p.parseExpr()
	pctUnit := p.parseUnitSuffix()
	p.expectKeyword("with")
	intensity := p.parseExpr()
	intensityUnit := p.parseUnitSuffix()
	during := p.parseDuring()
	return &Operation{Kind: OpRecharge, Line: line, Amount: pct, Unit: pctUnit, Second: intensity, SecondUnit: intensityUnit, During: during}
}

func (p *Parser) parseRetire(line int) *Operation {
	p.advance() // retire
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	during := p.parseDuring()
	return &Operation{Kind: OpRetire, Line: line, Amount: amt, Unit: unit, During: during}
}

func (p *Parser) parseRecover(line int) *Operation {
	p.advance() // recover
	pct := p.parseExpr()
	pctUnit := p.parseUnitSuffix()
	p.expectKeyword("with")
	reuse := p.parseExpr()
	reuseUnit := p.parseUnitSuffix()
	p.expectKeyword("reuse")
	op := &Operation{Kind: OpRecover, Line: line, Amount: pct, Unit: pctUnit, Second: reuse, SecondUnit: reuseUnit}
	if p.atKeyword("displacing") {
		p.advance()
		op.DisplaceTo = p.expectString()
	}
	op.During = p.parseDuring()
	return op
}

func (p *Parser) parseReplace(line int) *Operation {
	p.advance() // replace
	amt := p.parseExpr()
	unit := p.parseUnitSuffix()
	stream := p.expectIdent()
	p.expectKeyword("with")
	dest := p.expectString()
	during := p.parseDuring()
	return &Operation{Kind: OpReplace, Line: line, Stream: stream, Amount: amt, Unit: unit, ToSubstance: dest, During: during}
}

func (p *Parser) parseEnable(line int) *Operation {
	p.advance() // enable
	channel := p.expectIdent()
	during := p.parseDuring()
	return &Operation{Kind: OpEnable, Line: line, Channel: channel, During: during}
}

func (p *Parser) parseDefine(line int) *Operation {
	p.advance() // define
	name := p.expectIdent()
	p.expectSymbol("=")
	val := p.parseExpr()
	return &Operation{Kind: OpDefine, Line: line, VarName: name, Amount: val}
}

// parseGetExpr parses "get <stream> [of \"<sub>\"] [as <unit>]" both as a
// top-level command and as a primary expression.
func (p *Parser) parseGetExpr() *Expr {
	p.expectKeyword("get")
	stream := p.expectIdent()
	e := &Expr{Kind: ExprGet, Ident: stream}
	if p.atKeyword("of") {
		p.advance()
		e.OfSubstance = p.expectString()
	}
	if p.atKeyword("as") {
		p.advance()
		e.Unit = p.parseUnitSuffix()
	}
	return e
}

// ---- Expressions ----
// Precedence, low to high: ternary > or/xor > and > comparison > additive
// > multiplicative > power > unary > primary.

func (p *Parser) parseExpr() *Expr {
	e := p.parseOr()
	if p.atKeyword("if") {
		p.advance()
		cond := p.parseOr()
		p.expectKeyword("else")
		elseExpr := p.parseOr()
		p.expectKeyword("endif")
		e = &Expr{Kind: ExprTernary, Left: e, Cond: cond, Right: elseExpr}
	}
	return e
}

func (p *Parser) parseOr() *Expr {
	e := p.parseAnd()
	for p.atKeyword("or") || p.atKeyword("xor") {
		op := p.advance().Text
		rhs := p.parseAnd()
		e = &Expr{Kind: ExprBinary, Op: op, Left: e, Right: rhs}
	}
	return e
}

func (p *Parser) parseAnd() *Expr {
	e := p.parseComparison()
	for p.atKeyword("and") {
		p.advance()
		rhs := p.parseComparison()
		e = &Expr{Kind: ExprBinary, Op: "and", Left: e, Right: rhs}
	}
	return e
}

var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

func (p *Parser) parseComparison() *Expr {
	e := p.parseAdditive()
	for p.cur().Kind == TokSymbol && comparisonOps[p.cur().Text] {
		op := p.advance().Text
		rhs := p.parseAdditive()
		e = &Expr{Kind: ExprBinary, Op: op, Left: e, Right: rhs}
	}
	return e
}

func (p *Parser) parseAdditive() *Expr {
	e := p.parseMultiplicative()
	for p.atSymbol("+") || p.atSymbol("-") {
		op := p.advance().Text
		rhs := p.parseMultiplicative()
		e = &Expr{Kind: ExprBinary, Op: op, Left: e, Right: rhs}
	}
	return e
}

func (p *Parser) parseMultiplicative() *Expr {
	e := p.parsePower()
	for p.atSymbol("*") || p.atSymbol("/") {
		op := p.advance().Text
		rhs := p.parsePower()
		e = &Expr{Kind: ExprBinary, Op: op, Left: e, Right: rhs}
	}
	return e
}

func (p *Parser) parsePower() *Expr {
	e := p.parseUnary()
	if p.atSymbol("^") {
		p.advance()
		rhs := p.parsePower() // right-associative
		e = &Expr{Kind: ExprBinary, Op: "^", Left: e, Right: rhs}
	}
	return e
}

func (p *Parser) parseUnary() *Expr {
	if p.atSymbol("-") {
		p.advance()
		e := p.parseUnary()
		return &Expr{Kind: ExprUnary, Op: "-", Left: e}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *Expr {
	switch {
	case p.atSymbol("("):
		p.advance()
		e := p.parseExpr()
		p.expectSymbol(")")
		return e
	case p.cur().Kind == TokNumber:
		t := p.advance()
		num, _ := decimal.NewFromString(t.Text)
		e := &Expr{Kind: ExprLiteral, Number: num}
		if unit := p.parseUnitSuffix(); unit != "" {
			e = &Expr{Kind: ExprUnitLiteral, Number: num, Unit: unit}
		}
		return e
	case p.atKeyword("limit"):
		p.advance()
		inner := p.parseOr()
		p.expectKeyword("to")
		p.expectSymbol("[")
		low := p.parseOr()
		p.expectSymbol(",")
		high := p.parseOr()
		p.expectSymbol("]")
		return &Expr{Kind: ExprLimit, Left: inner, Low: low, High: high}
	case p.atKeyword("sample"):
		p.advance()
		if p.atKeyword("uniformly") {
			p.advance()
			p.expectKeyword("from")
			a := p.parseOr()
			p.expectKeyword("to")
			b := p.parseOr()
			return &Expr{Kind: ExprSampleUniform, Low: a, High: b}
		}
		p.expectKeyword("normally")
		p.expectKeyword("mean")
		p.expectKeyword("of")
		mean := p.parseOr()
		p.expectKeyword("std")
		p.expectKeyword("of")
		std := p.parseOr()
		return &Expr{Kind: ExprSampleNormal, Mean: mean, Std: std}
	case p.atKeyword("get"):
		return p.parseGetExpr()
	case p.cur().Kind == TokIdent:
		t := p.advance()
		return &Expr{Kind: ExprIdent, Ident: t.Text}
	default:
		p.errorf("unexpected token in expression: %s", p.cur())
		p.advance()
		return &Expr{Kind: ExprLiteral, Number: decimal.Zero}
	}
}
