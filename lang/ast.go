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

import "github.com/shopspring/decimal"

// The AST is a set of typed "Fragments" (the spec's term), one struct per
// grammar production, evaluated by a single tree-walking dispatcher rather
// than a class-per-node visitor hierarchy.

// ExprKind enumerates expression node shapes.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprUnitLiteral
	ExprIdent
	ExprBinary
	ExprUnary
	ExprTernary
	ExprLimit
	ExprSampleUniform
	ExprSampleNormal
	ExprGet
)

// Expr is an expression fragment. Only the fields relevant to Kind are
// populated; this mirrors the teacher's style of one "Cell" struct with a
// superset of fields used differently by field type (science.go/aqm.go),
// adapted here to an expression node instead of a pollutant cell.
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	Number decimal.Decimal

	// ExprUnitLiteral: a literal paired with a unit, e.g. "50 kg", "10 %".
	Unit string

	// ExprIdent
	Ident string

	// ExprBinary / ExprUnary: Op is one of + - * / ^ < <= > >= == != and or xor (unary: - not)
	Op          string
	Left, Right *Expr

	// ExprTernary: Left if Cond else Right endif
	Cond *Expr

	// ExprLimit: limit Left to [Low, High]
	Low, High *Expr

	// ExprSampleUniform: sample uniformly from Low to High
	// ExprSampleNormal: sample normally mean of Mean std of Std
	Mean, Std *Expr

	// ExprGet: get Ident [of OfSubstance] [as Unit]
	OfSubstance string
}

// During is the Fragment wrapping a YearMatcher literal in source, e.g.
// "during years 2025 to onwards" or "during year 2030".
type During struct {
	StartLiteral *int
	StartIsBegin bool
	EndLiteral   *int
	EndIsOnwards bool
}

// OpKind enumerates the command surface (spec.md §4.3).
type OpKind int

const (
	OpSet OpKind = iota
	OpChange
	OpCap
	OpFloor
	OpEquals
	OpInitialCharge
	OpRecharge
	OpRetire
	OpRecover
	OpReplace
	OpEnable
	OpDefine
	OpGet
)

// Operation is a single command Fragment inside a substance block.
type Operation struct {
	Kind OpKind
	Line int

	Stream string // stream name for set/change/cap/floor/replace/get
	Amount *Expr  // the expression argument (value, delta, target, percent, amount)
	Unit   string // unit suffix for Amount, when literal (e.g. "kg", "kg / unit", "%")

	DisplaceTo string // cap/floor: destination substance name, if any

	Channel string // initial charge / enable: channel name

	Second     *Expr  // recharge: recharge intensity; recover: reuse pct
	SecondUnit string // unit for Second

	ToSubstance string // replace: destination substance

	VarName string // define: variable name

	OfSubstance string // get: optional substance qualifier
	AsUnit      string // get: optional target unit

	During *During
}

// Substance is an ordered list of commands for one substance within an
// application.
type Substance struct {
	Name     string
	Commands []*Operation
}

// Application is a named ordered list of substance blocks.
type Application struct {
	Name       string
	Substances []*Substance
}

// Policy is an ordered list of application blocks; the synthetic "default"
// policy plays the same role as a user policy.
type Policy struct {
	Name         string
	Applications []*Application
}

// Scenario is an ordered overlay of policy references over the default
// baseline, run over [StartYear, EndYear] for TrialCount trials.
type Scenario struct {
	Name       string
	Policies   []string // does not include "default"; default is always implied first
	StartYear  int
	EndYear    int
	TrialCount int
	Seed       int64
	HasSeed    bool
}

// Program is the root Fragment: every named policy plus the ordered list
// of scenarios declared in the "simulations" stanza.
type Program struct {
	About     string
	Policies  map[string]*Policy
	Scenarios []*Scenario
}
