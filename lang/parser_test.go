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

import "testing"

const testProgramSource = `
start default
start application "Refrigeration"
start substance "HFC-134a"
set manufacture to 100 kg
initial charge 0.5 kg / unit for manufacture
end substance
end application
end default

start policy "Cap80"
start application "Refrigeration"
start substance "HFC-134a"
cap manufacture to 80 kg displacing "HFC-32"
end substance
end application
end policy

start simulations
simulate "Scenario1" using "Cap80" from years 2025 to 2026
simulate "Scenario2" using "Cap80" from years 2025 to 2025 across 3 trials seeded with 42
end simulations
`

func TestParseProgramShape(t *testing.T) {
	prog, err := Parse(testProgramSource)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Policies) != 2 {
		t.Fatalf("got %d policies, want 2", len(prog.Policies))
	}

	def := prog.Policies["default"]
	if len(def.Applications) != 1 || def.Applications[0].Name != "Refrigeration" {
		t.Fatalf("unexpected default policy shape: %+v", def)
	}
	sub := def.Applications[0].Substances[0]
	if sub.Name != "HFC-134a" || len(sub.Commands) != 2 {
		t.Fatalf("unexpected substance shape: %+v", sub)
	}
	if sub.Commands[0].Kind != OpSet || sub.Commands[1].Kind != OpInitialCharge {
		t.Fatalf("unexpected command kinds: %v %v", sub.Commands[0].Kind, sub.Commands[1].Kind)
	}
	if sub.Commands[1].Channel != "manufacture" {
		t.Fatalf("unexpected initial-charge channel: %q", sub.Commands[1].Channel)
	}

	capPol := prog.Policies["Cap80"]
	capOp := capPol.Applications[0].Substances[0].Commands[0]
	if capOp.Kind != OpCap || capOp.DisplaceTo != "HFC-32" || capOp.Stream != "manufacture" {
		t.Fatalf("unexpected cap operation: %+v", capOp)
	}

	if len(prog.Scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(prog.Scenarios))
	}
	s1, s2 := prog.Scenarios[0], prog.Scenarios[1]
	if s1.Name != "Scenario1" || s1.StartYear != 2025 || s1.EndYear != 2026 || s1.TrialCount != 1 || s1.HasSeed {
		t.Fatalf("unexpected scenario1: %+v", s1)
	}
	if s2.Name != "Scenario2" || s2.TrialCount != 3 || !s2.HasSeed || s2.Seed != 42 {
		t.Fatalf("unexpected scenario2: %+v", s2)
	}
}

func TestParseRejectsMalformedStatement(t *testing.T) {
	_, err := Parse("start default\nbogus\nend default\n")
	if err == nil {
		t.Fatal("expected a parse error for an unknown stanza keyword")
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	// "2 + 3 * 4" should parse as 2 + (3 * 4), not (2 + 3) * 4.
	prog, err := Parse("start default\nend default\nstart policy \"P\"\nstart application \"A\"\nstart substance \"S\"\ndefine x = 2 + 3 * 4\nend substance\nend application\nend policy\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	op := prog.Policies["P"].Applications[0].Substances[0].Commands[0]
	if op.Kind != OpDefine || op.VarName != "x" {
		t.Fatalf("unexpected define operation: %+v", op)
	}
	expr := op.Amount
	if expr.Kind != ExprBinary || expr.Op != "+" {
		t.Fatalf("expected top-level '+', got %+v", expr)
	}
	if expr.Right.Kind != ExprBinary || expr.Right.Op != "*" {
		t.Fatalf("expected right operand to be a '*' node, got %+v", expr.Right)
	}
}

func TestParseDuringYearsOnwards(t *testing.T) {
	prog, err := Parse("start default\nstart application \"A\"\nstart substance \"S\"\nset manufacture to 10 kg during years 2025 to onwards\nend substance\nend application\nend default\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	op := prog.Policies["default"].Applications[0].Substances[0].Commands[0]
	if op.During == nil || op.During.StartLiteral == nil || *op.During.StartLiteral != 2025 || !op.During.EndIsOnwards {
		t.Fatalf("unexpected during clause: %+v", op.During)
	}
}
