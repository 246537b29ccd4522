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

package engine

import (
	"testing"

	"github.com/kigamiprotocol/simcore"
	"github.com/kigamiprotocol/simcore/lang/pushdown"
	"github.com/shopspring/decimal"
)

func TestAdvanceYearCarriesPriorEquipment(t *testing.T) {
	e := New("test", 0, 2025, 2027, 0, nil)
	k := e.SetScope("Refrigeration", "HFC-134a")
	k.Equipment = simcore.UnitValue{Magnitude: decimal.NewFromInt(100), Unit: simcore.UnitUnits}

	e.AdvanceYear()

	if !k.PriorEquipment.Magnitude.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("priorEquipment = %s, want 100", k.PriorEquipment.Magnitude)
	}
	if !k.NewEquipment.Magnitude.IsZero() {
		t.Fatalf("newEquipment = %s, want 0 after year advance", k.NewEquipment.Magnitude)
	}
}

func TestDoneReflectsYearRange(t *testing.T) {
	e := New("test", 0, 2025, 2026, 0, nil)
	if e.Done() {
		t.Fatal("engine should not be done at its start year")
	}
	e.AdvanceYear()
	if e.Done() {
		t.Fatal("engine should not be done at its end year")
	}
	e.AdvanceYear()
	if !e.Done() {
		t.Fatal("engine should be done once year exceeds endYear")
	}
}

func TestSetScopeRegistersOncePerPair(t *testing.T) {
	e := New("test", 0, 2025, 2025, 0, nil)
	k1 := e.SetScope("Refrigeration", "HFC-134a")
	k2 := e.SetScope("Refrigeration", "HFC-134a")
	if k1 != k2 {
		t.Fatal("expected the same Keeper on repeated SetScope calls for the same pair")
	}
	if len(e.order) != 1 {
		t.Fatalf("got %d registered cells, want 1", len(e.order))
	}
}

func TestLookupVarProtectedIdentifiers(t *testing.T) {
	e := New("test", 0, 2020, 2025, 0, nil)
	e.Year = 2022
	v, ok := e.LookupVar("yearsElapsed")
	if !ok || !v.Num.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("yearsElapsed = %+v, want 2", v)
	}
	v, ok = e.LookupVar("yearAbsolute")
	if !ok || !v.Num.Equal(decimal.NewFromInt(2022)) {
		t.Fatalf("yearAbsolute = %+v, want 2022", v)
	}
}

func TestFrameStackScopesDefines(t *testing.T) {
	e := New("test", 0, 2025, 2025, 0, nil)
	e.PushFrame()
	e.frame.vars["x"] = pushdown.Value{Num: decimal.NewFromInt(1)}
	e.PopFrame()
	if _, ok := e.LookupVar("x"); ok {
		t.Fatal("a variable defined in a popped frame should not be visible")
	}
}
