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

package simutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kigamiprotocol/simcore"
	"github.com/shopspring/decimal"
)

func kg(n int64) simcore.UnitValue   { return simcore.UnitValue{Magnitude: decimal.NewFromInt(n), Unit: simcore.UnitKg} }
func tco2e(n int64) simcore.UnitValue { return simcore.UnitValue{Magnitude: decimal.NewFromInt(n), Unit: simcore.UnitTCO2e} }
func units(n int64) simcore.UnitValue { return simcore.UnitValue{Magnitude: decimal.NewFromInt(n), Unit: simcore.UnitUnits} }
func kwh(n int64) simcore.UnitValue   { return simcore.UnitValue{Magnitude: decimal.NewFromInt(n), Unit: simcore.UnitKWh} }

func TestResultWriterWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewResultWriter(&buf)
	row := simcore.Result{
		ScenarioName:        "S1",
		TrialNumber:         0,
		Application:         "Refrigeration",
		Substance:           "HFC-134a",
		Year:                2025,
		Manufacture:         kg(80),
		Import:              kg(0),
		Export:              kg(0),
		Recycle:             kg(0),
		DomesticConsumption: tco2e(0),
		ImportConsumption:   tco2e(0),
		ExportConsumption:   tco2e(0),
		RecycleConsumption:  tco2e(0),
		Population:          units(160),
		PopulationNew:       units(160),
		RechargeEmissions:   tco2e(0),
		EolEmissions:        tco2e(0),
		EnergyConsumption:   kwh(0),
	}
	if err := w.WriteAll([]simcore.Result{row}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (header + one row): %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Scenario,Trial,Application,Substance,Year") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "S1") || !strings.Contains(lines[1], "80 kg") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestResultWriterWritesHeaderOnlyOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewResultWriter(&buf)
	row := simcore.Result{ScenarioName: "S1", Manufacture: kg(1)}
	if err := w.WriteAll([]simcore.Result{row}); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := w.WriteAll([]simcore.Result{row}); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	w.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (one header, two rows): %q", len(lines), buf.String())
	}
}
