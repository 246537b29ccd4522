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

package simcore

import (
	"testing"

	"github.com/shopspring/decimal"
)

func kg(n int64) UnitValue { return UnitValue{Magnitude: decimal.NewFromInt(n), Unit: UnitKg} }
func tco2e(n int64) UnitValue { return UnitValue{Magnitude: decimal.NewFromInt(n), Unit: UnitTCO2e} }

func TestResultSalesSubtractsRecycleOffset(t *testing.T) {
	r := Result{Manufacture: kg(80), Import: kg(20), Recycle: kg(15)}
	sales := r.Sales()
	if !sales.Magnitude.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("sales = %s, want 85 (80+20-15)", sales.Magnitude)
	}
}

func TestResultGHGConsumption(t *testing.T) {
	r := Result{
		DomesticConsumption: tco2e(10),
		ImportConsumption:   tco2e(4),
		RecycleConsumption:  tco2e(1),
	}
	if got := r.GHGConsumption(); !got.Magnitude.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("GHGConsumption = %s, want 15", got.Magnitude)
	}
	if got := r.GHGConsumptionExcludingRecycling(); !got.Magnitude.Equal(decimal.NewFromInt(14)) {
		t.Fatalf("GHGConsumptionExcludingRecycling = %s, want 14", got.Magnitude)
	}
}

func TestAggregateSumsMatchingUnits(t *testing.T) {
	a := Result{ScenarioName: "S", Manufacture: kg(50), Import: kg(10)}
	b := Result{ScenarioName: "S", Manufacture: kg(30), Import: kg(5)}
	out, err := Aggregate([]Result{a, b})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !out.Manufacture.Magnitude.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("aggregated manufacture = %s, want 80", out.Manufacture.Magnitude)
	}
	if !out.Import.Magnitude.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("aggregated import = %s, want 35", out.Import.Magnitude)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	out, err := Aggregate(nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.ScenarioName != "" {
		t.Fatalf("expected a zero-value Result, got %+v", out)
	}
}
