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

import "github.com/shopspring/decimal"

// TradeSupplement carries the subset of a cell's import/export volume,
// consumption, and population attributable to the initial charge of
// newly traded equipment, per spec.md §3.
type TradeSupplement struct {
	ImportInitialChargeValue       UnitValue
	ImportInitialChargeConsumption UnitValue
	ImportInitialChargePopulation  UnitValue
	ExportInitialChargeValue       UnitValue
	ExportInitialChargeConsumption UnitValue
	ExportInitialChargePopulation  UnitValue
}

// Result is the immutable per-(scenario, trial, year, application,
// substance) output record.
type Result struct {
	ScenarioName string
	TrialNumber  int
	Application  string
	Substance    string
	Year         int

	Manufacture UnitValue
	Import      UnitValue
	Export      UnitValue
	Recycle     UnitValue

	DomesticConsumption UnitValue
	ImportConsumption   UnitValue
	ExportConsumption   UnitValue
	RecycleConsumption  UnitValue

	Population    UnitValue
	PopulationNew UnitValue

	RechargeEmissions UnitValue
	EolEmissions      UnitValue
	EnergyConsumption UnitValue

	TradeSupplement TradeSupplement
}

// Sales returns manufacture + import - recycle, the aggregate sales
// volume (spec.md §3: recycled material offsets virgin production).
func (r Result) Sales() UnitValue {
	return UnitValue{
		Magnitude: r.Manufacture.Magnitude.Add(r.Import.Magnitude).Sub(r.Recycle.Magnitude),
		Unit:      r.Manufacture.Unit,
	}
}

// GHGConsumption returns total GHG-equivalent consumption including
// recycling: domestic + import + recycle.
func (r Result) GHGConsumption() UnitValue {
	return UnitValue{
		Magnitude: r.DomesticConsumption.Magnitude.
			Add(r.ImportConsumption.Magnitude).
			Add(r.RecycleConsumption.Magnitude),
		Unit: r.DomesticConsumption.Unit,
	}
}

// GHGConsumptionExcludingRecycling returns domestic + import only.
func (r Result) GHGConsumptionExcludingRecycling() UnitValue {
	return UnitValue{
		Magnitude: r.DomesticConsumption.Magnitude.Add(r.ImportConsumption.Magnitude),
		Unit:      r.DomesticConsumption.Unit,
	}
}

// TotalEmissions returns recharge + end-of-life emissions.
func (r Result) TotalEmissions() UnitValue {
	return UnitValue{
		Magnitude: r.RechargeEmissions.Magnitude.Add(r.EolEmissions.Magnitude),
		Unit:      r.RechargeEmissions.Unit,
	}
}

// Aggregate sums a set of Results that share a unit system into a single
// combined record. Application/Substance/Year/ScenarioName/TrialNumber are
// taken from the first element and are not meaningful for a true
// cross-cell aggregate; callers that aggregate across cells should treat
// those fields as informational only.
func Aggregate(results []Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, nil
	}
	out := Result{
		ScenarioName: results[0].ScenarioName,
		TrialNumber:  results[0].TrialNumber,
		Application:  results[0].Application,
		Substance:    results[0].Substance,
		Year:         results[0].Year,
	}
	sum := func(acc *UnitValue, v UnitValue) error {
		if acc.Unit == "" {
			*acc = UnitValue{Magnitude: v.Magnitude, Unit: v.Unit}
			return nil
		}
		if v.Magnitude.Equal(decimal.Zero) && v.Unit == "" {
			return nil
		}
		if acc.Unit != v.Unit {
			return &UnitError{From: v.Unit, To: acc.Unit, Reason: "aggregate requires unit-identical cells"}
		}
		acc.Magnitude = acc.Magnitude.Add(v.Magnitude)
		return nil
	}
	fields := []struct {
		acc *UnitValue
		get func(Result) UnitValue
	}{
		{&out.Manufacture, func(r Result) UnitValue { return r.Manufacture }},
		{&out.Import, func(r Result) UnitValue { return r.Import }},
		{&out.Export, func(r Result) UnitValue { return r.Export }},
		{&out.Recycle, func(r Result) UnitValue { return r.Recycle }},
		{&out.DomesticConsumption, func(r Result) UnitValue { return r.DomesticConsumption }},
		{&out.ImportConsumption, func(r Result) UnitValue { return r.ImportConsumption }},
		{&out.ExportConsumption, func(r Result) UnitValue { return r.ExportConsumption }},
		{&out.RecycleConsumption, func(r Result) UnitValue { return r.RecycleConsumption }},
		{&out.Population, func(r Result) UnitValue { return r.Population }},
		{&out.PopulationNew, func(r Result) UnitValue { return r.PopulationNew }},
		{&out.RechargeEmissions, func(r Result) UnitValue { return r.RechargeEmissions }},
		{&out.EolEmissions, func(r Result) UnitValue { return r.EolEmissions }},
		{&out.EnergyConsumption, func(r Result) UnitValue { return r.EnergyConsumption }},
	}
	for _, res := range results {
		for _, f := range fields {
			if err := sum(f.acc, f.get(res)); err != nil {
				return Result{}, err
			}
		}
	}
	return out, nil
}
