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

// fakeCtx is a minimal ConversionContext for exercising the Converter in
// isolation, without a full engine/stream.Keeper.
type fakeCtx struct {
	ghg, energy, charge UnitValue
	hasGHG, hasEnergy, hasCharge bool
	population, consumption      UnitValue
	years                        int
}

func (c fakeCtx) GHGIntensity() (UnitValue, bool)    { return c.ghg, c.hasGHG }
func (c fakeCtx) EnergyIntensity() (UnitValue, bool) { return c.energy, c.hasEnergy }
func (c fakeCtx) InitialCharge(string) (UnitValue, bool) { return c.charge, c.hasCharge }
func (c fakeCtx) BlendedInitialCharge() (UnitValue, bool) { return c.charge, c.hasCharge }
func (c fakeCtx) Population() UnitValue  { return c.population }
func (c fakeCtx) Consumption() UnitValue { return c.consumption }
func (c fakeCtx) YearsElapsed() int      { return c.years }

func TestConvertSameDimensionMassAliases(t *testing.T) {
	v := UnitValue{Magnitude: decimal.NewFromInt(1000), Unit: UnitKg}
	got, err := (Converter{}).Convert(v, UnitMt, fakeCtx{}, UnitValue{}, PercentSet)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !got.Magnitude.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("1000 kg -> mt = %s, want 1", got.Magnitude)
	}
}

func TestConvertVolumeToConsumptionViaGHGIntensity(t *testing.T) {
	ctx := fakeCtx{
		ghg:    UnitValue{Magnitude: decimal.NewFromInt(2), Unit: "tco2e / kg"},
		hasGHG: true,
	}
	v := UnitValue{Magnitude: decimal.NewFromInt(50), Unit: UnitKg}
	got, err := (Converter{}).Convert(v, UnitTCO2e, ctx, UnitValue{}, PercentSet)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !got.Magnitude.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("50 kg @ 2 tco2e/kg -> %s tco2e, want 100", got.Magnitude)
	}
}

func TestConvertVolumeToPopulationViaInitialCharge(t *testing.T) {
	ctx := fakeCtx{
		charge:    UnitValue{Magnitude: decimal.NewFromFloat(0.5), Unit: "kg / units"},
		hasCharge: true,
	}
	v := UnitValue{Magnitude: decimal.NewFromInt(100), Unit: UnitKg}
	got, err := (Converter{}).Convert(v, UnitUnits, ctx, UnitValue{}, PercentSet)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !got.Magnitude.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("100 kg @ 0.5 kg/unit -> %s units, want 200", got.Magnitude)
	}
}

func TestConvertPercentChangeAddsToBase(t *testing.T) {
	base := UnitValue{Magnitude: decimal.NewFromInt(100), Unit: UnitKg}
	pct := UnitValue{Magnitude: decimal.NewFromInt(10), Unit: UnitPct}
	got, err := (Converter{}).Convert(pct, UnitKg, fakeCtx{}, base, PercentChange)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !got.Magnitude.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("100 kg changed by +10%% = %s, want 110", got.Magnitude)
	}
}

func TestConvertUnsupportedRouteIsAnError(t *testing.T) {
	v := UnitValue{Magnitude: decimal.NewFromInt(1), Unit: UnitKg}
	_, err := (Converter{}).Convert(v, UnitYear, fakeCtx{}, UnitValue{}, PercentSet)
	if err == nil {
		t.Fatal("expected an error converting mass to a time unit")
	}
	if _, ok := err.(*UnitError); !ok {
		t.Fatalf("expected a *UnitError, got %T: %v", err, err)
	}
}
