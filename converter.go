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
	"fmt"

	"github.com/shopspring/decimal"
)

// PercentCommand distinguishes the percent-semantics table in the spec:
// the same "%" unit means something different depending on which command
// is applying it.
type PercentCommand int

const (
	PercentSet PercentCommand = iota
	PercentChange
	PercentRetire
	PercentCapFloor
	PercentUniform // recover / replace: uniform across substreams
)

// ConversionContext supplies the engine state a conversion needs:
// intensities, population, initial charge per channel, and elapsed time.
// stream.Keeper implements this; it lives here (not in package stream) so
// that Converter has no import-cycle back into the engine packages.
type ConversionContext interface {
	GHGIntensity() (UnitValue, bool)    // tco2e / mass
	EnergyIntensity() (UnitValue, bool) // kwh / mass
	InitialCharge(channel string) (UnitValue, bool)
	// BlendedInitialCharge returns the sales-volume-weighted average
	// initial charge across the channels with a recorded initial charge
	// (whether or not a channel is enabled), used when a conversion
	// needs to move between population and volume without a specific
	// channel in context (see DESIGN.md: population<->volume routing).
	BlendedInitialCharge() (UnitValue, bool)
	Population() UnitValue // units
	Consumption() UnitValue
	YearsElapsed() int
}

// UnitError reports a conversion that has no supported route, naming the
// offending units per the spec's error-message requirement.
type UnitError struct {
	From, To string
	Command  string
	Reason   string
}

func (e *UnitError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("cannot convert %q to %q for %s: %s", e.From, e.To, e.Command, e.Reason)
	}
	return fmt.Sprintf("cannot convert %q to %q: %s", e.From, e.To, e.Reason)
}

// Converter converts UnitValues into a target unit using current engine
// state. It holds no state of its own.
type Converter struct{}

// Convert converts v into targetUnit. base is the current value of the
// stream being written (same dimension as targetUnit); it is only
// consulted when v is a percent and cmd selects the percent formula.
func (Converter) Convert(v UnitValue, targetUnit string, ctx ConversionContext, base UnitValue, cmd PercentCommand) (UnitValue, error) {
	target := CanonicalUnit(targetUnit)
	if v.Unit == target {
		return UnitValue{Magnitude: v.Magnitude, Unit: target}, nil
	}

	if IsPercentUnit(v.Unit) {
		return convertPercent(v, target, base, cmd)
	}

	if v.IsRatio() {
		return convertRatio(v, target, ctx)
	}

	// Same-dimension, different base unit (kg<->mt, unit<->units, year<->years).
	if DimensionOf(v.Unit) == DimensionOf(target) && DimensionOf(v.Unit) != DimUnknown {
		return convertSameDimension(v, target)
	}

	switch DimensionOf(target) {
	case DimVolume:
		return toVolume(v, ctx)
	case DimConsumption:
		return toConsumption(v, ctx)
	case DimPopulation:
		return toPopulation(v, ctx)
	case DimEnergy:
		return toEnergy(v, ctx)
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: target, Reason: "no supported conversion route"}
}

func convertPercent(v UnitValue, target string, base UnitValue, cmd PercentCommand) (UnitValue, error) {
	pct := v.Magnitude.Div(decimal.NewFromInt(100))
	switch cmd {
	case PercentSet, PercentCapFloor:
		return UnitValue{Magnitude: base.Magnitude.Mul(pct), Unit: target}, nil
	case PercentChange:
		one := decimal.NewFromInt(1)
		return UnitValue{Magnitude: base.Magnitude.Mul(one.Add(pct)), Unit: target}, nil
	case PercentRetire:
		return UnitValue{Magnitude: base.Magnitude.Mul(pct), Unit: target}, nil
	case PercentUniform:
		return UnitValue{Magnitude: pct, Unit: UnitPct}, nil
	default:
		return UnitValue{Magnitude: base.Magnitude.Mul(pct), Unit: target}, nil
	}
}

func convertSameDimension(v UnitValue, target string) (UnitValue, error) {
	switch {
	case v.Unit == UnitKg && target == UnitMt:
		return UnitValue{Magnitude: v.Magnitude.Div(decimal.NewFromInt(1000)), Unit: target}, nil
	case v.Unit == UnitMt && target == UnitKg:
		return UnitValue{Magnitude: v.Magnitude.Mul(decimal.NewFromInt(1000)), Unit: target}, nil
	default:
		// unit<->units, year<->years: pure aliases.
		return UnitValue{Magnitude: v.Magnitude, Unit: target}, nil
	}
}

// convertRatio handles "numerator / denominator" source units: "kg / unit",
// "tco2e / mt", "kg / year", "x / tco2e".
func convertRatio(v UnitValue, target string, ctx ConversionContext) (UnitValue, error) {
	num, den := v.Numerator(), v.Denominator()
	switch {
	case DimensionOf(den) == DimTime:
		// x / year: multiply by elapsed years.
		years := decimal.NewFromInt(int64(ctx.YearsElapsed()))
		return Converter{}.Convert(UnitValue{Magnitude: v.Magnitude.Mul(years), Unit: num}, target, ctx, UnitValue{}, PercentSet)
	case DimensionOf(den) == DimPopulation:
		// x / unit: multiply by current population.
		pop := ctx.Population()
		return Converter{}.Convert(UnitValue{Magnitude: v.Magnitude.Mul(pop.Magnitude), Unit: num}, target, ctx, UnitValue{}, PercentSet)
	case DimensionOf(den) == DimConsumption:
		// x / tco2e: multiply by current consumption.
		cons := ctx.Consumption()
		return Converter{}.Convert(UnitValue{Magnitude: v.Magnitude.Mul(cons.Magnitude), Unit: num}, target, ctx, UnitValue{}, PercentSet)
	case DimensionOf(den) == DimVolume:
		// x / mass (e.g. tco2e / mt GHG intensity used inverted): the ratio
		// is inverted, and the conversion succeeds only when the inverted
		// unit is the target unit itself.
		return invertRatioConvert(v, target, ctx)
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: target, Reason: "unsupported ratio denominator"}
}

// invertRatioConvert is used when a ratio could only be made valid by
// inversion (spec 4.1: "Where a ratio could be inverted ... inversion is
// permitted").
func invertRatioConvert(v UnitValue, target string, ctx ConversionContext) (UnitValue, error) {
	inv := UnitValue{Magnitude: decimal.NewFromInt(1).DivRound(v.Magnitude, 10), Unit: v.Denominator() + " / " + v.Numerator()}
	if inv.Unit == target {
		return inv, nil
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: target, Reason: "no supported conversion route after inversion"}
}

func toVolume(v UnitValue, ctx ConversionContext) (UnitValue, error) {
	switch DimensionOf(v.Unit) {
	case DimConsumption:
		ghg, ok := ctx.GHGIntensity()
		if !ok || ghg.Magnitude.IsZero() {
			return UnitValue{}, &UnitError{From: v.Unit, To: "volume", Reason: "GHG intensity is unset or zero"}
		}
		mass := v.Magnitude.DivRound(ghg.Magnitude, 10)
		return UnitValue{Magnitude: mass, Unit: ghg.Denominator()}, nil
	case DimPopulation:
		charge, ok := ctx.BlendedInitialCharge()
		if !ok || charge.Magnitude.IsZero() {
			return UnitValue{}, &UnitError{From: v.Unit, To: "volume", Reason: "initial charge is unset or zero"}
		}
		return UnitValue{Magnitude: v.Magnitude.Mul(charge.Magnitude), Unit: charge.Numerator()}, nil
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: "volume", Reason: "unsupported source dimension"}
}

func toConsumption(v UnitValue, ctx ConversionContext) (UnitValue, error) {
	if DimensionOf(v.Unit) == DimVolume {
		ghg, ok := ctx.GHGIntensity()
		if !ok {
			return UnitValue{}, &UnitError{From: v.Unit, To: "consumption", Reason: "GHG intensity is unset"}
		}
		massInGHGUnits := v
		if v.Unit != ghg.Denominator() {
			var err error
			massInGHGUnits, err = Converter{}.Convert(v, ghg.Denominator(), ctx, UnitValue{}, PercentSet)
			if err != nil {
				return UnitValue{}, err
			}
		}
		return UnitValue{Magnitude: massInGHGUnits.Magnitude.Mul(ghg.Magnitude), Unit: ghg.Numerator()}, nil
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: "consumption", Reason: "unsupported source dimension"}
}

func toPopulation(v UnitValue, ctx ConversionContext) (UnitValue, error) {
	switch DimensionOf(v.Unit) {
	case DimVolume:
		charge, ok := ctx.BlendedInitialCharge()
		if !ok || charge.Magnitude.IsZero() {
			return UnitValue{}, &UnitError{From: v.Unit, To: "population", Reason: "initial charge is unset or zero"}
		}
		massInChargeUnits := v
		if v.Unit != charge.Numerator() {
			var err error
			massInChargeUnits, err = Converter{}.Convert(v, charge.Numerator(), ctx, UnitValue{}, PercentSet)
			if err != nil {
				return UnitValue{}, err
			}
		}
		return UnitValue{Magnitude: massInChargeUnits.Magnitude.DivRound(charge.Magnitude, 10), Unit: UnitUnits}, nil
	case DimConsumption:
		vol, err := toVolume(v, ctx)
		if err != nil {
			return UnitValue{}, err
		}
		return toPopulation(vol, ctx)
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: "population", Reason: "unsupported source dimension"}
}

func toEnergy(v UnitValue, ctx ConversionContext) (UnitValue, error) {
	if DimensionOf(v.Unit) == DimVolume {
		energy, ok := ctx.EnergyIntensity()
		if !ok {
			return UnitValue{}, &UnitError{From: v.Unit, To: "energy", Reason: "energy intensity is unset"}
		}
		massInEnergyUnits := v
		if v.Unit != energy.Denominator() {
			var err error
			massInEnergyUnits, err = Converter{}.Convert(v, energy.Denominator(), ctx, UnitValue{}, PercentSet)
			if err != nil {
				return UnitValue{}, err
			}
		}
		return UnitValue{Magnitude: massInEnergyUnits.Magnitude.Mul(energy.Magnitude), Unit: energy.Numerator()}, nil
	}
	return UnitValue{}, &UnitError{From: v.Unit, To: "energy", Reason: "unsupported source dimension"}
}
