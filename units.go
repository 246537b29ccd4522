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

// Recognized base units, grouped by physical dimension. Ratio units are
// combinations of these joined by " / " (see CanonicalUnit).
const (
	UnitKg    = "kg"
	UnitMt    = "mt"
	UnitTCO2e = "tco2e"
	UnitUnit  = "unit"
	UnitUnits = "units"
	UnitKWh   = "kwh"
	UnitPct   = "%"
	UnitYear  = "year"
	UnitYears = "years"

	// Reserved: sub-annual time is recognized syntactically so programs
	// using it parse, but no conversion route exists for these units.
	UnitMonth  = "month"
	UnitMonths = "months"
	UnitDay    = "day"
	UnitDays   = "days"
)

// Dimension classifies a base unit for conversion routing.
type Dimension int

const (
	DimUnknown Dimension = iota
	DimVolume
	DimConsumption
	DimPopulation
	DimEnergy
	DimPercent
	DimTime
)

// DimensionOf returns the physical dimension of a bare (non-ratio) unit.
func DimensionOf(unit string) Dimension {
	switch CanonicalUnit(unit) {
	case UnitKg, UnitMt:
		return DimVolume
	case UnitTCO2e:
		return DimConsumption
	case UnitUnit, UnitUnits:
		return DimPopulation
	case UnitKWh:
		return DimEnergy
	case UnitPct:
		return DimPercent
	case UnitYear, UnitYears:
		return DimTime
	default:
		return DimUnknown
	}
}

// IsVolumeUnit, IsPopulationUnit etc. are small readability helpers used
// throughout the converter and engine.
func IsVolumeUnit(unit string) bool      { return DimensionOf(unit) == DimVolume }
func IsConsumptionUnit(unit string) bool { return DimensionOf(unit) == DimConsumption }
func IsPopulationUnit(unit string) bool  { return DimensionOf(unit) == DimPopulation }
func IsEnergyUnit(unit string) bool      { return DimensionOf(unit) == DimEnergy }
func IsPercentUnit(unit string) bool     { return DimensionOf(unit) == DimPercent }
func IsTimeUnit(unit string) bool        { return DimensionOf(unit) == DimTime }

// YearSentinel values for a YearMatcher's open-ended bounds.
const (
	YearBegin   = "BEGIN"
	YearOnwards = "ONWARDS"
)

// YearMatcher is a {start?, end?} window over simulation years, each either
// a concrete year or one of the BEGIN/ONWARDS sentinels. A nil bound is
// open on that side.
type YearMatcher struct {
	Start *int
	End   *int
}

// Matches reports whether year matches the window once sentinels are
// resolved against [simStart, simEnd]. Start/End are commutative: the
// matcher matches [min(start,end), max(start,end)].
func (m YearMatcher) Matches(year, simStart, simEnd int) bool {
	lo, hi := simStart, simEnd
	if m.Start != nil {
		lo = *m.Start
	}
	if m.End != nil {
		hi = *m.End
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return year >= lo && year <= hi
}
