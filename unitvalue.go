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

// Package simcore holds the stable data types of the Montreal Protocol /
// Kigali Amendment simulation engine: the exact-decimal Unit Value, the
// unit-aware converter built on top of it, and the per-cell Result record
// that the engine and scenario driver produce.
package simcore

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Default division precision: 10 fractional digits, half-up rounding,
	// per the engine's exact-decimal invariant.
	decimal.DivisionPrecision = 10
}

// Version is the semver printed by the "version" CLI subcommand.
const Version = "0.1.0"

// UnitValue is an exact-decimal magnitude paired with a canonical,
// lowercase unit string. Ratio units are written numerator "/" denominator
// (e.g. "kg / unit", "tco2e / mt"). An empty unit denotes a pure number.
type UnitValue struct {
	Magnitude decimal.Decimal
	Unit      string
}

// NewUnitValue builds a UnitValue, canonicalizing the unit string.
func NewUnitValue(magnitude decimal.Decimal, unit string) UnitValue {
	return UnitValue{Magnitude: magnitude, Unit: CanonicalUnit(unit)}
}

// CanonicalUnit lowercases and trims whitespace around "/" so that
// "kg/unit", "kg / unit" and "KG / UNIT" all compare equal.
func CanonicalUnit(unit string) string {
	parts := strings.Split(unit, "/")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, " / ")
}

// IsRatio reports whether the unit is a compound "numerator / denominator"
// unit rather than a bare unit or pure number.
func (u UnitValue) IsRatio() bool {
	return strings.Contains(u.Unit, "/")
}

// Numerator returns the numerator half of a ratio unit (or the whole unit,
// for a non-ratio value).
func (u UnitValue) Numerator() string {
	parts := strings.SplitN(u.Unit, "/", 2)
	return strings.TrimSpace(parts[0])
}

// Denominator returns the denominator half of a ratio unit, or "" if the
// unit is not a ratio.
func (u UnitValue) Denominator() string {
	parts := strings.SplitN(u.Unit, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IsZero reports whether the magnitude is exactly zero, regardless of unit.
func (u UnitValue) IsZero() bool {
	return u.Magnitude.IsZero()
}

// Add returns u+o. Callers are responsible for ensuring units match; use
// the Converter to bring values into a common unit first.
func (u UnitValue) Add(o UnitValue) UnitValue {
	return UnitValue{Magnitude: u.Magnitude.Add(o.Magnitude), Unit: u.Unit}
}

// Sub returns u-o. It never clamps; callers decide whether a negative
// result is clamped to zero.
func (u UnitValue) Sub(o UnitValue) UnitValue {
	return UnitValue{Magnitude: u.Magnitude.Sub(o.Magnitude), Unit: u.Unit}
}

// ClampNonNegative returns u with a zero magnitude if u is negative.
func (u UnitValue) ClampNonNegative() UnitValue {
	if u.Magnitude.IsNegative() {
		return UnitValue{Magnitude: decimal.Zero, Unit: u.Unit}
	}
	return u
}

// MulScalar scales the magnitude by a plain decimal factor, leaving the
// unit unchanged.
func (u UnitValue) MulScalar(factor decimal.Decimal) UnitValue {
	return UnitValue{Magnitude: u.Magnitude.Mul(factor), Unit: u.Unit}
}

// String renders the value as "<decimal> <unit>", the form used by the CSV
// writer and error messages.
func (u UnitValue) String() string {
	if u.Unit == "" {
		return u.Magnitude.String()
	}
	return fmt.Sprintf("%s %s", u.Magnitude.String(), u.Unit)
}
