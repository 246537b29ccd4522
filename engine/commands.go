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
	"fmt"

	"github.com/kigamiprotocol/simcore"
	"github.com/kigamiprotocol/simcore/engine/enginerr"
	"github.com/kigamiprotocol/simcore/lang"
	"github.com/kigamiprotocol/simcore/lang/pushdown"
	"github.com/kigamiprotocol/simcore/stream"
	"github.com/shopspring/decimal"
)

// canonicalUnitForStream returns the canonical base unit a stream's value
// is carried in, used to pick the Converter's target unit for set/change/
// cap/floor.
func canonicalUnitForStream(name string) string {
	switch {
	case isVolumeStream(name):
		return simcore.UnitKg
	case name == StreamRechargeEmissions || name == StreamEolEmissions:
		return simcore.UnitTCO2e
	case isConsumptionStream(name):
		return simcore.UnitTCO2e
	case isPopulationStream(name):
		return simcore.UnitUnits
	case name == StreamEnergy:
		return simcore.UnitKWh
	default:
		return ""
	}
}

// canonicalizeRatio folds "mt" and singular "unit" halves of a ratio unit
// into the canonical "kg"/"units" forms the engine stores intensities and
// initial charges in, e.g. "1 tco2e / mt" becomes "0.001 tco2e / kg".
func canonicalizeRatio(v simcore.UnitValue) simcore.UnitValue {
	num, den := v.Numerator(), v.Denominator()
	mag := v.Magnitude
	switch num {
	case simcore.UnitMt:
		mag = mag.Mul(decimal.NewFromInt(1000))
		num = simcore.UnitKg
	}
	switch den {
	case simcore.UnitMt:
		mag = mag.DivRound(decimal.NewFromInt(1000), 10)
		den = simcore.UnitKg
	case simcore.UnitUnit:
		den = simcore.UnitUnits
	}
	return simcore.UnitValue{Magnitude: mag, Unit: num + " / " + den}
}

func durToMatcher(d *lang.During) simcore.YearMatcher {
	if d == nil {
		return simcore.YearMatcher{}
	}
	return simcore.YearMatcher{Start: d.StartLiteral, End: d.EndLiteral}
}

// evalExpr runs a compiled expression against this engine as its Env.
func (e *Engine) evalExpr(expr *lang.Expr) (pushdown.Value, error) {
	if expr == nil {
		return pushdown.Value{}, enginerr.New(enginerr.KindInternal, "", "missing expression operand")
	}
	return pushdown.Compile(expr).Run(e)
}

// resolveUnitValue evaluates amount and pairs it with unitSuffix, falling
// back to the unit carried by the literal itself (e.g. "50 kg") when no
// trailing unit clause follows the expression.
func (e *Engine) resolveUnitValue(amount *lang.Expr, unitSuffix string) (simcore.UnitValue, error) {
	v, err := e.evalExpr(amount)
	if err != nil {
		return simcore.UnitValue{}, err
	}
	unit := unitSuffix
	if unit == "" {
		unit = v.Unit
	}
	return simcore.UnitValue{Magnitude: v.Num, Unit: simcore.CanonicalUnit(unit)}, nil
}

// ExecuteOperations runs every operation in ops that applies to the
// engine's current year, in source order, against the current scope. The
// caller (the scenario driver) has already called SetScope.
func (e *Engine) ExecuteOperations(ops []*lang.Operation) error {
	for _, op := range ops {
		if !durToMatcher(op.During).Matches(e.Year, e.StartYear, e.EndYear) {
			continue
		}
		if err := e.applyOperation(op); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyOperation(op *lang.Operation) error {
	k, err := e.current()
	if err != nil {
		return err
	}
	switch op.Kind {
	case lang.OpEnable:
		return e.applyEnable(k, op)
	case lang.OpInitialCharge:
		return e.applyInitialCharge(k, op)
	case lang.OpEquals:
		return e.applyEquals(k, op)
	case lang.OpSet:
		return e.applySetChange(k, op, simcore.PercentSet)
	case lang.OpChange:
		return e.applySetChange(k, op, simcore.PercentChange)
	case lang.OpCap:
		return e.applyCapFloor(k, op, true)
	case lang.OpFloor:
		return e.applyCapFloor(k, op, false)
	case lang.OpRecharge:
		return e.applyRecharge(k, op)
	case lang.OpRetire:
		return e.applyRetire(k, op)
	case lang.OpRecover:
		return e.applyRecover(k, op)
	case lang.OpReplace:
		return e.applyReplace(k, op)
	case lang.OpDefine:
		return e.applyDefine(op)
	case lang.OpGet:
		return e.applyGet(k, op)
	default:
		return enginerr.New(enginerr.KindInternal, "", fmt.Sprintf("unhandled operation kind %v", op.Kind))
	}
}

func (e *Engine) applyEnable(k *stream.Keeper, op *lang.Operation) error {
	k.EnabledChannels[op.Channel] = true
	return nil
}

func (e *Engine) applyInitialCharge(k *stream.Keeper, op *lang.Operation) error {
	raw, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	k.InitialChargeByChannel[op.Channel] = canonicalizeRatio(raw)
	return e.recalcFromSales(k)
}

func (e *Engine) applyEquals(k *stream.Keeper, op *lang.Operation) error {
	raw, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	canon := canonicalizeRatio(raw)
	switch canon.Numerator() {
	case simcore.UnitTCO2e:
		k.GHGIntensityVal = canon
		k.HasGHG = true
	case simcore.UnitKWh:
		k.EnergyIntensityVal = canon
		k.HasEnergy = true
	default:
		return enginerr.New(enginerr.KindUnit, "equals", fmt.Sprintf("%q is neither a GHG nor an energy intensity", canon.Unit))
	}
	return e.recalcFromSales(k)
}

func (e *Engine) applySetChange(k *stream.Keeper, op *lang.Operation, pc simcore.PercentCommand) error {
	target := canonicalUnitForStream(op.Stream)
	if target == "" {
		return enginerr.New(enginerr.KindReference, "", fmt.Sprintf("unknown stream %q", op.Stream))
	}
	raw, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	base, err := e.readStream(k, op.Stream)
	if err != nil {
		return err
	}
	ctx := e.contextFor(k)
	converted, err := (simcore.Converter{}).Convert(raw, target, ctx, base, pc)
	if err != nil {
		return err
	}
	newVal := converted
	if pc == simcore.PercentChange && !simcore.IsPercentUnit(raw.Unit) {
		newVal = simcore.UnitValue{Magnitude: base.Magnitude.Add(converted.Magnitude), Unit: target}
	}
	return e.writeStream(k, op.Stream, newVal)
}

func (e *Engine) applyCapFloor(k *stream.Keeper, op *lang.Operation, isCap bool) error {
	target := canonicalUnitForStream(op.Stream)
	if target == "" {
		return enginerr.New(enginerr.KindReference, "", fmt.Sprintf("unknown stream %q", op.Stream))
	}
	current, err := e.readStream(k, op.Stream)
	if err != nil {
		return err
	}
	raw, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	limit, err := (simcore.Converter{}).Convert(raw, target, e.contextFor(k), current, simcore.PercentCapFloor)
	if err != nil {
		return err
	}

	var newVal simcore.UnitValue
	diff := decimal.Zero
	if isCap {
		if current.Magnitude.GreaterThan(limit.Magnitude) {
			diff = current.Magnitude.Sub(limit.Magnitude)
			newVal = limit
		} else {
			newVal = current
		}
	} else {
		if current.Magnitude.LessThan(limit.Magnitude) {
			diff = limit.Magnitude.Sub(current.Magnitude)
			newVal = limit
		} else {
			newVal = current
		}
	}

	if err := e.writeStream(k, op.Stream, newVal); err != nil {
		return err
	}

	if !diff.IsZero() && op.DisplaceTo != "" {
		dest, err := e.keeperForSubstanceInCurrentApp(op.DisplaceTo)
		if err != nil {
			return err
		}
		addedMag, err := e.crossSubstanceConvert(diff, target, e.contextFor(k), e.contextFor(dest), target)
		if err != nil {
			return err
		}
		destCur, err := e.readStream(dest, op.Stream)
		if err != nil {
			return err
		}
		if err := e.writeStream(dest, op.Stream, simcore.UnitValue{Magnitude: destCur.Magnitude.Add(addedMag), Unit: target}); err != nil {
			return err
		}
	}
	return nil
}

// crossSubstanceConvert re-expresses an amount carried in one substance's
// native stream unit as the equivalent amount in another substance's
// native unit, routing through equipment/population units so that
// differing initial charges are respected rather than transplanting raw
// mass (spec.md §4.3, "Replace ... preserves units, not mass" — the same
// rule governs cap/floor displacement). The leg from population units to
// the destination unit exists only for volume units: a consumption
// (tco2e) or energy (kwh) destination unit returns a UnitError.
func (e *Engine) crossSubstanceConvert(amount decimal.Decimal, unit string, srcCtx, destCtx simcore.ConversionContext, destUnit string) (decimal.Decimal, error) {
	pop, err := (simcore.Converter{}).Convert(simcore.UnitValue{Magnitude: amount, Unit: unit}, simcore.UnitUnits, srcCtx, simcore.UnitValue{}, simcore.PercentSet)
	if err != nil {
		return decimal.Decimal{}, err
	}
	native, err := (simcore.Converter{}).Convert(pop, destUnit, destCtx, simcore.UnitValue{}, simcore.PercentSet)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return native.Magnitude, nil
}

func (e *Engine) applyRecharge(k *stream.Keeper, op *lang.Operation) error {
	popPct, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	k.RechargePopPct = popPct
	if op.Second != nil {
		intensity, err := e.resolveUnitValue(op.Second, op.SecondUnit)
		if err != nil {
			return err
		}
		k.RechargeIntensityVal = canonicalizeRatio(intensity)
	}
	k.HasRecharge = true
	return e.recalcEquipmentFromSales(k)
}

func (e *Engine) applyRetire(k *stream.Keeper, op *lang.Operation) error {
	rate, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	k.RetireRate = rate
	k.HasRetire = true
	return e.recalcEquipmentFromSales(k)
}

func (e *Engine) applyRecover(k *stream.Keeper, op *lang.Operation) error {
	recoverRate, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}
	k.RecoveryRate = recoverRate
	if op.Second != nil {
		reuse, err := e.resolveUnitValue(op.Second, op.SecondUnit)
		if err != nil {
			return err
		}
		k.ReuseRate = reuse
	} else {
		k.ReuseRate = simcore.UnitValue{Magnitude: decimal.NewFromInt(100), Unit: simcore.UnitPct}
	}
	k.HasRecovery = true
	return e.recalcEquipmentFromSales(k)
}

// applyReplace moves an amount of one stream from the current substance
// to another, preserving the destination's own unit count rather than
// transplanting raw mass: a percent amount is a fraction of the stream's
// current value; any other amount (e.g. "2 units", "30 kg") is converted
// to equipment units via the source's own initial charge, then back into
// the destination stream's native unit via the destination's blended
// initial charge (spec.md §4.3, "Replace ... preserves units, not
// mass"). A stream in consumption units has no such route back and
// returns a UnitError.
func (e *Engine) applyReplace(k *stream.Keeper, op *lang.Operation) error {
	streamName := op.Stream
	if streamName == "" {
		streamName = StreamSales
	}
	raw, err := e.resolveUnitValue(op.Amount, op.Unit)
	if err != nil {
		return err
	}

	current, err := e.readStream(k, streamName)
	if err != nil {
		return err
	}

	// A percent amount moves that fraction of the stream's current value;
	// any other unit (e.g. "2 units", "30 kg") names an absolute quantity
	// and is converted into the stream's native unit via the source
	// substance's own initial charge, not multiplied against the current
	// value.
	var moved decimal.Decimal
	if simcore.IsPercentUnit(raw.Unit) {
		moved = current.Magnitude.Mul(pctFraction(raw))
	} else {
		inNative, err := (simcore.Converter{}).Convert(raw, current.Unit, e.contextFor(k), current, simcore.PercentSet)
		if err != nil {
			return err
		}
		moved = inNative.Magnitude
	}

	remaining := simcore.UnitValue{Magnitude: current.Magnitude.Sub(moved), Unit: current.Unit}
	if err := e.writeStream(k, streamName, remaining); err != nil {
		return err
	}

	dest, err := e.keeperForSubstanceInCurrentApp(op.ToSubstance)
	if err != nil {
		return err
	}

	destTarget := canonicalUnitForStream(streamName)
	addedMag, err := e.crossSubstanceConvert(moved, current.Unit, e.contextFor(k), e.contextFor(dest), destTarget)
	if err != nil {
		return err
	}
	destCur, err := e.readStream(dest, streamName)
	if err != nil {
		return err
	}
	return e.writeStream(dest, streamName, simcore.UnitValue{Magnitude: destCur.Magnitude.Add(addedMag), Unit: destTarget})
}

func (e *Engine) applyDefine(op *lang.Operation) error {
	v, err := e.evalExpr(op.Amount)
	if err != nil {
		return err
	}
	e.frame.vars[op.VarName] = v
	return nil
}

func (e *Engine) applyGet(k *stream.Keeper, op *lang.Operation) error {
	target := k
	if op.OfSubstance != "" {
		var err error
		target, err = e.keeperForSubstanceInCurrentApp(op.OfSubstance)
		if err != nil {
			return err
		}
	}
	v, err := e.readStream(target, op.Stream)
	if err != nil {
		return err
	}
	if op.AsUnit != "" && simcore.CanonicalUnit(op.AsUnit) != v.Unit {
		converted, err := (simcore.Converter{}).Convert(v, op.AsUnit, e.contextFor(target), v, simcore.PercentSet)
		if err != nil {
			return err
		}
		v = converted
	}
	e.log.WithFields(map[string]interface{}{
		"application": target.Application,
		"substance":   target.Substance,
		"stream":      op.Stream,
	}).Infof("get: %s", v.String())
	return nil
}
