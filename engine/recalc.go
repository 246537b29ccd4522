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
	"github.com/kigamiprotocol/simcore/stream"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// pctFraction reads a percent-shaped UnitValue (magnitude 10 for "10%") as
// a 0..1 fraction. Rates that were never given a "%" unit are already a
// fraction and pass through unchanged.
func pctFraction(v simcore.UnitValue) decimal.Decimal {
	if v.Unit == simcore.UnitPct {
		return v.Magnitude.DivRound(decimal.NewFromInt(100), 10)
	}
	return v.Magnitude
}

// updateConsumptionAndEnergyFromVolumes recomputes the four consumption
// substreams and energy consumption from the current sales volumes and the
// saved GHG/energy intensities (spec.md §4.3, "Sales set/change ->
// Consumption: = sales × GHG").
func (e *Engine) updateConsumptionAndEnergyFromVolumes(k *stream.Keeper) {
	if k.HasGHG {
		ghg := k.GHGIntensityVal
		conv := func(vol simcore.UnitValue) simcore.UnitValue {
			mag := vol.Magnitude
			if vol.Unit != ghg.Denominator() {
				if c, err := (simcore.Converter{}).Convert(vol, ghg.Denominator(), e.contextFor(k), simcore.UnitValue{}, simcore.PercentSet); err == nil {
					mag = c.Magnitude
				}
			}
			return simcore.UnitValue{Magnitude: mag.Mul(ghg.Magnitude), Unit: ghg.Numerator()}
		}
		k.DomesticConsumption = conv(k.Manufacture)
		k.ImportConsumption = conv(k.ImportVol)
		k.ExportConsumption = conv(k.ExportVol)
		k.RecycleConsumption = conv(k.RecycleVol)
	}
	if k.HasEnergy {
		en := k.EnergyIntensityVal
		sales := k.Sales()
		mag := sales.Magnitude
		if sales.Unit != en.Denominator() {
			if c, err := (simcore.Converter{}).Convert(sales, en.Denominator(), e.contextFor(k), simcore.UnitValue{}, simcore.PercentSet); err == nil {
				mag = c.Magnitude
			}
		}
		k.EnergyConsumption = simcore.UnitValue{Magnitude: mag.Mul(en.Magnitude), Unit: en.Numerator()}
	}
}

// recalcFromSales is the propagation entry point for any write to a sales
// substream: it refreshes consumption/energy from the new volumes, then
// refreshes equipment from the new sales total.
func (e *Engine) recalcFromSales(k *stream.Keeper) error {
	e.updateConsumptionAndEnergyFromVolumes(k)
	return e.recalcEquipmentFromSales(k)
}

// recalcFromConsumption is the propagation entry point for a direct write
// to a consumption substream: it backs out sales volumes via GHG
// intensity (spec.md §4.3, "Consumption set/change -> Sales: = cons ÷
// GHG"), refreshes energy from the new sales, then refreshes equipment.
func (e *Engine) recalcFromConsumption(k *stream.Keeper) error {
	if k.HasGHG {
		ghg := k.GHGIntensityVal
		if !ghg.Magnitude.IsZero() {
			toVol := func(c simcore.UnitValue) decimal.Decimal {
				return c.Magnitude.DivRound(ghg.Magnitude, 10)
			}
			k.Manufacture = simcore.UnitValue{Magnitude: toVol(k.DomesticConsumption), Unit: ghg.Denominator()}
			k.ImportVol = simcore.UnitValue{Magnitude: toVol(k.ImportConsumption), Unit: ghg.Denominator()}
			k.ExportVol = simcore.UnitValue{Magnitude: toVol(k.ExportConsumption), Unit: ghg.Denominator()}
			k.RecycleVol = simcore.UnitValue{Magnitude: toVol(k.RecycleConsumption), Unit: ghg.Denominator()}
		}
	}
	if k.HasEnergy {
		en := k.EnergyIntensityVal
		sales := k.Sales()
		mag := sales.Magnitude
		if sales.Unit != en.Denominator() {
			if c, err := (simcore.Converter{}).Convert(sales, en.Denominator(), e.contextFor(k), simcore.UnitValue{}, simcore.PercentSet); err == nil {
				mag = c.Magnitude
			}
		}
		k.EnergyConsumption = simcore.UnitValue{Magnitude: mag.Mul(en.Magnitude), Unit: en.Numerator()}
	}
	return e.recalcEquipmentFromSales(k)
}

// recalcEquipmentFromSales is the sales/recharge/retire/recover ->
// equipment leg of the dependency graph (spec.md §4.3): it never writes
// sales itself, only equipment, newEquipment, recycle volume/consumption,
// recharge emissions and end-of-life emissions.
func (e *Engine) recalcEquipmentFromSales(k *stream.Keeper) error {
	charge, ok := k.BlendedInitialCharge()
	sales := k.Sales()
	if !ok {
		if !sales.Magnitude.IsZero() {
			return enginerr.New(enginerr.KindConfiguration, "", fmt.Sprintf("substance %q has sales volume but no initial charge is set for any channel", k.Substance))
		}
		return nil
	}
	if charge.Magnitude.IsZero() {
		return enginerr.New(enginerr.KindConfiguration, "", fmt.Sprintf("substance %q has a zero initial charge", k.Substance))
	}

	prior := k.PriorEquipment.Magnitude

	retired := decimal.Zero
	if k.HasRetire {
		retired = prior.Mul(pctFraction(k.RetireRate))
	}

	rechargeMass := decimal.Zero
	if k.HasRecharge {
		rechargeMass = prior.Mul(pctFraction(k.RechargePopPct)).Mul(k.RechargeIntensityVal.Magnitude)
	}

	recycleMass := decimal.Zero
	if k.HasRecovery {
		recycleMass = prior.Mul(k.RechargeIntensityVal.Magnitude).Mul(pctFraction(k.RecoveryRate)).Mul(pctFraction(k.ReuseRate))
	}

	offsetRate := pctFraction(k.DisplacementRate)
	virgin := sales.Magnitude.Sub(rechargeMass).Add(recycleMass.Mul(offsetRate))
	if virgin.IsNegative() {
		virgin = decimal.Zero
	}

	addedUnits := virgin.DivRound(charge.Magnitude, 10)
	newEquip := prior.Add(addedUnits).Sub(retired)
	if newEquip.IsNegative() {
		e.log.WithFields(logrus.Fields{"year": e.Year, "application": k.Application, "substance": k.Substance}).Warn("equipment population clamped to zero")
		newEquip = decimal.Zero
	}

	k.NewEquipment = simcore.UnitValue{Magnitude: addedUnits, Unit: simcore.UnitUnits}
	k.Equipment = simcore.UnitValue{Magnitude: newEquip, Unit: simcore.UnitUnits}
	k.RecycleVol = simcore.UnitValue{Magnitude: recycleMass, Unit: simcore.UnitKg}

	if k.HasGHG {
		ghg := k.GHGIntensityVal.Magnitude
		k.RecycleConsumption = simcore.UnitValue{Magnitude: recycleMass.Mul(ghg), Unit: simcore.UnitTCO2e}
		k.RechargeEmissions = simcore.UnitValue{Magnitude: rechargeMass.Mul(ghg).Sub(k.RecycleConsumption.Magnitude), Unit: simcore.UnitTCO2e}
		k.EolEmissions = simcore.UnitValue{Magnitude: retired.Mul(ghg), Unit: simcore.UnitTCO2e}
	}
	return nil
}

// recalcSalesFromEquipment is the equipment -> sales leg (spec.md §4.3,
// "Equipment set/change -> Sales: = Δunits × initialCharge + recharge +
// recycle offset (reverse)"), used when a command writes the equipment
// stream directly rather than letting it fall out of sales.
func (e *Engine) recalcSalesFromEquipment(k *stream.Keeper) error {
	charge, ok := k.BlendedInitialCharge()
	if !ok {
		return nil
	}

	prior := k.PriorEquipment.Magnitude
	added := k.Equipment.Magnitude.Sub(prior)
	if added.IsNegative() {
		added = decimal.Zero
	}
	k.NewEquipment = simcore.UnitValue{Magnitude: added, Unit: simcore.UnitUnits}

	retired := decimal.Zero
	if k.HasRetire {
		retired = prior.Mul(pctFraction(k.RetireRate))
	}
	rechargeMass := decimal.Zero
	if k.HasRecharge {
		rechargeMass = prior.Mul(pctFraction(k.RechargePopPct)).Mul(k.RechargeIntensityVal.Magnitude)
	}
	recycleMass := decimal.Zero
	if k.HasRecovery {
		recycleMass = prior.Mul(k.RechargeIntensityVal.Magnitude).Mul(pctFraction(k.RecoveryRate)).Mul(pctFraction(k.ReuseRate))
	}
	offsetRate := pctFraction(k.DisplacementRate)

	neededVirgin := added.Mul(charge.Magnitude).Add(rechargeMass).Sub(recycleMass.Mul(offsetRate))
	if neededVirgin.IsNegative() {
		neededVirgin = decimal.Zero
	}
	if err := e.setManufactureImport(k, neededVirgin); err != nil {
		return err
	}
	k.RecycleVol = simcore.UnitValue{Magnitude: recycleMass, Unit: simcore.UnitKg}

	if k.HasGHG {
		ghg := k.GHGIntensityVal.Magnitude
		k.RecycleConsumption = simcore.UnitValue{Magnitude: recycleMass.Mul(ghg), Unit: simcore.UnitTCO2e}
		k.RechargeEmissions = simcore.UnitValue{Magnitude: rechargeMass.Mul(ghg).Sub(k.RecycleConsumption.Magnitude), Unit: simcore.UnitTCO2e}
		k.EolEmissions = simcore.UnitValue{Magnitude: retired.Mul(ghg), Unit: simcore.UnitTCO2e}
	}

	e.updateConsumptionAndEnergyFromVolumes(k)
	return nil
}
