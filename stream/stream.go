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

// Package stream implements the Stream Keeper: per-(application,
// substance) bookkeeping of channel volumes, consumption, equipment
// population, and the saved parameters (intensities, rates, initial
// charge) that the engine's dependency propagation reads and writes.
package stream

import (
	"github.com/kigamiprotocol/simcore"
	"github.com/shopspring/decimal"
)

// Key identifies one (application, substance) cell.
type Key struct {
	Application string
	Substance   string
}

// Channel names, the closed set of sales provenance (spec.md glossary).
const (
	Manufacture = "manufacture"
	Import      = "import"
	Export      = "export"
	Recycle     = "recycle"
)

// Keeper holds the full mutable state of one (application, substance)
// cell across a simulation run. A fresh Keeper is created when a scope is
// first registered (spec.md §3: "Setting an application or substance
// implicitly registers the (app,sub) pair").
type Keeper struct {
	Application, Substance string

	Manufacture simcore.UnitValue
	ImportVol   simcore.UnitValue
	ExportVol   simcore.UnitValue
	RecycleVol  simcore.UnitValue

	DomesticConsumption simcore.UnitValue
	ImportConsumption   simcore.UnitValue
	ExportConsumption   simcore.UnitValue
	RecycleConsumption  simcore.UnitValue

	Equipment      simcore.UnitValue
	PriorEquipment simcore.UnitValue
	NewEquipment   simcore.UnitValue

	RechargeEmissions simcore.UnitValue
	EolEmissions      simcore.UnitValue
	EnergyConsumption simcore.UnitValue

	GHGIntensityVal    simcore.UnitValue
	HasGHG             bool
	EnergyIntensityVal simcore.UnitValue
	HasEnergy          bool

	RechargePopPct       simcore.UnitValue
	RechargeIntensityVal simcore.UnitValue
	HasRecharge          bool

	RetireRate simcore.UnitValue
	HasRetire  bool

	InitialChargeByChannel map[string]simcore.UnitValue

	RecoveryRate     simcore.UnitValue
	ReuseRate        simcore.UnitValue
	HasRecovery      bool
	DisplacementRate simcore.UnitValue // defaults to 100%: all recycled volume offsets virgin supply

	EnabledChannels map[string]bool

	LastSpecifiedUnit map[string]string
}

// New creates a Keeper with zeroed volume/consumption/population streams
// in the canonical mass ("kg"), consumption ("tco2e"), and population
// ("units") bases, and a 100% displacement rate default.
func New(app, sub string) *Keeper {
	zeroKg := simcore.UnitValue{Magnitude: decimal.Zero, Unit: simcore.UnitKg}
	zeroT := simcore.UnitValue{Magnitude: decimal.Zero, Unit: simcore.UnitTCO2e}
	zeroU := simcore.UnitValue{Magnitude: decimal.Zero, Unit: simcore.UnitUnits}
	zeroKWh := simcore.UnitValue{Magnitude: decimal.Zero, Unit: simcore.UnitKWh}
	return &Keeper{
		Application:            app,
		Substance:               sub,
		Manufacture:             zeroKg,
		ImportVol:               zeroKg,
		ExportVol:               zeroKg,
		RecycleVol:              zeroKg,
		DomesticConsumption:     zeroT,
		ImportConsumption:       zeroT,
		ExportConsumption:       zeroT,
		RecycleConsumption:      zeroT,
		Equipment:               zeroU,
		PriorEquipment:          zeroU,
		NewEquipment:            zeroU,
		RechargeEmissions:       zeroT,
		EolEmissions:            zeroT,
		EnergyConsumption:       zeroKWh,
		InitialChargeByChannel:  map[string]simcore.UnitValue{},
		EnabledChannels:         map[string]bool{},
		LastSpecifiedUnit:       map[string]string{},
		DisplacementRate:        simcore.UnitValue{Magnitude: decimal.NewFromInt(100), Unit: simcore.UnitPct},
	}
}

// Sales returns the aggregate sales volume: manufacture + import -
// recycle offset (spec.md §3 "Stream kinds: Aggregate").
func (k *Keeper) Sales() simcore.UnitValue {
	return simcore.UnitValue{
		Magnitude: k.Manufacture.Magnitude.Add(k.ImportVol.Magnitude).Sub(k.RecycleVol.Magnitude),
		Unit:      k.Manufacture.Unit,
	}
}

// Consumption returns the aggregate GHG consumption across all channels.
func (k *Keeper) Consumption() simcore.UnitValue {
	return simcore.UnitValue{
		Magnitude: k.DomesticConsumption.Magnitude.
			Add(k.ImportConsumption.Magnitude).
			Add(k.ExportConsumption.Magnitude).
			Add(k.RecycleConsumption.Magnitude),
		Unit: k.DomesticConsumption.Unit,
	}
}

// BlendedInitialCharge returns the sales-weighted average initial charge
// across the channels with a recorded initial charge, falling back to
// an unweighted average if sales are all zero. This resolves the spec's
// open question of how to amortize initial charge across channels when a
// conversion needs one without a specific channel in context.
func (k *Keeper) BlendedInitialCharge() (simcore.UnitValue, bool) {
	if len(k.InitialChargeByChannel) == 0 {
		return simcore.UnitValue{}, false
	}
	weights := map[string]decimal.Decimal{
		Manufacture: k.Manufacture.Magnitude,
		Import:      k.ImportVol.Magnitude,
		Export:      k.ExportVol.Magnitude,
		Recycle:     k.RecycleVol.Magnitude,
	}
	allZero := true
	for ch := range k.InitialChargeByChannel {
		if !weights[ch].IsZero() {
			allZero = false
			break
		}
	}
	var totalWeight, totalMassUnits decimal.Decimal
	var denomUnit, numUnit string
	for ch, charge := range k.InitialChargeByChannel {
		w := weights[ch]
		if allZero {
			w = decimal.NewFromInt(1)
		}
		totalWeight = totalWeight.Add(w)
		totalMassUnits = totalMassUnits.Add(charge.Magnitude.Mul(w))
		denomUnit = charge.Denominator()
		numUnit = charge.Numerator()
	}
	if totalWeight.IsZero() {
		return simcore.UnitValue{}, false
	}
	avg := totalMassUnits.DivRound(totalWeight, 10)
	return simcore.UnitValue{Magnitude: avg, Unit: numUnit + " / " + denomUnit}, true
}

// GHGIntensity, EnergyIntensity, InitialCharge, Population, YearsElapsed
// implement simcore.ConversionContext partially; YearsElapsed is supplied
// by the engine, which knows the simulation clock, not the Keeper.

func (k *Keeper) GHGIntensity() (simcore.UnitValue, bool)    { return k.GHGIntensityVal, k.HasGHG }
func (k *Keeper) EnergyIntensity() (simcore.UnitValue, bool) { return k.EnergyIntensityVal, k.HasEnergy }
func (k *Keeper) InitialCharge(channel string) (simcore.UnitValue, bool) {
	v, ok := k.InitialChargeByChannel[channel]
	return v, ok
}
func (k *Keeper) Population() simcore.UnitValue { return k.Equipment }
