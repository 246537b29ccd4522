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
)

// readStream returns the current value of a named stream on k. It is the
// single point GetStream (pushdown.Env) and the command handlers read
// through, so the closed set of stream names lives in one place.
func (e *Engine) readStream(k *stream.Keeper, name string) (simcore.UnitValue, error) {
	switch name {
	case StreamManufacture:
		return k.Manufacture, nil
	case StreamImport:
		return k.ImportVol, nil
	case StreamExport:
		return k.ExportVol, nil
	case StreamRecycle:
		return k.RecycleVol, nil
	case StreamSales:
		return k.Sales(), nil
	case StreamDomesticConsumption:
		return k.DomesticConsumption, nil
	case StreamImportConsumption:
		return k.ImportConsumption, nil
	case StreamExportConsumption:
		return k.ExportConsumption, nil
	case StreamRecycleConsumption:
		return k.RecycleConsumption, nil
	case StreamConsumption:
		return k.Consumption(), nil
	case StreamEquipment:
		return k.Equipment, nil
	case StreamPriorEquipment:
		return k.PriorEquipment, nil
	case StreamNewEquipment:
		return k.NewEquipment, nil
	case StreamRechargeEmissions:
		return k.RechargeEmissions, nil
	case StreamEolEmissions:
		return k.EolEmissions, nil
	case StreamEnergy:
		return k.EnergyConsumption, nil
	default:
		return simcore.UnitValue{}, enginerr.New(enginerr.KindReference, "", fmt.Sprintf("unknown stream %q", name))
	}
}

// writeStream stores val into the named stream and triggers the
// dependency-propagation recalculation the write implies (spec.md §4.3's
// sales/consumption/equipment recalculation table). Writing an aggregate
// stream (sales, consumption) distributes the total across its
// substreams in proportion to their current weight.
func (e *Engine) writeStream(k *stream.Keeper, name string, val simcore.UnitValue) error {
	switch name {
	case StreamManufacture:
		k.Manufacture = val
	case StreamImport:
		k.ImportVol = val
	case StreamExport:
		k.ExportVol = val
	case StreamRecycle:
		k.RecycleVol = val
	case StreamSales:
		if err := e.distributeSales(k, val); err != nil {
			return err
		}
	case StreamDomesticConsumption:
		k.DomesticConsumption = val
	case StreamImportConsumption:
		k.ImportConsumption = val
	case StreamExportConsumption:
		k.ExportConsumption = val
	case StreamRecycleConsumption:
		k.RecycleConsumption = val
	case StreamConsumption:
		if err := e.distributeConsumption(k, val); err != nil {
			return err
		}
	case StreamEquipment:
		k.Equipment = val
	case StreamPriorEquipment:
		k.PriorEquipment = val
	case StreamNewEquipment:
		k.NewEquipment = val
	case StreamRechargeEmissions:
		k.RechargeEmissions = val
	case StreamEolEmissions:
		k.EolEmissions = val
	case StreamEnergy:
		k.EnergyConsumption = val
	default:
		return enginerr.New(enginerr.KindReference, "", fmt.Sprintf("unknown stream %q", name))
	}

	switch {
	case isVolumeStream(name):
		return e.recalcFromSales(k)
	case isConsumptionStream(name):
		return e.recalcFromConsumption(k)
	case name == StreamEquipment:
		return e.recalcSalesFromEquipment(k)
	}
	return nil
}

// channelEnabled reports whether a sales channel participates in
// distribution. Manufacture and import are on by default; export and
// recycle require an explicit `enable` command (spec.md §4.3).
func channelEnabled(k *stream.Keeper, ch string) bool {
	if v, ok := k.EnabledChannels[ch]; ok {
		return v
	}
	return ch == stream.Manufacture || ch == stream.Import
}

func enabledChannelsOf(k *stream.Keeper, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, ch := range candidates {
		if channelEnabled(k, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// distributeWeighted splits total across enabled in proportion to weights,
// falling back to an even split when every enabled channel has zero
// weight (e.g. the very first write to a freshly registered substance).
func distributeWeighted(total decimal.Decimal, weights map[string]decimal.Decimal, enabled []string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if len(enabled) == 0 {
		return out
	}
	sum := decimal.Zero
	for _, ch := range enabled {
		sum = sum.Add(weights[ch])
	}
	if sum.IsZero() {
		share := total.DivRound(decimal.NewFromInt(int64(len(enabled))), 10)
		for _, ch := range enabled {
			out[ch] = share
		}
		return out
	}
	for _, ch := range enabled {
		out[ch] = total.Mul(weights[ch]).DivRound(sum, 10)
	}
	return out
}

// setManufactureImport distributes a virgin-supply total across the
// manufacture and import channels, the shared tail of both the sales
// aggregate write and the equipment-triggered sales recalculation.
func (e *Engine) setManufactureImport(k *stream.Keeper, total decimal.Decimal) error {
	channels := enabledChannelsOf(k, []string{stream.Manufacture, stream.Import})
	if len(channels) == 0 {
		return enginerr.New(enginerr.KindConfiguration, "", fmt.Sprintf("substance %q needs sales volume but no manufacture or import channel is enabled", k.Substance))
	}
	weights := map[string]decimal.Decimal{stream.Manufacture: k.Manufacture.Magnitude, stream.Import: k.ImportVol.Magnitude}
	shares := distributeWeighted(total, weights, channels)
	if s, ok := shares[stream.Manufacture]; ok {
		k.Manufacture = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitKg}
	}
	if s, ok := shares[stream.Import]; ok {
		k.ImportVol = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitKg}
	}
	return nil
}

// distributeSales writes the sales aggregate by solving for the virgin
// supply (manufacture+import) that, net of the existing recycle offset,
// yields the requested total (spec.md §3: "Sales = manufacture + import -
// recycle").
func (e *Engine) distributeSales(k *stream.Keeper, total simcore.UnitValue) error {
	return e.setManufactureImport(k, total.Magnitude.Add(k.RecycleVol.Magnitude))
}

func (e *Engine) distributeConsumption(k *stream.Keeper, total simcore.UnitValue) error {
	channels := enabledChannelsOf(k, []string{stream.Manufacture, stream.Import, stream.Export, stream.Recycle})
	if len(channels) == 0 {
		return enginerr.New(enginerr.KindConfiguration, "", fmt.Sprintf("substance %q needs consumption but no channel is enabled", k.Substance))
	}
	weights := map[string]decimal.Decimal{
		stream.Manufacture: k.DomesticConsumption.Magnitude,
		stream.Import:      k.ImportConsumption.Magnitude,
		stream.Export:      k.ExportConsumption.Magnitude,
		stream.Recycle:     k.RecycleConsumption.Magnitude,
	}
	shares := distributeWeighted(total.Magnitude, weights, channels)
	if s, ok := shares[stream.Manufacture]; ok {
		k.DomesticConsumption = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitTCO2e}
	}
	if s, ok := shares[stream.Import]; ok {
		k.ImportConsumption = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitTCO2e}
	}
	if s, ok := shares[stream.Export]; ok {
		k.ExportConsumption = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitTCO2e}
	}
	if s, ok := shares[stream.Recycle]; ok {
		k.RecycleConsumption = simcore.UnitValue{Magnitude: s, Unit: simcore.UnitTCO2e}
	}
	return nil
}
