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
	"github.com/kigamiprotocol/simcore"
	"github.com/kigamiprotocol/simcore/stream"
)

// tradeSupplementFor derives the import/export volume's population and
// consumption equivalents (spec.md §3's TradeSupplement), using the same
// blended initial charge and GHG intensity the rest of the engine already
// routes population<->volume<->consumption conversions through. The
// Keeper has no separate bulk-refrigerant-vs-equipment-embodied trade
// split, so the whole import/export stream is reported as the supplement;
// see DESIGN.md for why that is the chosen reading of an underspecified
// corner of the source spec.
func (e *Engine) tradeSupplementFor(k *stream.Keeper) simcore.TradeSupplement {
	ctx := e.contextFor(k)
	conv := simcore.Converter{}
	pop := func(v simcore.UnitValue) simcore.UnitValue {
		p, err := conv.Convert(v, simcore.UnitUnits, ctx, simcore.UnitValue{}, simcore.PercentSet)
		if err != nil {
			return simcore.UnitValue{Magnitude: v.Magnitude.Sub(v.Magnitude), Unit: simcore.UnitUnits}
		}
		return p
	}
	cons := func(v simcore.UnitValue) simcore.UnitValue {
		c, err := conv.Convert(v, simcore.UnitTCO2e, ctx, simcore.UnitValue{}, simcore.PercentSet)
		if err != nil {
			return simcore.UnitValue{Magnitude: v.Magnitude.Sub(v.Magnitude), Unit: simcore.UnitTCO2e}
		}
		return c
	}
	return simcore.TradeSupplement{
		ImportInitialChargeValue:       k.ImportVol,
		ImportInitialChargeConsumption: cons(k.ImportVol),
		ImportInitialChargePopulation:  pop(k.ImportVol),
		ExportInitialChargeValue:       k.ExportVol,
		ExportInitialChargeConsumption: cons(k.ExportVol),
		ExportInitialChargePopulation:  pop(k.ExportVol),
	}
}
