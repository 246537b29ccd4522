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

// Stream name constants, the closed set named in spec.md §3.
const (
	StreamManufacture = "manufacture"
	StreamImport      = "import"
	StreamExport      = "export"
	StreamRecycle     = "recycle"
	StreamSales       = "sales"

	StreamDomesticConsumption = "domesticConsumption"
	StreamImportConsumption   = "importConsumption"
	StreamExportConsumption   = "exportConsumption"
	StreamRecycleConsumption  = "recycleConsumption"
	StreamConsumption         = "consumption"

	StreamEquipment      = "equipment"
	StreamPriorEquipment = "priorEquipment"
	StreamNewEquipment   = "newEquipment"

	StreamRechargeEmissions = "rechargeEmissions"
	StreamEolEmissions      = "eolEmissions"
	StreamEnergy            = "energy"
)

func isVolumeStream(name string) bool {
	switch name {
	case StreamManufacture, StreamImport, StreamExport, StreamRecycle, StreamSales:
		return true
	}
	return false
}

func isConsumptionStream(name string) bool {
	switch name {
	case StreamDomesticConsumption, StreamImportConsumption, StreamExportConsumption, StreamRecycleConsumption, StreamConsumption:
		return true
	}
	return false
}

func isPopulationStream(name string) bool {
	switch name {
	case StreamEquipment, StreamPriorEquipment, StreamNewEquipment:
		return true
	}
	return false
}
