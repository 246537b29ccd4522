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

package simutil

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kigamiprotocol/simcore"
)

// header is the CSV schema named in spec.md §6.
var header = []string{
	"Scenario", "Trial", "Application", "Substance", "Year",
	"Manufacture", "Import", "Export", "Recycle",
	"DomesticConsumption", "ImportConsumption", "ExportConsumption", "RecycleConsumption",
	"Population", "PopulationNew",
	"RechargeEmissions", "EolEmissions", "EnergyConsumption",
}

// ResultWriter writes simcore.Result rows as CSV, rendering each
// UnitValue as "<decimal> <unit>" per the schema's value convention.
type ResultWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{w: csv.NewWriter(w)}
}

func (rw *ResultWriter) WriteAll(rows []simcore.Result) error {
	if !rw.wroteHeader {
		if err := rw.w.Write(header); err != nil {
			return err
		}
		rw.wroteHeader = true
	}
	for _, r := range rows {
		record := []string{
			r.ScenarioName,
			strconv.Itoa(r.TrialNumber),
			r.Application,
			r.Substance,
			strconv.Itoa(r.Year),
			r.Manufacture.String(),
			r.Import.String(),
			r.Export.String(),
			r.Recycle.String(),
			r.DomesticConsumption.String(),
			r.ImportConsumption.String(),
			r.ExportConsumption.String(),
			r.RecycleConsumption.String(),
			r.Population.String(),
			r.PopulationNew.String(),
			r.RechargeEmissions.String(),
			r.EolEmissions.String(),
			r.EnergyConsumption.String(),
		}
		if err := rw.w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ResultWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}
