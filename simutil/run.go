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
	"errors"
	"io"
	"os"
	"strings"

	"github.com/kigamiprotocol/simcore/lang"
	"github.com/kigamiprotocol/simcore/lang/langerr"
	"github.com/kigamiprotocol/simcore/scenario"
	"github.com/sirupsen/logrus"
)

// RunValidate implements the `validate <file>` subcommand: parse only,
// exit 0 if valid, 2 otherwise (spec.md §6).
func RunValidate(path string, stdout, stderr io.Writer) (ExitCode, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return ExitFileNotFound, err
	}
	if _, err := lang.Parse(string(source)); err != nil {
		printParseErrors(stderr, err)
		return ExitParseError, err
	}
	io.WriteString(stdout, "ok\n")
	return ExitSuccess, nil
}

// RunSimulation implements the `run <file>` subcommand: parse, run every
// scenario (or just scenarioFilter, if set), write a CSV result table.
func RunSimulation(path, outputPath, scenarioFilter, logLevel string, stderr io.Writer) (ExitCode, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return ExitFileNotFound, err
	}
	prog, err := lang.Parse(string(source))
	if err != nil {
		printParseErrors(stderr, err)
		return ExitParseError, err
	}

	log := logrus.New()
	log.SetOutput(stderr)
	if lvl, lerr := logrus.ParseLevel(logLevel); lerr == nil {
		log.SetLevel(lvl)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return ExitWriteError, err
	}
	defer out.Close()
	w := NewResultWriter(out)

	if scenarioFilter != "" {
		rows, err := scenario.Run(prog, scenarioFilter, log, nil)
		if err != nil {
			return classifyRunError(err), err
		}
		if err := w.WriteAll(rows); err != nil {
			return ExitWriteError, err
		}
		return ExitSuccess, w.Flush()
	}

	for _, scn := range prog.Scenarios {
		rows, err := scenario.Run(prog, scn.Name, log, nil)
		if err != nil {
			return classifyRunError(err), err
		}
		if err := w.WriteAll(rows); err != nil {
			return ExitWriteError, err
		}
	}
	return ExitSuccess, w.Flush()
}

func classifyRunError(err error) ExitCode {
	if errors.Is(err, os.ErrNotExist) {
		return ExitFileNotFound
	}
	if strings.Contains(err.Error(), "unknown scenario") {
		return ExitScenarioNotFound
	}
	return ExitExecutionError
}

func printParseErrors(w io.Writer, err error) {
	var errs *langerr.ParseErrors
	if errors.As(err, &errs) {
		for _, pe := range errs.Errors {
			io.WriteString(w, pe.Error()+"\n")
		}
		return
	}
	io.WriteString(w, err.Error()+"\n")
}
