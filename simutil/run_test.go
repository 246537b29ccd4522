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
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const validTestProgram = `
start default
end default

start simulations
simulate "S" using "default" from years 2025 to 2025
end simulations
`

func writeTempProgram(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write temp program: %v", err)
	}
	return path
}

func TestRunValidateAcceptsWellFormedProgram(t *testing.T) {
	path := writeTempProgram(t, "good.qta", validTestProgram)
	var stdout, stderr bytes.Buffer
	code, err := RunValidate(path, &stdout, &stderr)
	if err != nil || code != ExitSuccess {
		t.Fatalf("code=%v err=%v stderr=%s", code, err, stderr.String())
	}
}

func TestRunValidateRejectsMalformedProgram(t *testing.T) {
	path := writeTempProgram(t, "bad.qta", "start default\nbogus\nend default\n")
	var stdout, stderr bytes.Buffer
	code, err := RunValidate(path, &stdout, &stderr)
	if err == nil || code != ExitParseError {
		t.Fatalf("expected a parse error, got code=%v err=%v", code, err)
	}
}

func TestRunValidateMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := RunValidate(filepath.Join(t.TempDir(), "missing.qta"), &stdout, &stderr)
	if err == nil || code != ExitFileNotFound {
		t.Fatalf("expected a file-not-found error, got code=%v err=%v", code, err)
	}
}

func TestRunSimulationWritesCSV(t *testing.T) {
	path := writeTempProgram(t, "good.qta", validTestProgram)
	outPath := filepath.Join(t.TempDir(), "out.csv")
	var stderr bytes.Buffer
	code, err := RunSimulation(path, outPath, "", "error", &stderr)
	if err != nil || code != ExitSuccess {
		t.Fatalf("code=%v err=%v stderr=%s", code, err, stderr.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty CSV output file")
	}
}

func TestRunSimulationUnknownScenarioFilter(t *testing.T) {
	path := writeTempProgram(t, "good.qta", validTestProgram)
	outPath := filepath.Join(t.TempDir(), "out.csv")
	var stderr bytes.Buffer
	code, err := RunSimulation(path, outPath, "NoSuchScenario", "error", &stderr)
	if err == nil || code != ExitScenarioNotFound {
		t.Fatalf("expected ExitScenarioNotFound, got code=%v err=%v", code, err)
	}
}
