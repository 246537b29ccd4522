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

// Command simcore is the command-line interface for the simulation engine.
package main

import (
	"fmt"
	"os"

	"github.com/kigamiprotocol/simcore/simutil"
)

func main() {
	cfg := simutil.InitializeConfig()
	if err := cfg.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
