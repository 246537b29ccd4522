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

// Package simutil builds the command-line driver's cobra command tree,
// following the shape of the teacher's inmaputil.Cfg/InitializeConfig:
// one struct holding every subcommand, built once and wired together by
// InitializeConfig, with flags read directly off each subcommand rather
// than through a separate configuration-file layer (spec.md names no
// config file, so the teacher's viper layer is dropped).
package simutil

import (
	"fmt"
	"os"

	"github.com/kigamiprotocol/simcore"
	"github.com/spf13/cobra"
)

// ExitCode is the process exit status vocabulary named in spec.md §6.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitFileNotFound     ExitCode = 1
	ExitParseError       ExitCode = 2
	ExitScenarioNotFound ExitCode = 3
	ExitExecutionError   ExitCode = 4
	ExitWriteError       ExitCode = 5
)

// Cfg holds every subcommand, built once by InitializeConfig.
type Cfg struct {
	Root        *cobra.Command
	runCmd      *cobra.Command
	validateCmd *cobra.Command
	versionCmd  *cobra.Command

	outputPath   string
	scenarioName string
	logLevel     string
}

// InitializeConfig builds the command tree: run, validate, version.
func InitializeConfig() *Cfg {
	cfg := &Cfg{}

	cfg.Root = &cobra.Command{
		Use:   "simcore",
		Short: "A Montreal Protocol / Kigali Amendment policy simulation engine.",
		Long: `simcore parses and runs DSL programs describing substances, applications,
policies, and scenarios, and reports per-(scenario, trial, application,
substance, year) results as a CSV table.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simcore v%s\n", simcore.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.validateCmd = &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a program and report whether it is valid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := RunValidate(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != ExitSuccess {
				os.Exit(int(code))
			}
			return err
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run <file>",
		Short: "Run every scenario in a program and write a CSV result table.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := RunSimulation(args[0], cfg.outputPath, cfg.scenarioName, cfg.logLevel, cmd.ErrOrStderr())
			if code != ExitSuccess {
				os.Exit(int(code))
			}
			return err
		},
		DisableAutoGenTag: true,
	}
	cfg.runCmd.Flags().StringVarP(&cfg.outputPath, "output", "o", "", "output CSV path (required)")
	cfg.runCmd.Flags().StringVar(&cfg.scenarioName, "scenario", "", "restrict the run to a single named scenario")
	cfg.runCmd.Flags().StringVar(&cfg.logLevel, "log-level", "info", "logrus level: debug, info, warn, error")
	cfg.runCmd.MarkFlagRequired("output")

	cfg.Root.AddCommand(cfg.versionCmd, cfg.validateCmd, cfg.runCmd)
	return cfg
}
