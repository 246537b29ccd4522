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

// Package engine implements the Engine core: the command surface,
// dependency-propagation orchestrator, year advancement, and per-year
// result serialization described in spec.md §4.3. One Engine is
// constructed per (scenario, trial); it is the sole owner of mutable
// simulation state, matching the teacher's "one InMAPdata per run" shape
// adapted from a spatial grid to a (scenario, trial) lifecycle.
package engine

import (
	"fmt"
	"math/rand"

	"github.com/kigamiprotocol/simcore"
	"github.com/kigamiprotocol/simcore/engine/enginerr"
	"github.com/kigamiprotocol/simcore/lang"
	"github.com/kigamiprotocol/simcore/lang/pushdown"
	"github.com/kigamiprotocol/simcore/stream"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// varFrame is a hash map of free variables attached to one stanza's
// lexical scope; lookups walk the frame stack outward (spec.md §4.2).
type varFrame struct {
	vars   map[string]pushdown.Value
	parent *varFrame
}

func newFrame(parent *varFrame) *varFrame {
	return &varFrame{vars: map[string]pushdown.Value{}, parent: parent}
}

func (f *varFrame) lookup(name string) (pushdown.Value, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.vars[name]; ok {
			return v, true
		}
	}
	return pushdown.Value{}, false
}

// Engine holds all mutable state for one (scenario, trial) run: the
// per-(application, substance) Stream Keepers, the current scope, the
// current year, the variable-frame stack, and the seeded PRNG.
type Engine struct {
	ScenarioName string
	Trial        int

	StartYear int
	EndYear   int
	Year      int

	keepers map[stream.Key]*stream.Keeper
	order   []stream.Key // registration order, for deterministic result iteration

	curApp, curSub string
	frame          *varFrame

	rnd *rand.Rand
	log *logrus.Entry

	conv simcore.Converter
}

// New constructs an Engine for one (scenario, trial) over
// [startYear, endYear], seeded deterministically from seed and trial so
// that repeated runs with the same seed and trial count reproduce
// byte-identical results (spec.md §4.4/§8).
func New(scenarioName string, trial int, startYear, endYear int, seed int64, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		ScenarioName: scenarioName,
		Trial:        trial,
		StartYear:    startYear,
		EndYear:      endYear,
		Year:         startYear,
		keepers:      map[stream.Key]*stream.Keeper{},
		frame:        newFrame(nil),
		rnd:          rand.New(rand.NewSource(seed + int64(trial))),
		log: log.WithFields(logrus.Fields{
			"scenario": scenarioName,
			"trial":    trial,
		}),
	}
}

// PushFrame enters a new lexical scope (e.g. an application or substance
// block); PopFrame leaves it. Frames nest; DefineVar always writes to the
// innermost frame.
func (e *Engine) PushFrame() { e.frame = newFrame(e.frame) }
func (e *Engine) PopFrame() {
	if e.frame.parent != nil {
		e.frame = e.frame.parent
	}
}

// SetScope sets the current (application, substance) pair, implicitly
// registering a fresh Stream Keeper the first time a pair is seen
// (spec.md §3).
func (e *Engine) SetScope(app, sub string) *stream.Keeper {
	e.curApp, e.curSub = app, sub
	key := stream.Key{Application: app, Substance: sub}
	k, ok := e.keepers[key]
	if !ok {
		k = stream.New(app, sub)
		e.keepers[key] = k
		e.order = append(e.order, key)
	}
	return k
}

func (e *Engine) current() (*stream.Keeper, error) {
	key := stream.Key{Application: e.curApp, Substance: e.curSub}
	k, ok := e.keepers[key]
	if !ok {
		return nil, enginerr.New(enginerr.KindScope, "", "no application/substance is in scope")
	}
	return k, nil
}

func (e *Engine) keeperFor(app, sub string) (*stream.Keeper, error) {
	key := stream.Key{Application: app, Substance: sub}
	k, ok := e.keepers[key]
	if !ok {
		return nil, enginerr.New(enginerr.KindReference, "", fmt.Sprintf("unknown substance %q in application %q", sub, app))
	}
	return k, nil
}

// keeperForSubstanceInCurrentApp looks up a substance by name alone,
// implicitly within the current application, for commands that name only a
// substance: `replace ... with`, cap/floor displacement, and `get ... of`
// (spec.md §4.3).
func (e *Engine) keeperForSubstanceInCurrentApp(sub string) (*stream.Keeper, error) {
	return e.keeperFor(e.curApp, sub)
}

// AdvanceYear starts a new simulation year: priorEquipment[Y] =
// equipment[Y-1] for every registered cell, and newEquipment is reset to
// zero, before any commands for year Y execute (spec.md §3 Lifecycle,
// §8 invariant).
func (e *Engine) AdvanceYear() {
	e.Year++
	for _, key := range e.order {
		k := e.keepers[key]
		k.PriorEquipment = k.Equipment
		k.NewEquipment = simcore.UnitValue{Magnitude: decimal.Zero, Unit: k.Equipment.Unit}
	}
}

// Done reports whether the engine has finished its year range
// (spec.md §3 Lifecycle: "Engine is consumed once year > endYear").
func (e *Engine) Done() bool { return e.Year > e.EndYear }

// YearsElapsed implements simcore.ConversionContext / pushdown.Env: years
// since the simulation's start year.
func (e *Engine) YearsElapsed() int { return e.Year - e.StartYear }

// YearAbsolute implements pushdown.Env: the calendar year itself.
func (e *Engine) YearAbsolute() int { return e.Year }

// Rand implements pushdown.Env.
func (e *Engine) Rand() *rand.Rand { return e.rnd }

// LookupVar implements pushdown.Env by walking the frame stack.
func (e *Engine) LookupVar(name string) (pushdown.Value, bool) {
	if lang.IsProtectedIdentifier(name) {
		switch name {
		case "yearsElapsed":
			return pushdown.Value{Num: decimal.NewFromInt(int64(e.YearsElapsed()))}, true
		case "yearAbsolute":
			return pushdown.Value{Num: decimal.NewFromInt(int64(e.YearAbsolute()))}, true
		}
	}
	return e.frame.lookup(name)
}

// GetStream implements pushdown.Env: reads the current value of a stream,
// optionally for a named substance in the current application, optionally
// converted to a target unit.
func (e *Engine) GetStream(streamName, ofSubstance, asUnit string) (pushdown.Value, error) {
	k, err := e.current()
	if err != nil {
		return pushdown.Value{}, err
	}
	if ofSubstance != "" {
		k, err = e.keeperForSubstanceInCurrentApp(ofSubstance)
		if err != nil {
			return pushdown.Value{}, err
		}
	}
	v, err := e.readStream(k, streamName)
	if err != nil {
		return pushdown.Value{}, err
	}
	if asUnit != "" && simcore.CanonicalUnit(asUnit) != v.Unit {
		converted, err := e.conv.Convert(v, asUnit, e.contextFor(k), v, simcore.PercentSet)
		if err != nil {
			return pushdown.Value{}, err
		}
		v = converted
	}
	return pushdown.Value{Num: v.Magnitude, Unit: v.Unit}, nil
}

// contextFor builds the simcore.ConversionContext view of a specific
// keeper, decorated with this engine's elapsed-time clock.
func (e *Engine) contextFor(k *stream.Keeper) simcore.ConversionContext {
	return keeperContext{k: k, years: e.YearsElapsed()}
}

type keeperContext struct {
	k     *stream.Keeper
	years int
}

func (c keeperContext) GHGIntensity() (simcore.UnitValue, bool)    { return c.k.GHGIntensity() }
func (c keeperContext) EnergyIntensity() (simcore.UnitValue, bool) { return c.k.EnergyIntensity() }
func (c keeperContext) InitialCharge(ch string) (simcore.UnitValue, bool) {
	return c.k.InitialCharge(ch)
}
func (c keeperContext) BlendedInitialCharge() (simcore.UnitValue, bool) { return c.k.BlendedInitialCharge() }
func (c keeperContext) Population() simcore.UnitValue                  { return c.k.Population() }
func (c keeperContext) Consumption() simcore.UnitValue                 { return c.k.Consumption() }
func (c keeperContext) YearsElapsed() int                              { return c.years }

// CollectResults emits one simcore.Result per registered (application,
// substance) cell for the current year.
func (e *Engine) CollectResults() []simcore.Result {
	out := make([]simcore.Result, 0, len(e.order))
	for _, key := range e.order {
		k := e.keepers[key]
		out = append(out, simcore.Result{
			TradeSupplement:      e.tradeSupplementFor(k),
			ScenarioName:         e.ScenarioName,
			TrialNumber:          e.Trial,
			Application:          key.Application,
			Substance:            key.Substance,
			Year:                 e.Year,
			Manufacture:          k.Manufacture,
			Import:               k.ImportVol,
			Export:               k.ExportVol,
			Recycle:              k.RecycleVol,
			DomesticConsumption:  k.DomesticConsumption,
			ImportConsumption:    k.ImportConsumption,
			ExportConsumption:    k.ExportConsumption,
			RecycleConsumption:   k.RecycleConsumption,
			Population:           k.Equipment,
			PopulationNew:        k.NewEquipment,
			RechargeEmissions:    k.RechargeEmissions,
			EolEmissions:         k.EolEmissions,
			EnergyConsumption:    k.EnergyConsumption,
		})
	}
	return out
}

// Applications returns the application blocks a Policy declares (each
// holding its substance blocks), used by the scenario driver to execute commands in
// declaration order (spec.md §5 ordering guarantees).
func Applications(pol *lang.Policy) []*lang.Application { return pol.Applications }
