// Package strategy names the external contract strategies implement
// against the simulation engine. The types are aliases onto internal/sim
// so both packages share one definition without an import cycle (the
// engine is the contract's natural owner; this package exists purely so
// strategy authors don't need to import the engine's own package to
// satisfy it).
package strategy

import "fenrir/internal/sim"

type Strategy = sim.Strategy
type Params = sim.Params
