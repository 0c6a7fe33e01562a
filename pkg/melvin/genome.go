package melvin

// ParamKind is the closed set of genome value kinds (§3.1).
type ParamKind uint8

const (
	ParamFloat ParamKind = iota
	ParamInt
	ParamBool
	// ParamDerived marks a parameter computed from others (e.g. T_dyn)
	// rather than independently mutated.
	ParamDerived
)

// Param is a single named hyperparameter tracked by the genome. Values
// always satisfy [Min, Max] (§3.2 invariant 6); ProtectedUntilGen shields
// newly-introduced parameters from early retirement (§4.F).
type Param struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Kind  ParamKind `json:"kind"`

	// ProtectedUntilGen is the generation number before which this
	// parameter's contrib_ema is not considered for retirement.
	ProtectedUntilGen uint64 `json:"protected_until_gen"`
	// ContribEMA is a rolling estimate of this parameter's contribution
	// to fitness, used by the retirement rule and the UCB mean_reward.
	ContribEMA float64 `json:"contrib_ema"`

	// Anchor is the long-lived baseline value an overlay delta is
	// measured from, when the genome is expressed as anchor+overlay
	// (§9 open question: two coexisting mechanisms are both permitted;
	// Melvin unifies them — see DESIGN.md).
	Anchor *float64 `json:"anchor,omitempty"`
	// HalfLifeS, when set, decays an overlay delta back toward Anchor
	// with this half-life in seconds.
	HalfLifeS *float64 `json:"half_life_s,omitempty"`
	// DecayTarget overrides the value an overlay delta decays toward;
	// defaults to Anchor when nil.
	DecayTarget *float64 `json:"decay_target,omitempty"`

	// Active is false for a retired parameter: Clamp/mutation skip it,
	// but it is kept for audit (innovation_id history).
	Active bool `json:"active"`
	// InnovationID is the monotonically assigned id of this parameter's
	// creation event (§4.F, §9 glossary).
	InnovationID uint64 `json:"innovation_id"`
}

// Clamp returns v clamped into [p.Min, p.Max].
func (p *Param) Clamp(v float64) float64 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Genome is the complete set of runtime hyperparameters collectively
// defining reasoning and learning behavior (§3.1, glossary). It is
// published as an immutable object: the scoring kernel and reasoning
// engine dereference an atomic pointer to the active genome once per
// call and use a local copy (§9 "hot-swap").
type Genome struct {
	Params     map[string]*Param `json:"params"`
	Generation uint64            `json:"generation"`
	Fitness    float64           `json:"fitness"`
}

// Clone returns a deep copy so mutation proposals never alias the active
// genome.
func (g *Genome) Clone() *Genome {
	out := &Genome{
		Params:     make(map[string]*Param, len(g.Params)),
		Generation: g.Generation,
		Fitness:    g.Fitness,
	}
	for k, p := range g.Params {
		cp := *p
		if p.Anchor != nil {
			v := *p.Anchor
			cp.Anchor = &v
		}
		if p.HalfLifeS != nil {
			v := *p.HalfLifeS
			cp.HalfLifeS = &v
		}
		if p.DecayTarget != nil {
			v := *p.DecayTarget
			cp.DecayTarget = &v
		}
		out.Params[k] = &cp
	}
	return out
}

// Float returns the value of a float/derived parameter, or def if the
// parameter is absent or inactive. Every genome-read call site in the
// scoring kernel and reasoning engine goes through this accessor so that
// overridden defaults (§6.4 "Any numerical parameter may be overridden")
// are honored uniformly.
func (g *Genome) Float(name string, def float64) float64 {
	if g == nil {
		return def
	}
	p, ok := g.Params[name]
	if !ok || !p.Active {
		return def
	}
	return p.Value
}

// Int returns the value of a parameter truncated toward zero, or def.
func (g *Genome) Int(name string, def int) int {
	if g == nil {
		return def
	}
	p, ok := g.Params[name]
	if !ok || !p.Active {
		return def
	}
	return int(p.Value)
}

// Bool returns the boolean value of a parameter (nonzero = true), or def.
func (g *Genome) Bool(name string, def bool) bool {
	if g == nil {
		return def
	}
	p, ok := g.Params[name]
	if !ok || !p.Active {
		return def
	}
	return p.Value != 0
}
