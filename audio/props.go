package audio

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	ErrUnknownParam   = errors.New("unknown parameter")
	ErrMalformedState = errors.New("malformed state")
)

// ParamSpec describes a named scalar parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Skew    float64 // used by the normalized 0..1 mapping, 1 is linear
	Integer bool
}

// Param is a registered parameter. Its value can be read and written
// concurrently without locks; there is no consistency across parameters.
type Param struct {
	ParamSpec
	bits atomic.Uint64
}

func (p *Param) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}

func (p *Param) store(v float64) {
	p.bits.Store(math.Float64bits(p.clamp(v)))
}

func (p *Param) clamp(v float64) float64 {
	if p.Integer {
		v = math.Round(v)
	}
	return clamp(v, p.Min, p.Max)
}

func (p *Param) toNormalized(v float64) float64 {
	n := clamp((v-p.Min)/(p.Max-p.Min), 0, 1)
	if p.Skew == 1 || p.Skew <= 0 {
		return n
	}
	return math.Pow(n, p.Skew)
}

func (p *Param) fromNormalized(n float64) float64 {
	n = clamp(n, 0, 1)
	if p.Skew != 1 && p.Skew > 0 && n > 0 {
		n = math.Exp(math.Log(n) / p.Skew)
	}
	return p.Min + (p.Max-p.Min)*n
}

// Props stores device parameters that can be updated without locks. All
// parameters should be registered before any reads take place.
type Props struct {
	params map[string]*Param
	order  []*Param
}

func NewProps() *Props {
	return &Props{
		params: make(map[string]*Param),
	}
}

// Register adds a new parameter initialized to its default.
func (p *Props) Register(spec ParamSpec) (*Param, error) {
	if _, ok := p.params[spec.Name]; ok {
		return nil, fmt.Errorf("parameter %s already registered", spec.Name)
	}
	if spec.Min >= spec.Max {
		return nil, fmt.Errorf("parameter %s: invalid range %v - %v", spec.Name, spec.Min, spec.Max)
	}
	if spec.Skew == 0 {
		spec.Skew = 1
	}
	param := &Param{ParamSpec: spec}
	param.store(spec.Default)
	p.params[spec.Name] = param
	p.order = append(p.order, param)
	return param, nil
}

func (p *Props) MustRegister(spec ParamSpec) *Param {
	param, err := p.Register(spec)
	if err != nil {
		panic(err)
	}
	return param
}

func (p *Props) lookup(key string) (*Param, error) {
	param, ok := p.params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}
	return param, nil
}

// Set updates the parameter with a raw value. Out of range values are clamped.
func (p *Props) Set(key string, value float64) error {
	param, err := p.lookup(key)
	if err != nil {
		return err
	}
	if math.IsNaN(value) {
		return fmt.Errorf("set property %s: value is not a number", key)
	}
	param.store(value)
	return nil
}

func (p *Props) Get(key string) (float64, error) {
	param, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	return param.Load(), nil
}

// SetNormalized updates the parameter from a 0..1 value using the
// parameter's skewed range.
func (p *Props) SetNormalized(key string, value float64) error {
	param, err := p.lookup(key)
	if err != nil {
		return err
	}
	if math.IsNaN(value) {
		return fmt.Errorf("set property %s: value is not a number", key)
	}
	param.store(param.fromNormalized(value))
	return nil
}

func (p *Props) GetNormalized(key string) (float64, error) {
	param, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	return param.toNormalized(param.Load()), nil
}

// Names returns the parameter names in registration order.
func (p *Props) Names() []string {
	names := make([]string, len(p.order))
	for i, param := range p.order {
		names[i] = param.Name
	}
	return names
}

// Spec returns the description of a registered parameter.
func (p *Props) Spec(key string) (ParamSpec, error) {
	param, err := p.lookup(key)
	if err != nil {
		return ParamSpec{}, err
	}
	return param.ParamSpec, nil
}

// StateEntry is a single persisted parameter value in raw units.
type StateEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// State returns the current raw value of every parameter in registration order.
func (p *Props) State() []StateEntry {
	state := make([]StateEntry, len(p.order))
	for i, param := range p.order {
		state[i] = StateEntry{Name: param.Name, Value: param.Load()}
	}
	return state
}

// SetState applies a previously saved state. The whole list is validated
// before anything is written, so a malformed list leaves every parameter
// unchanged. Parameters missing from the list keep their current value.
func (p *Props) SetState(state []StateEntry) error {
	if err := p.validateState(state); err != nil {
		return err
	}
	p.applyState(state)
	return nil
}

func (p *Props) validateState(state []StateEntry) error {
	for _, entry := range state {
		if _, ok := p.params[entry.Name]; !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedState, entry.Name)
		}
		if math.IsNaN(entry.Value) || math.IsInf(entry.Value, 0) {
			return fmt.Errorf("%w: bad value for %s: %v", ErrMalformedState, entry.Name, entry.Value)
		}
	}
	return nil
}

// applyState writes an already validated state. It does not allocate and is
// safe to call from the render path.
func (p *Props) applyState(state []StateEntry) {
	for _, entry := range state {
		if param, ok := p.params[entry.Name]; ok {
			param.store(entry.Value)
		}
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
