package linen

import (
	"errors"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/rng"
)

var errBoom = errors.New("boom")

func testRNGs(seed uint64) map[core.Kind]rng.Key {
	return map[core.Kind]rng.Key{core.Params: rng.New(seed)}
}

func uniform(key rng.Key) (any, error) {
	return float64(key.Uniform(1, -1, 1)[0]), nil
}

// Dense scales its input by a single learned weight.
type Dense struct {
	Base
}

func (d *Dense) Call(x float64) (float64, error) {
	exit, err := d.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	w, err := d.Param("w", uniform)
	if err != nil {
		return 0, err
	}
	return x * w.(float64), nil
}

// Pair declares two unnamed Dense children in Setup.
type Pair struct {
	Base
	a, b *Dense
}

func (p *Pair) Setup() (err error) {
	if p.a, err = New(p, &Dense{}); err != nil {
		return err
	}
	p.b, err = New(p, &Dense{})
	return err
}

func (p *Pair) Call(x float64) (float64, error) {
	exit, err := p.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	ya, err := p.a.Call(x)
	if err != nil {
		return 0, err
	}
	yb, err := p.b.Call(x)
	if err != nil {
		return 0, err
	}
	return ya + yb, nil
}

// Chain declares Depth Dense children inline on every call.
type Chain struct {
	Base
	Depth int
}

func (c *Chain) Call(x float64) (float64, error) {
	exit, err := c.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	for range c.Depth {
		d, err := New(c, &Dense{})
		if err != nil {
			return 0, err
		}
		if x, err = d.Call(x); err != nil {
			return 0, err
		}
	}
	return x, nil
}

// Stack runs the children it was constructed with, in order.
type Stack struct {
	Base
}

func (s *Stack) Call(x float64) (float64, error) {
	exit, err := s.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	for _, m := range s.Submodules() {
		if x, err = m.(*Dense).Call(x); err != nil {
			return 0, err
		}
	}
	return x, nil
}

// Codec has two entry methods sharing the children declared in Setup.
type Codec struct {
	MultiBase
	enc, dec *Dense
}

func (c *Codec) Setup() (err error) {
	if c.enc, err = Register(c, "encoder", &Dense{}); err != nil {
		return err
	}
	c.dec, err = Register(c, "decoder", &Dense{})
	return err
}

func (c *Codec) Encode(x float64) (float64, error) {
	exit, err := c.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	return c.enc.Call(x)
}

func (c *Codec) Decode(x float64) (float64, error) {
	exit, err := c.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	return c.dec.Call(x)
}

// Grow declares a submodule outside Setup.
func (c *Codec) Grow() error {
	exit, err := c.Enter()
	if err != nil {
		return err
	}
	defer exit()
	_, err = New(c, &Dense{})
	return err
}

// Extra declares a parameter outside Setup.
func (c *Codec) Extra() error {
	exit, err := c.Enter()
	if err != nil {
		return err
	}
	defer exit()
	_, err = c.Param("z", uniform)
	return err
}

// Counter counts calls in batch_stats when that kind is writable.
type Counter struct {
	Base
}

func (c *Counter) Call() (float64, error) {
	exit, err := c.Enter()
	if err != nil {
		return 0, err
	}
	defer exit()
	v, err := c.Variable(core.BatchStats, "count", func() (any, error) { return 0.0, nil })
	if err != nil {
		return 0, err
	}
	if c.IsMutable(core.BatchStats) && !c.IsInitializing() {
		if err := v.SetValue(v.Value().(float64) + 1); err != nil {
			return 0, err
		}
	}
	return v.Value().(float64), nil
}

// Hooked runs arbitrary declarations in Setup and in its entry method.
type Hooked struct {
	Base
	OnSetup func(p *Hooked) error
	OnCall  func(p *Hooked) error
}

func (p *Hooked) Setup() error {
	if p.OnSetup == nil {
		return nil
	}
	return p.OnSetup(p)
}

func (p *Hooked) Call() error {
	exit, err := p.Enter()
	if err != nil {
		return err
	}
	defer exit()
	if p.OnCall == nil {
		return nil
	}
	return p.OnCall(p)
}

func callHooked(p *Hooked) error {
	return p.Call()
}

// Conv overrides its type tag.
type Conv struct {
	Base
}

func (*Conv) TypeName() string { return "Conv2D" }

// Box is generic.
type Box[T any] struct {
	Base
	Item T
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
