package relay

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	ErrInvalidProbability = errors.New("relay: probability must be within [0,1]")
	ErrInvalidDelay       = errors.New("relay: delay bounds must not be negative")
)

// Impairment is the drop/delay policy for one direction.
type Impairment struct {
	DropProbability  float64
	DelayProbability float64
	DelayMin         time.Duration
	DelayMax         time.Duration
	Seed             int64
}

func (i Impairment) Validate() error {
	if i.DropProbability < 0 || i.DropProbability > 1 {
		return fmt.Errorf("%w: drop=%v", ErrInvalidProbability, i.DropProbability)
	}
	if i.DelayProbability < 0 || i.DelayProbability > 1 {
		return fmt.Errorf("%w: delay=%v", ErrInvalidProbability, i.DelayProbability)
	}
	if i.DelayMin < 0 || i.DelayMax < 0 {
		return fmt.Errorf("%w: min=%v max=%v", ErrInvalidDelay, i.DelayMin, i.DelayMax)
	}
	return nil
}

// Decision is the outcome of one policy draw.
type Decision struct {
	Drop    bool
	Delayed bool
	Delay   time.Duration
}

// Policy draws decisions from an RNG seeded once. It is owned by a single
// direction goroutine and is not safe for concurrent use.
type Policy struct {
	imp Impairment
	rng *rand.Rand
}

func NewPolicy(imp Impairment) *Policy {
	if imp.DelayMax < imp.DelayMin {
		imp.DelayMax = imp.DelayMin
	}
	return &Policy{
		imp: imp,
		rng: rand.New(rand.NewSource(imp.Seed)),
	}
}

// Decide draws the drop value first and, only for kept datagrams, the delay value.
func (p *Policy) Decide() Decision {
	if p.rng.Float64() < p.imp.DropProbability {
		return Decision{Drop: true}
	}
	if p.rng.Float64() < p.imp.DelayProbability {
		return Decision{Delayed: true, Delay: p.delay()}
	}
	return Decision{}
}

// delay is uniform over [DelayMin, DelayMax] inclusive.
func (p *Policy) delay() time.Duration {
	lo, hi := p.imp.DelayMin, p.imp.DelayMax
	if lo == hi {
		return lo
	}
	return lo + time.Duration(p.rng.Int63n(int64(hi-lo)+1))
}
