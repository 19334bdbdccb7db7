package job

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Chaos wraps a Job and randomly panics or sleeps around its Map/Reduce
// calls, letting tests exercise the coordinator's timeout re-dispatch path
// and the worker's panic-recovery path. Grounded in the fault injection
// performed by the original reference implementation's crash tests.
type Chaos struct {
	Job Job

	// PanicProb is the probability (0..1) that a call panics instead of running.
	PanicProb float64
	// DelayProb is the probability (0..1) that a call sleeps before running.
	DelayProb float64
	MinDelay  time.Duration
	MaxDelay  time.Duration

	// SlowKeys, if non-empty, makes Reduce always sleep MaxDelay when the
	// key contains any of the given substrings, regardless of DelayProb.
	SlowKeys []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChaos returns a Chaos wrapper around the given seed. A single Chaos
// instance is meant to be shared across concurrently-running workers in a
// test, so every access to rnd is serialized under mu.
func NewChaos(j Job, seed int64) *Chaos {
	return &Chaos{Job: j, rnd: rand.New(rand.NewSource(seed))}
}

func (c *Chaos) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Float64()
}

func (c *Chaos) rollDelay(span int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(span)
}

func (c *Chaos) maybeDisrupt(key string) {
	if c.roll() < c.PanicProb {
		panic("chaos: injected map/reduce failure")
	}

	for _, sub := range c.SlowKeys {
		if sub != "" && strings.Contains(key, sub) {
			time.Sleep(c.MaxDelay)
			return
		}
	}

	if c.roll() < c.DelayProb {
		span := c.MaxDelay - c.MinDelay
		d := c.MinDelay
		if span > 0 {
			d += time.Duration(c.rollDelay(int64(span)))
		}
		time.Sleep(d)
	}
}

// Map implements Job.
func (c *Chaos) Map(fname, content string) []KV {
	c.maybeDisrupt(fname)
	return c.Job.Map(fname, content)
}

// Reduce implements Job.
func (c *Chaos) Reduce(key string, values []string) string {
	c.maybeDisrupt(key)
	return c.Job.Reduce(key, values)
}
