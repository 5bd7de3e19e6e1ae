package tribes

import (
	"math/rand"
	"sync"
)

// Dice is the source of combat randomness. Roll returns a value in [1, 6].
type Dice interface {
	Roll() int
}

// RandDice rolls a uniform six-sided die from a math/rand source.
type RandDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandDice returns dice seeded with seed.
func NewRandDice(seed int64) *RandDice {
	return &RandDice{rng: rand.New(rand.NewSource(seed))}
}

func (d *RandDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(6) + 1
}

// SequenceDice replays a fixed list of rolls, cycling when exhausted.
// Useful for reproducing a recorded game or for tests.
type SequenceDice struct {
	Rolls []int
	next  int
}

func (d *SequenceDice) Roll() int {
	if len(d.Rolls) == 0 {
		return 1
	}
	v := d.Rolls[d.next%len(d.Rolls)]
	d.next++
	return v
}
