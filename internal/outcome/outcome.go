// Package outcome resolves a crafting roll into a produced quantity.
// Resolution is pure: same inputs, same result, no I/O.
package outcome

import (
	"fmt"
	"math/rand"
)

// FailureTier marks the botched rolls at the bottom of the die.
type FailureTier int

const (
	// TierNone means the roll did not botch.
	TierNone FailureTier = 0
	// TierCatastrophic is a natural 1.
	TierCatastrophic FailureTier = 1
	// TierSevere is a natural 2.
	TierSevere FailureTier = 2
)

// Result is the resolved outcome of one crafting roll.
type Result struct {
	Quantity int
	Failure  FailureTier
}

// Failed reports whether the roll botched outright.
func (r Result) Failed() bool { return r.Failure != TierNone }

// Missed reports whether the roll produced nothing without botching.
func (r Result) Missed() bool { return r.Failure == TierNone && r.Quantity == 0 }

// Resolve computes the quantity produced by a roll with the given bonus
// on a die bounded by maxRoll. A roll outside [1, maxRoll] is a caller
// bug and panics.
//
// Rules, in priority order: a natural 1 or 2 botches and produces
// nothing; the two top faces guarantee one unit on top of the threshold
// tiers; roll+bonus then adds 4 at 120, 3 at 100 or 2 at 50.
func Resolve(roll, bonus, maxRoll int) Result {
	if roll < 1 || roll > maxRoll {
		panic(fmt.Sprintf("outcome: roll %d outside [1, %d]", roll, maxRoll))
	}

	switch roll {
	case 1:
		return Result{Failure: TierCatastrophic}
	case 2:
		return Result{Failure: TierSevere}
	}

	quantity := 0
	if roll == maxRoll || roll == maxRoll-1 {
		quantity++
	}

	total := roll + bonus
	switch {
	case total >= 120:
		quantity += 4
	case total >= 100:
		quantity += 3
	case total >= 50:
		quantity += 2
	}
	return Result{Quantity: quantity}
}

// Roll draws a die face in [1, max].
func Roll(max int) int {
	if max < 1 {
		panic(fmt.Sprintf("outcome: die bound %d < 1", max))
	}
	return rand.Intn(max) + 1
}

// PickNarrative draws one failure narrative from the pool using a
// secondary random draw. Empty pools yield an empty string.
func PickNarrative(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.Intn(len(pool))]
}
