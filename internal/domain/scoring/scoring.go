// Package scoring implements the weighted completion scheme used by the
// answers field. Each checklist entry carries a weight; completed entries
// contribute their weight to an achieved sum, and all entries contribute to
// a total sum. When the weights assigned to a question's entries are disjoint
// powers of two, counting set bits in the two sums recovers how many entries
// are done out of how many exist, without retaining the per-entry vector.
package scoring

import (
	"errors"
	"fmt"
	"math/bits"
)

// Entry is the minimal view of a checklist entry the engine needs.
type Entry struct {
	Completed bool
	Weight    int64
}

// ErrInvalidWeight indicates a weight that is not a positive power of two.
var ErrInvalidWeight = errors.New("weight must be a positive power of two")

// ErrOverlappingWeights indicates two entries sharing a bit.
var ErrOverlappingWeights = errors.New("weights must be disjoint")

// Score sums entry weights into the achieved and total integers.
// Non-positive weights contribute nothing; ValidateWeights is expected to
// have rejected them at catalog-save time.
func Score(entries []Entry) (achieved, total int64) {
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		total += e.Weight
		if e.Completed {
			achieved += e.Weight
		}
	}
	return achieved, total
}

// Counts recovers completed/total entry counts from the two stored sums.
// Correct only when the summed weights were disjoint powers of two; with
// overlapping or arbitrary weights the bit counts are meaningless.
func Counts(achieved, total int64) (done, count int) {
	return bits.OnesCount64(uint64(achieved)), bits.OnesCount64(uint64(total))
}

// Percent converts the two sums into a completion percentage. An empty
// total yields 0, never a division by zero.
func Percent(achieved, total int64) float64 {
	done, count := Counts(achieved, total)
	if count == 0 {
		return 0
	}
	return float64(done) / float64(count) * 100
}

// PowerWeights returns the conventional positional assignment 1, 2, 4, ...
func PowerWeights(n int) []int64 {
	ws := make([]int64, n)
	for i := range ws {
		ws[i] = 1 << i
	}
	return ws
}

// ValidateWeights checks that every weight is a positive power of two and
// that no two weights overlap. Run at catalog-save time so a malformed
// weight set never reaches stored answer records.
func ValidateWeights(weights []int64) error {
	var seen int64
	for i, w := range weights {
		if w <= 0 || w&(w-1) != 0 {
			return fmt.Errorf("entry %d: %w (got %d)", i, ErrInvalidWeight, w)
		}
		if seen&w != 0 {
			return fmt.Errorf("entry %d: %w (weight %d already used)", i, ErrOverlappingWeights, w)
		}
		seen |= w
	}
	return nil
}
