package arraystore

import (
	"fmt"

	"objmodel/pkg/errors"
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

// Comparator orders two defined elements. It may run user code, which may
// fail or mutate the storage being sorted.
type Comparator interface {
	Less(a, b value.Value) (bool, error)
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(a, b value.Value) (bool, error)

func (f ComparatorFunc) Less(a, b value.Value) (bool, error) { return f(a, b) }

// Sort orders the first length elements. Defined values come first in
// comparator order, then undefined values, then holes. Elements at or past
// length are left alone. The elements are sorted in a scratch buffer and
// written back through the live storage once the comparator is done, so a
// comparator that mutates s never sees a half-written buffer. If the
// comparator fails, the partially sorted buffer is still written back and
// the error is returned.
func (s *Storage) Sort(cmp Comparator, length uint32) error {
	n := min(length, s.length)
	if n == 0 {
		return nil
	}
	if s.special > 0 {
		var bad error
		s.ForEach(func(i uint32, _ value.Value, a prop.Attributes) bool {
			if i >= n {
				return false
			}
			if !a.IsWritable() || !a.IsConfigurable() {
				bad = errors.NewInvariantError("arraystore.Sort", "element %d is not writable and configurable", i)
				return false
			}
			return true
		})
		if bad != nil {
			return bad
		}
	}

	defined := make([]value.Value, 0, min(n, s.count))
	undefined := uint32(0)
	s.ForEach(func(i uint32, v value.Value, _ prop.Attributes) bool {
		if i >= n {
			return false
		}
		if v.IsUndefined() {
			undefined++
		} else {
			defined = append(defined, v)
		}
		return true
	})

	err := quicksort(defined, cmp)
	if debugArrays {
		fmt.Printf("[array] sort n=%d defined=%d undefined=%d err=%v\n", n, len(defined), undefined, err)
	}
	s.writeBack(defined, undefined, n)
	return err
}

// writeBack stores the sorted elements starting at 0, then undefined
// values, then holes up to n. It re-reads the storage state, which the
// comparator may have changed.
func (s *Storage) writeBack(defined []value.Value, undefined, n uint32) {
	if s.mode == Sparse && s.count <= uint32(len(defined))+undefined {
		hasBeyond := false
		if s.length > n {
			walk(s.tree.root, func(nd *node) bool {
				if nd.key >= n {
					hasBeyond = true
					return false
				}
				return true
			})
		}
		if !hasBeyond && !s.wantSparse(s.length-1) {
			s.densify(s.length)
		}
	}
	i := uint32(0)
	for _, v := range defined {
		s.store(i, v, prop.Data)
		i++
	}
	for end := i + undefined; i < end; i++ {
		s.store(i, value.Undefined, prop.Data)
	}
	s.clearRange(i, n)
}

// quicksort sorts a in place with a three-way partition around a
// median-of-three pivot. It recurses on the smaller side and loops on the
// larger one, so the stack depth stays logarithmic.
func quicksort(a []value.Value, cmp Comparator) error {
	for len(a) > 1 {
		lt, gt, err := partition(a, cmp)
		if err != nil {
			return err
		}
		left, right := a[:lt], a[gt+1:]
		if len(left) < len(right) {
			if err := quicksort(left, cmp); err != nil {
				return err
			}
			a = right
		} else {
			if err := quicksort(right, cmp); err != nil {
				return err
			}
			a = left
		}
	}
	return nil
}

// partition rearranges a into < pivot, == pivot, > pivot and returns the
// bounds of the middle run, which always holds at least the pivot itself
// even when the comparator is inconsistent.
func partition(a []value.Value, cmp Comparator) (lt, gt int, err error) {
	hi := len(a) - 1
	mid := hi / 2
	if err := order(a, 0, mid, cmp); err != nil {
		return 0, 0, err
	}
	if err := order(a, 0, hi, cmp); err != nil {
		return 0, 0, err
	}
	if err := order(a, mid, hi, cmp); err != nil {
		return 0, 0, err
	}
	a[mid], a[hi] = a[hi], a[mid]
	pivot := a[hi]
	lt, gt = 0, hi-1
	for i := 0; i <= gt; {
		less, err := cmp.Less(a[i], pivot)
		if err != nil {
			return 0, 0, err
		}
		if less {
			a[lt], a[i] = a[i], a[lt]
			lt++
			i++
			continue
		}
		greater, err := cmp.Less(pivot, a[i])
		if err != nil {
			return 0, 0, err
		}
		if greater {
			a[i], a[gt] = a[gt], a[i]
			gt--
			continue
		}
		i++
	}
	gt++
	a[gt], a[hi] = a[hi], a[gt]
	return lt, gt, nil
}

// order swaps a[i] and a[j] when a[j] < a[i].
func order(a []value.Value, i, j int, cmp Comparator) error {
	if i == j {
		return nil
	}
	less, err := cmp.Less(a[j], a[i])
	if err != nil {
		return err
	}
	if less {
		a[i], a[j] = a[j], a[i]
	}
	return nil
}
