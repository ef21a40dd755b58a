package fragment

import "sort"

// Normalize returns the fragments in deterministic reading order. This is
// pure domain logic - no I/O, no side effects - and the ordering is a strict
// total order: any permutation of the same input produces identical output.
//
// Boxed fragments sort before boxless ones, then by (y0, x0, y1, x1, area)
// ascending, with (id, text) as the final lexicographic tie-break so
// duplicate geometry cannot reintroduce input-order dependence.
func Normalize(fragments []Fragment) []Fragment {
	out := make([]Fragment, len(fragments))
	copy(out, fragments)
	sort.Slice(out, func(i, j int) bool {
		return less(sortKey(out[i]), sortKey(out[j]))
	})
	return out
}

type key struct {
	hasBox         bool
	y0, x0, y1, x1 float64
	area           float64
	id, text       string
}

func sortKey(f Fragment) key {
	k := key{id: f.ID, text: f.Text}
	if b := f.Box.Box; b != nil {
		k.hasBox = true
		k.y0, k.x0, k.y1, k.x1 = b.Y0, b.X0, b.Y1, b.X1
		k.area = b.Area()
	}
	return k
}

func less(a, b key) bool {
	if a.hasBox != b.hasBox {
		return a.hasBox
	}
	if a.y0 != b.y0 {
		return a.y0 < b.y0
	}
	if a.x0 != b.x0 {
		return a.x0 < b.x0
	}
	if a.y1 != b.y1 {
		return a.y1 < b.y1
	}
	if a.x1 != b.x1 {
		return a.x1 < b.x1
	}
	if a.area != b.area {
		return a.area < b.area
	}
	if a.id != b.id {
		return a.id < b.id
	}
	return a.text < b.text
}
