package overlay

import (
	"maps"
	"slices"
)

// Selection is an immutable set of display indices.
type Selection struct {
	set map[int]struct{}
}

// NewSelection returns a selection holding the given indices.
func NewSelection(indices ...int) Selection {
	s := Selection{set: make(map[int]struct{}, len(indices))}
	for _, i := range indices {
		s.set[i] = struct{}{}
	}
	return s
}

// Has reports whether index i is selected.
func (s Selection) Has(i int) bool {
	_, ok := s.set[i]
	return ok
}

// Len returns the number of selected rows.
func (s Selection) Len() int { return len(s.set) }

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return len(s.set) == 0 }

// Indices returns the selected indices in ascending order.
func (s Selection) Indices() []int {
	return slices.Sorted(maps.Keys(s.set))
}

// Prune drops indices that no longer address one of total rows.
func (s Selection) Prune(total int) Selection {
	stale := false
	for i := range s.set {
		if i < 0 || i >= total {
			stale = true
			break
		}
	}
	if !stale {
		return s
	}
	next := Selection{set: make(map[int]struct{}, len(s.set))}
	for i := range s.set {
		if i >= 0 && i < total {
			next.set[i] = struct{}{}
		}
	}
	return next
}

func (s Selection) with(indices ...int) Selection {
	next := Selection{set: maps.Clone(s.set)}
	if next.set == nil {
		next.set = make(map[int]struct{}, len(indices))
	}
	for _, i := range indices {
		next.set[i] = struct{}{}
	}
	return next
}

func (s Selection) without(i int) Selection {
	next := Selection{set: maps.Clone(s.set)}
	delete(next.set, i)
	return next
}

// Modifiers are the keyboard modifiers held during a click.
type Modifiers struct {
	Shift     bool
	CtrlOrCmd bool
}

// Anchor is the origin of shift ranges.
type Anchor struct {
	Index int
	Set   bool
}

// AnchorAt returns an anchor on index i.
func AnchorAt(i int) Anchor { return Anchor{Index: i, Set: true} }

// Click applies a click on display index idx.
//
// A plain click selects only idx and anchors there. Ctrl/Cmd toggles idx,
// anchoring on it only when it was added. Shift with an anchor selects the
// inclusive range between anchor and idx, replacing the selection unless
// Ctrl/Cmd is also held. The anchor does not move on shift clicks.
func Click(idx int, mods Modifiers, prev Selection, anchor Anchor) (Selection, Anchor) {
	switch {
	case mods.Shift && anchor.Set:
		lo, hi := min(anchor.Index, idx), max(anchor.Index, idx)
		rng := make([]int, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			rng = append(rng, i)
		}
		if mods.CtrlOrCmd {
			return prev.with(rng...), anchor
		}
		return NewSelection(rng...), anchor

	case mods.CtrlOrCmd:
		if prev.Has(idx) {
			return prev.without(idx), anchor
		}
		return prev.with(idx), AnchorAt(idx)

	default:
		return NewSelection(idx), AnchorAt(idx)
	}
}

// ToggleAll selects every one of total rows, or clears the selection when
// it already covers all of them.
func ToggleAll(prev Selection, total int) Selection {
	covered := total > 0
	for i := 0; i < total && covered; i++ {
		covered = prev.Has(i)
	}
	if covered {
		return Selection{}
	}
	all := make([]int, total)
	for i := range all {
		all[i] = i
	}
	return NewSelection(all...)
}
