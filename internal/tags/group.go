package tags

import (
	"tagassist/internal/doctree"
)

// Group is a contiguous window of sibling elements around one enrichment
// target. Groups are immutable after construction and consumed exactly once.
type Group struct {
	// Tags is the window, in child-index order.
	Tags []doctree.Element
	// TargetIndex is the target's position within Tags.
	TargetIndex int
}

// Target returns the element the group was built around.
func (g Group) Target() doctree.Element {
	return g.Tags[g.TargetIndex]
}

// NewGroup builds the window around the child of parent at targetIdx, taking
// surround/2 siblings on each side, clipped at the edges of the child list.
// Non-element children inside the window are skipped.
func NewGroup(parent doctree.Element, targetIdx, surround int) Group {
	half := surround / 2
	if half < 0 {
		// A negative surround would exclude the target itself.
		half = 0
	}
	var group Group

	for i := 0; i < parent.NumChildren(); i++ {
		if i < targetIdx-half || i > targetIdx+half {
			continue
		}
		child := parent.Child(i)
		if child == nil {
			continue
		}
		if i == targetIdx {
			// With all-element siblings this is min(half, targetIdx):
			// a window clipped on the left shifts the target to its
			// absolute child index, otherwise it sits half positions in.
			group.TargetIndex = len(group.Tags)
		}
		group.Tags = append(group.Tags, child)
	}

	return group
}

// BuildGroups walks the structure tree depth-first in pre-order and emits
// one Group per element whose type name matches. Matched elements are leaves
// of the search: their subtrees are not descended into. The returned order
// is the traversal order and fixes the processing order downstream.
func BuildGroups(root doctree.Element, m *Matcher, surround int) []Group {
	var groups []Group
	collectGroups(root, m, surround, &groups)
	return groups
}

func collectGroups(el doctree.Element, m *Matcher, surround int, groups *[]Group) {
	if el == nil {
		return
	}
	for i := 0; i < el.NumChildren(); i++ {
		if el.ChildKind(i) != doctree.ChildElement {
			continue
		}
		child := el.Child(i)
		if child == nil {
			continue
		}
		if m.Matches(child.Kind(false), child.Kind(true)) {
			*groups = append(*groups, NewGroup(el, i, surround))
		} else {
			collectGroups(child, m, surround, groups)
		}
	}
}
