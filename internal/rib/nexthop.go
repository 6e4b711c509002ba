package rib

import (
	"net/netip"
	"slices"
)

// InterfaceID names a local Layer-3 interface. The RIB treats it as an
// opaque token supplied by the interface/config layer; ARP/ND resolution
// of the interface's link-layer handle is out of scope (spec.md §1).
type InterfaceID string

// RouterID identifies a VRF (routing domain). Routes in different VRFs
// never cross-resolve.
type RouterID uint32

// LinkLayerHandle is the opaque link-layer token a resolved next-hop
// carries (e.g. a resolved MAC or tunnel handle). Its contents are never
// interpreted by the RIB itself.
type LinkLayerHandle string

// LabelStack is an ordered MPLS label stack; empty for pure IP next-hops.
type LabelStack []uint32

// Clone returns an independent copy of the label stack.
func (m LabelStack) Clone() LabelStack {
	if len(m) == 0 {
		return nil
	}
	return slices.Clone(m)
}

// Push returns a new label stack listing outer's labels first, followed
// by the receiver's labels. Stacks are listed outermost label first, so
// this is the receiver's stack with outer's labels pushed on top of it.
// Recursive resolution calls it on the covering route's resolved labels
// with the next-hop's own labels as outer (spec.md §4.3).
func (m LabelStack) Push(outer LabelStack) LabelStack {
	if len(outer) == 0 {
		return m.Clone()
	}
	out := make(LabelStack, 0, len(outer)+len(m))
	out = append(out, outer...)
	out = append(out, m...)
	return out
}

func (m LabelStack) equal(other LabelStack) bool {
	return slices.Equal(m, other)
}

// NextHopAction is the terminal disposition of a route's forwarding
// entry.
type NextHopAction uint8

const (
	ActionNextHops NextHopAction = iota
	ActionDrop
	ActionToCPU
)

func (m NextHopAction) String() string {
	switch m {
	case ActionDrop:
		return "DROP"
	case ActionToCPU:
		return "TO_CPU"
	case ActionNextHops:
		return "NEXTHOPS"
	default:
		return "UNKNOWN"
	}
}

// NextHop is a single member of a next-hop set. Before resolution only
// Address (and optionally Interface/Labels) are meaningful; after
// resolution Interface and LinkLayer describe the egress path. The
// Resolved flag distinguishes the two states (spec.md §3's sum type,
// flattened into one struct since Go has no tagged unions).
type NextHop struct {
	Address   netip.Addr
	Interface InterfaceID
	LinkLayer LinkLayerHandle
	Labels    LabelStack
	Weight    uint32
	Resolved  bool
}

// Equal reports structural equality, as required by spec.md §3.
func (m NextHop) Equal(o NextHop) bool {
	return m.Address == o.Address &&
		m.Interface == o.Interface &&
		m.LinkLayer == o.LinkLayer &&
		m.Weight == o.Weight &&
		m.Labels.equal(o.Labels) &&
		m.Resolved == o.Resolved
}

func nextHopCompare(a, b NextHop) int {
	if c := a.Address.Compare(b.Address); c != 0 {
		return c
	}
	if a.Interface != b.Interface {
		if a.Interface < b.Interface {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Labels) && i < len(b.Labels); i++ {
		if a.Labels[i] != b.Labels[i] {
			if a.Labels[i] < b.Labels[i] {
				return -1
			}
			return 1
		}
	}
	if c := len(a.Labels) - len(b.Labels); c != 0 {
		return c
	}
	if a.LinkLayer != b.LinkLayer {
		if a.LinkLayer < b.LinkLayer {
			return -1
		}
		return 1
	}
	return 0
}

// NextHopSet is an unordered multiset, normalized to a deterministic
// canonical order for equality, hashing and ECMP publication.
type NextHopSet []NextHop

// Normalize sorts the set and merges duplicates (same address, interface,
// label stack and link-layer handle) by summing their weights, per
// spec.md §4.3 step 3.
func (m NextHopSet) Normalize() NextHopSet {
	if len(m) == 0 {
		return nil
	}
	out := slices.Clone(m)
	slices.SortFunc(out, nextHopCompare)

	dedup := out[:0:0]
	for _, nh := range out {
		if n := len(dedup); n > 0 {
			last := &dedup[n-1]
			if last.Address == nh.Address && last.Interface == nh.Interface &&
				last.Labels.equal(nh.Labels) && last.LinkLayer == nh.LinkLayer {
				last.Weight += nh.Weight
				continue
			}
		}
		dedup = append(dedup, nh)
	}
	return dedup
}

// Equal reports whether two normalized sets are identical.
func (m NextHopSet) Equal(o NextHopSet) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if !m[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (m NextHopSet) Clone() NextHopSet {
	if len(m) == 0 {
		return nil
	}
	out := make(NextHopSet, len(m))
	for i, nh := range m {
		out[i] = nh
		out[i].Labels = nh.Labels.Clone()
	}
	return out
}

// NextHopEntry is a single contribution (or the winning/forwarding
// entry) for a route: either a terminal action (DROP, TO_CPU) or a set
// of next-hops to resolve.
type NextHopEntry struct {
	Action        NextHopAction
	NextHops      NextHopSet
	AdminDistance AdminDistance
	CounterID     *uint32
	ClassID       *uint32
}

// Validate enforces the NextHopEntry well-formedness rule of spec.md §8:
// an empty next-hop set with action NEXTHOPS is rejected.
func (m NextHopEntry) Validate() error {
	if m.Action == ActionNextHops && len(m.NextHops) == 0 {
		return wrapf(ErrInvalidInput, "next-hop entry with action NEXTHOPS must carry at least one next-hop")
	}
	return nil
}

// Equal reports structural equality of two contributions, used to detect
// whether a route's best_entry changed across a mutation.
func (m NextHopEntry) Equal(o NextHopEntry) bool {
	if m.Action != o.Action || m.AdminDistance != o.AdminDistance {
		return false
	}
	if (m.ClassID == nil) != (o.ClassID == nil) || (m.ClassID != nil && *m.ClassID != *o.ClassID) {
		return false
	}
	if (m.CounterID == nil) != (o.CounterID == nil) || (m.CounterID != nil && *m.CounterID != *o.CounterID) {
		return false
	}
	return NextHopSet(m.NextHops).Normalize().Equal(NextHopSet(o.NextHops).Normalize())
}

func (m NextHopEntry) clone() NextHopEntry {
	out := m
	out.NextHops = m.NextHops.Clone()
	return out
}
