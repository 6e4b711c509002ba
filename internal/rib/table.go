package rib

import (
	"net/netip"

	"github.com/gaissmai/bart"
)

// AddressFamily distinguishes the two longest-prefix-match trees a
// RouteTable holds, per spec.md §2/§4.1.
type AddressFamily uint8

const (
	AFv4 AddressFamily = iota
	AFv6
)

func addressFamilyOf(addr netip.Addr) AddressFamily {
	if addr.Is4() || addr.Is4In6() {
		return AFv4
	}
	return AFv6
}

// RouteTable is one VRF's pair of longest-prefix-match trees. The
// longest-prefix-match engine itself is github.com/gaissmai/bart's
// popcount-compressed multibit trie (see DESIGN.md, C2): it supplies the
// O(W) lookup, exact match, insert-or-update and ordered iteration
// spec.md §4.1 requires, plus Clone(), which gives the copy-on-write
// sub-state the Coordinator hands to the FIB callback as an immutable
// view (spec.md §6).
type RouteTable struct {
	v4 *bart.Table[*Route]
	v6 *bart.Table[*Route]
}

// NewRouteTable returns an empty RouteTable for one VRF.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		v4: new(bart.Table[*Route]),
		v6: new(bart.Table[*Route]),
	}
}

func (m *RouteTable) treeFor(af AddressFamily) *bart.Table[*Route] {
	if af == AFv4 {
		return m.v4
	}
	return m.v6
}

func (m *RouteTable) treeForPrefix(prefix netip.Prefix) *bart.Table[*Route] {
	return m.treeFor(addressFamilyOf(prefix.Addr()))
}

func (m *RouteTable) treeForAddr(addr netip.Addr) *bart.Table[*Route] {
	return m.treeFor(addressFamilyOf(addr))
}

// InsertOrGet returns the Route for prefix, creating an empty one if
// absent. Idempotent on prefix, as spec.md §4.1 requires. The prefix is
// masked (host bits zeroed) before lookup/insert, per spec.md §3.
func (m *RouteTable) InsertOrGet(prefix netip.Prefix) *Route {
	prefix = prefix.Masked()
	return m.treeForPrefix(prefix).Update(prefix, func(route *Route, ok bool) *Route {
		if ok {
			return route
		}
		return newRoute(prefix)
	})
}

// ExactMatch returns the Route stored exactly at prefix, if any.
func (m *RouteTable) ExactMatch(prefix netip.Prefix) (*Route, bool) {
	return m.treeForPrefix(prefix).Get(prefix.Masked())
}

// Remove deletes the route stored exactly at prefix. A no-op if absent.
func (m *RouteTable) Remove(prefix netip.Prefix) {
	m.treeForPrefix(prefix).Delete(prefix.Masked())
}

// LongestMatch returns the route whose prefix longest-covers addr.
func (m *RouteTable) LongestMatch(addr netip.Addr) (*Route, bool) {
	return m.treeForAddr(addr).Lookup(addr)
}

// LongestMatchExcluding performs a longest-prefix match for addr,
// skipping any candidate prefix for which excluded returns true. It
// implements the "no self-cover, no revisiting the resolution stack"
// rule of spec.md §4.3 by repeatedly narrowing the query's bit length to
// just short of the last excluded match via bart's LookupPrefixLPM; each
// retry strictly shortens the candidate prefix, so this terminates in at
// most address-width iterations (spec.md §8).
func (m *RouteTable) LongestMatchExcluding(addr netip.Addr, excluded func(netip.Prefix) bool) (netip.Prefix, *Route, bool) {
	tree := m.treeForAddr(addr)
	bits := addr.BitLen()

	for bits >= 0 {
		query, err := addr.Prefix(bits)
		if err != nil {
			return netip.Prefix{}, nil, false
		}
		matched, route, ok := tree.LookupPrefixLPM(query)
		if !ok {
			return netip.Prefix{}, nil, false
		}
		if !excluded(matched) {
			return matched, route, true
		}
		bits = matched.Bits() - 1
	}
	return netip.Prefix{}, nil, false
}

// All iterates every route in the given address family's tree in
// bart.Table.AllSorted's canonical CIDR order (ascending by address,
// then by prefix length), used by the snapshot codec and the FIB
// publish view.
func (m *RouteTable) All(af AddressFamily) func(yield func(*Route) bool) {
	tree := m.treeFor(af)
	return func(yield func(*Route) bool) {
		for _, route := range tree.AllSorted() {
			if !yield(route) {
				return
			}
		}
	}
}

// Size returns the number of routes in the given address family.
func (m *RouteTable) Size(af AddressFamily) int {
	return m.treeFor(af).Size()
}

// Clone returns an independent copy of the RouteTable suitable for
// handing to the FIB callback as an immutable view (spec.md §6): routes
// reachable only through the clone are never mutated by further writer
// activity on the live table.
func (m *RouteTable) Clone() *RouteTable {
	return &RouteTable{
		v4: m.v4.Clone(),
		v6: m.v6.Clone(),
	}
}

// V4 exposes the IPv4 tree for read-only traversal by the FIB callback.
func (m *RouteTable) V4() *bart.Table[*Route] { return m.v4 }

// V6 exposes the IPv6 tree for read-only traversal by the FIB callback.
func (m *RouteTable) V6() *bart.Table[*Route] { return m.v6 }
