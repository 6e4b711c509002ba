package rib

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouteTableInsertOrGetIdempotent(t *testing.T) {
	table := NewRouteTable()
	prefix := netip.MustParsePrefix("192.0.2.0/24")

	first := table.InsertOrGet(prefix)
	second := table.InsertOrGet(prefix)
	require.Same(t, first, second)
	require.Equal(t, 1, table.Size(AFv4))
}

func TestRouteTableExactMatchAndRemove(t *testing.T) {
	table := NewRouteTable()
	prefix := netip.MustParsePrefix("192.0.2.0/24")
	table.InsertOrGet(prefix)

	_, ok := table.ExactMatch(prefix)
	require.True(t, ok)

	table.Remove(prefix)
	_, ok = table.ExactMatch(prefix)
	require.False(t, ok)
}

func TestRouteTableLongestMatch(t *testing.T) {
	table := NewRouteTable()
	table.InsertOrGet(netip.MustParsePrefix("10.0.0.0/8"))
	table.InsertOrGet(netip.MustParsePrefix("10.0.0.0/24"))

	route, ok := table.LongestMatch(netip.MustParseAddr("10.0.0.5"))
	require.True(t, ok)
	require.Equal(t, netip.MustParsePrefix("10.0.0.0/24"), route.Prefix)

	route, ok = table.LongestMatch(netip.MustParseAddr("10.1.1.1"))
	require.True(t, ok)
	require.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), route.Prefix)

	_, ok = table.LongestMatch(netip.MustParseAddr("192.168.0.1"))
	require.False(t, ok)
}

func TestRouteTableLongestMatchExcludingSelf(t *testing.T) {
	table := NewRouteTable()
	outer := netip.MustParsePrefix("10.0.0.0/8")
	inner := netip.MustParsePrefix("10.0.0.0/24")
	table.InsertOrGet(outer)
	table.InsertOrGet(inner)

	matched, _, ok := table.LongestMatchExcluding(netip.MustParseAddr("10.0.0.5"), func(p netip.Prefix) bool {
		return p == inner
	})
	require.True(t, ok)
	require.Equal(t, outer, matched)
}

func TestRouteTableLongestMatchExcludingNoCandidate(t *testing.T) {
	table := NewRouteTable()
	only := netip.MustParsePrefix("10.0.0.0/24")
	table.InsertOrGet(only)

	_, _, ok := table.LongestMatchExcluding(netip.MustParseAddr("10.0.0.5"), func(p netip.Prefix) bool {
		return p == only
	})
	require.False(t, ok)
}

func TestRouteTableAllSortedByFamily(t *testing.T) {
	table := NewRouteTable()
	table.InsertOrGet(netip.MustParsePrefix("10.0.0.0/8"))
	table.InsertOrGet(netip.MustParsePrefix("192.168.0.0/16"))
	table.InsertOrGet(netip.MustParsePrefix("2001:db8::/32"))

	var v4 []netip.Prefix
	table.All(AFv4)(func(r *Route) bool {
		v4 = append(v4, r.Prefix)
		return true
	})
	require.Len(t, v4, 2)

	var v6 []netip.Prefix
	table.All(AFv6)(func(r *Route) bool {
		v6 = append(v6, r.Prefix)
		return true
	})
	require.Len(t, v6, 1)
}

func TestRouteTableCloneIsIndependent(t *testing.T) {
	table := NewRouteTable()
	prefix := netip.MustParsePrefix("10.0.0.0/24")
	route := table.InsertOrGet(prefix)
	route.ClientEntries[ClientStatic] = NextHopEntry{Action: ActionDrop, AdminDistance: 1}

	clone := table.Clone()
	table.Remove(prefix)

	_, ok := table.ExactMatch(prefix)
	require.False(t, ok)

	_, ok = clone.ExactMatch(prefix)
	require.True(t, ok, "clone must be unaffected by mutation of the live table")
}
