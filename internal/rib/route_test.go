package rib

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptrU32(v uint32) *uint32 { return &v }

func TestRouteRecomputeBestAdminDistance(t *testing.T) {
	priority := DefaultPriorityTable()
	route := newRoute(netip.MustParsePrefix("10.0.0.0/24"))

	route.ClientEntries[ClientBGP] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 20,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.0.1")}},
	}
	changed := route.recomputeBest(priority)
	require.True(t, changed)
	require.Equal(t, ClientBGP, route.BestClient)

	route.ClientEntries[ClientStatic] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 1,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.0.2")}},
	}
	changed = route.recomputeBest(priority)
	require.True(t, changed)
	require.Equal(t, ClientStatic, route.BestClient, "lower admin distance must win")
}

func TestRouteRecomputeBestPriorityTiebreak(t *testing.T) {
	priority := DefaultPriorityTable()
	route := newRoute(netip.MustParsePrefix("10.0.1.0/24"))

	route.ClientEntries[ClientStaticCPU] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 1,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.1.1")}},
	}
	route.ClientEntries[ClientStatic] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 1,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.1.2")}},
	}

	route.recomputeBest(priority)
	require.Equal(t, ClientStatic, route.BestClient, "equal distance must break ties via the fixed priority order")
}

func TestRouteRecomputeBestConnectedFlag(t *testing.T) {
	priority := DefaultPriorityTable()
	route := newRoute(netip.MustParsePrefix("10.0.2.0/24"))

	route.ClientEntries[ClientInterface] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 0,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.2.1")}},
	}
	route.recomputeBest(priority)
	require.True(t, route.Flags.has(FlagConnected))

	delete(route.ClientEntries, ClientInterface)
	route.ClientEntries[ClientBGP] = NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 20,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.2.2")}},
	}
	route.recomputeBest(priority)
	require.False(t, route.Flags.has(FlagConnected))
}

func TestRouteRecomputeBestUnchanged(t *testing.T) {
	priority := DefaultPriorityTable()
	route := newRoute(netip.MustParsePrefix("10.0.3.0/24"))
	entry := NextHopEntry{
		Action:        ActionNextHops,
		AdminDistance: 1,
		NextHops:      NextHopSet{{Address: netip.MustParseAddr("10.0.3.1")}},
	}
	route.ClientEntries[ClientStatic] = entry
	require.True(t, route.recomputeBest(priority))
	require.False(t, route.recomputeBest(priority), "recomputing with no change must report unchanged")
}

func TestNextHopEntryValidate(t *testing.T) {
	require.Error(t, NextHopEntry{Action: ActionNextHops}.Validate())
	require.NoError(t, NextHopEntry{Action: ActionDrop}.Validate())
	require.NoError(t, NextHopEntry{
		Action:   ActionNextHops,
		NextHops: NextHopSet{{Address: netip.MustParseAddr("10.0.0.1")}},
	}.Validate())
}

func TestNextHopSetNormalizeMergesDuplicates(t *testing.T) {
	set := NextHopSet{
		{Address: netip.MustParseAddr("10.0.0.1"), Weight: 1},
		{Address: netip.MustParseAddr("10.0.0.2"), Weight: 1},
		{Address: netip.MustParseAddr("10.0.0.1"), Weight: 2},
	}
	normalized := set.Normalize()
	require.Len(t, normalized, 2)
	require.Equal(t, netip.MustParseAddr("10.0.0.1"), normalized[0].Address)
	require.Equal(t, uint32(3), normalized[0].Weight)
}

func TestLabelStackPushOrdersOuterFirst(t *testing.T) {
	inner := LabelStack{300}
	outer := LabelStack{100, 200}
	pushed := inner.Push(outer)
	require.Equal(t, LabelStack{100, 200, 300}, pushed)
}
