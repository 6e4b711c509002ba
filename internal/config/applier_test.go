package config

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/ribd/internal/rib"
)

func TestApplierStagesInterfaceAndStaticRoutes(t *testing.T) {
	table := rib.NewRouteTable()
	updater := rib.NewRouteUpdater(table, rib.DefaultPriorityTable(), map[rib.InterfaceID]netip.Prefix{
		"eth0": netip.MustParsePrefix("10.0.0.0/24"),
	})

	vrf := VRFConfig{
		InterfaceRoutes: map[netip.Prefix]rib.InterfaceID{
			netip.MustParsePrefix("10.0.0.0/24"): "eth0",
		},
		StaticNullRoutes: []netip.Prefix{netip.MustParsePrefix("1.1.1.1/32")},
		StaticCPURoutes:  []netip.Prefix{netip.MustParsePrefix("2.2.2.2/32")},
		StaticRoutes: []StaticRoute{{
			Prefix:   netip.MustParsePrefix("4.4.4.4/32"),
			NextHops: []ConfigNextHop{{Address: netip.MustParseAddr("2.2.2.2")}},
		}},
	}

	applier := NewApplier()
	require.NoError(t, applier.Apply(updater, vrf))
	require.NoError(t, updater.Finalize())

	route, ok := table.ExactMatch(netip.MustParsePrefix("1.1.1.1/32"))
	require.True(t, ok)
	require.Equal(t, rib.ActionDrop, route.Forwarding.Action)

	route, ok = table.ExactMatch(netip.MustParsePrefix("4.4.4.4/32"))
	require.True(t, ok)
	require.Equal(t, rib.ActionToCPU, route.Forwarding.Action, "recursive resolution through the static to-cpu route")
}

func TestApplierRejectsUnspecifiedLinkLocalNextHop(t *testing.T) {
	table := rib.NewRouteTable()
	updater := rib.NewRouteUpdater(table, rib.DefaultPriorityTable(), nil)

	vrf := VRFConfig{
		StaticRoutes: []StaticRoute{{
			Prefix:   netip.MustParsePrefix("2001:db8::/64"),
			NextHops: []ConfigNextHop{{Address: netip.MustParseAddr("fe80::1")}},
		}},
	}

	err := NewApplier().Apply(updater, vrf)
	require.Error(t, err)
}

func TestApplierAcceptsLinkLocalNextHopWithInterface(t *testing.T) {
	table := rib.NewRouteTable()
	updater := rib.NewRouteUpdater(table, rib.DefaultPriorityTable(), nil)

	vrf := VRFConfig{
		StaticRoutes: []StaticRoute{{
			Prefix:   netip.MustParsePrefix("2001:db8::/64"),
			NextHops: []ConfigNextHop{{Address: netip.MustParseAddr("fe80::1"), Interface: "eth0"}},
		}},
	}

	require.NoError(t, NewApplier().Apply(updater, vrf))
}
