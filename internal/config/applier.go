package config

import (
	"github.com/yanet-platform/ribd/internal/rib"
)

// Applier reconciles a VRF's RouteUpdater against a declarative
// VRFConfig, per spec.md §4.4: the interface and static contribution
// sets are replaced wholesale (add missing, delete removed, leave
// equal), driven by RouteUpdater.ResetClient rather than a hand-rolled
// diff.
type Applier struct{}

// NewApplier returns a stateless config applier.
func NewApplier() *Applier { return &Applier{} }

// Apply stages vrf's interface and static routes into updater. The
// caller is responsible for calling updater.Finalize() afterward.
func (a *Applier) Apply(updater *rib.RouteUpdater, vrf VRFConfig) error {
	if err := validateLinkLocalNextHops(vrf); err != nil {
		return err
	}

	updater.ResetClient(rib.ClientInterface)
	for prefix, iface := range vrf.InterfaceRoutes {
		entry := rib.NextHopEntry{
			Action:        rib.ActionNextHops,
			AdminDistance: rib.DefaultAdminDistances[rib.ClientInterface],
			NextHops:      rib.NextHopSet{{Address: prefix.Addr(), Interface: iface}},
		}
		if err := updater.AddClientRoute(rib.ClientInterface, prefix, entry); err != nil {
			return err
		}
	}

	updater.ResetClient(rib.ClientStatic)
	for _, route := range vrf.StaticRoutes {
		entry := rib.NextHopEntry{
			Action:        rib.ActionNextHops,
			AdminDistance: rib.DefaultAdminDistances[rib.ClientStatic],
			NextHops:      toNextHopSet(route.NextHops),
		}
		if err := updater.AddClientRoute(rib.ClientStatic, route.Prefix, entry); err != nil {
			return err
		}
	}

	updater.ResetClient(rib.ClientStaticNull)
	for _, prefix := range vrf.StaticNullRoutes {
		entry := rib.NextHopEntry{Action: rib.ActionDrop, AdminDistance: rib.DefaultAdminDistances[rib.ClientStaticNull]}
		if err := updater.AddClientRoute(rib.ClientStaticNull, prefix, entry); err != nil {
			return err
		}
	}

	updater.ResetClient(rib.ClientStaticCPU)
	for _, prefix := range vrf.StaticCPURoutes {
		entry := rib.NextHopEntry{Action: rib.ActionToCPU, AdminDistance: rib.DefaultAdminDistances[rib.ClientStaticCPU]}
		if err := updater.AddClientRoute(rib.ClientStaticCPU, prefix, entry); err != nil {
			return err
		}
	}

	// static_mpls_routes_with_nexthops is accepted and validated above
	// (the link-local rule applies to it too) but never staged into a
	// RouteTable: the RIB's LPM trees are keyed by IP prefix, and the
	// MPLS label FIB itself is explicitly out of scope (spec.md §1).

	return nil
}

func toNextHopSet(nexthops []ConfigNextHop) rib.NextHopSet {
	if len(nexthops) == 0 {
		return nil
	}
	out := make(rib.NextHopSet, len(nexthops))
	for i, nh := range nexthops {
		out[i] = rib.NextHop{
			Address:   nh.Address,
			Interface: nh.Interface,
			Labels:    rib.LabelStack(nh.Labels).Clone(),
			Weight:    nh.Weight,
		}
	}
	return out
}

// validateLinkLocalNextHops enforces spec.md §4.4: a next-hop whose
// address is IPv6 link-local must specify an interface.
func validateLinkLocalNextHops(vrf VRFConfig) error {
	check := func(nh ConfigNextHop) error {
		if nh.Address.Is6() && nh.Address.IsLinkLocalUnicast() && nh.Interface == "" {
			return rib.WrapInvalidConfig("link-local next-hop %s requires an explicit interface", nh.Address)
		}
		return nil
	}
	for _, route := range vrf.StaticRoutes {
		for _, nh := range route.NextHops {
			if err := check(nh); err != nil {
				return err
			}
		}
	}
	for _, route := range vrf.StaticMPLSRoutes {
		for _, nh := range route.NextHops {
			if err := check(nh); err != nil {
				return err
			}
		}
	}
	return nil
}
