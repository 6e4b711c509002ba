package rib

import "net/netip"

// RouteFlags records a route's resolution state, per spec.md §3.
type RouteFlags uint8

const (
	FlagConnected RouteFlags = 1 << iota
	FlagResolved
	FlagUnresolvable
	FlagProcessing
	FlagNeedsResolve
)

func (m RouteFlags) has(f RouteFlags) bool { return m&f != 0 }

func (m RouteFlags) with(f RouteFlags) RouteFlags    { return m | f }
func (m RouteFlags) without(f RouteFlags) RouteFlags { return m &^ f }

// Route is a single prefix's state within a VRF/address-family RouteTable:
// the raw per-client contributions, the admin-distance winner among them,
// and the recursively-resolved forwarding entry actually published to
// the FIB.
type Route struct {
	Prefix netip.Prefix

	// ClientEntries holds every client's current contribution for this
	// prefix. The route is deleted once this map is empty (spec.md §3
	// invariant 1).
	ClientEntries map[ClientID]NextHopEntry

	BestClient ClientID
	BestEntry  NextHopEntry

	// Forwarding is the recursively-resolved entry actually eligible for
	// FIB publication, or the zero value while UNRESOLVABLE/unresolved.
	Forwarding NextHopEntry

	Flags   RouteFlags
	ClassID *uint32
}

func newRoute(prefix netip.Prefix) *Route {
	return &Route{
		Prefix:        prefix,
		ClientEntries: make(map[ClientID]NextHopEntry),
		Flags:         FlagNeedsResolve,
	}
}

// recomputeBest recomputes BestEntry/BestClient from ClientEntries per
// spec.md §4.2: minimum admin distance first, ties broken by the fixed
// client priority order. Returns whether the winner changed, in which
// case the caller must mark the route NEEDS_RESOLVE.
func (m *Route) recomputeBest(priority PriorityTable) (changed bool) {
	prevEntry := m.BestEntry
	prevClient := m.BestClient
	prevHadAny := len(m.ClientEntries) > 0 || prevEntry.Action != 0 || len(prevEntry.NextHops) != 0

	var (
		bestClient ClientID
		bestEntry  NextHopEntry
		haveBest   bool
	)
	for clientID, entry := range m.ClientEntries {
		switch {
		case !haveBest:
			bestClient, bestEntry, haveBest = clientID, entry, true
		case entry.AdminDistance < bestEntry.AdminDistance:
			bestClient, bestEntry = clientID, entry
		case entry.AdminDistance == bestEntry.AdminDistance && priority.Less(clientID, bestClient):
			bestClient, bestEntry = clientID, entry
		}
	}

	m.BestClient = bestClient
	m.BestEntry = bestEntry

	if bestClient == ClientInterface {
		m.Flags = m.Flags.with(FlagConnected)
	} else {
		m.Flags = m.Flags.without(FlagConnected)
	}

	if !haveBest {
		return prevHadAny
	}
	return !bestEntry.Equal(prevEntry) || bestClient != prevClient || !prevHadAny
}

// isEmpty reports whether the route has no remaining contributions and
// must be removed from its RouteTable.
func (m *Route) isEmpty() bool {
	return len(m.ClientEntries) == 0
}

// cloneEntries returns an independent copy of ClientEntries, used to
// capture the pre-transaction state for Coordinator rollback.
func (m *Route) cloneEntries() map[ClientID]NextHopEntry {
	if len(m.ClientEntries) == 0 {
		return nil
	}
	out := make(map[ClientID]NextHopEntry, len(m.ClientEntries))
	for id, entry := range m.ClientEntries {
		out[id] = entry.clone()
	}
	return out
}
