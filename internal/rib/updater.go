package rib

import "net/netip"

// InterfaceSubnet describes one configured interface subnet, the only
// input the RIB consumes about interfaces (spec.md §1: ARP/ND, port/VLAN
// state are out of scope).
type InterfaceSubnet struct {
	Interface InterfaceID
	Subnet    netip.Prefix
}

// priorState captures a route's ClientEntries before the current
// transaction touched it, for Coordinator rollback (spec.md §4.5,
// §9 "rollback fidelity").
type priorState struct {
	prefix  netip.Prefix
	existed bool
	entries map[ClientID]NextHopEntry
}

// RouteUpdater stages one transaction's adds/deletes against a
// RouteTable and, on Finalize, recomputes recursive resolution for every
// route whose best_entry may have changed. It also records the inverse
// delta the Coordinator needs to roll the transaction back.
//
// Grounded on the teacher's RIB.Update(routes...) batch-then-commit
// shape (modules/route/internal/rib/rib.go); the recursive-resolution
// pass itself is new (spec.md §4.3 has no analog in the teacher, whose
// dataplane resolution happens in C out of scope per spec.md §1).
type RouteUpdater struct {
	table    *RouteTable
	priority PriorityTable

	prior map[netip.Prefix]*priorState
	reset map[ClientID]map[netip.Prefix]struct{}

	interfaces map[InterfaceID]netip.Prefix
}

// NewRouteUpdater starts a transaction against table. interfaces gives
// the current VRF's configured interface subnets, used to resolve
// explicit-interface next-hops (spec.md §4.3 step 1).
func NewRouteUpdater(table *RouteTable, priority PriorityTable, interfaces map[InterfaceID]netip.Prefix) *RouteUpdater {
	return &RouteUpdater{
		table:      table,
		priority:   priority,
		prior:      make(map[netip.Prefix]*priorState),
		reset:      make(map[ClientID]map[netip.Prefix]struct{}),
		interfaces: interfaces,
	}
}

func (m *RouteUpdater) captureBefore(prefix netip.Prefix, route *Route, existed bool) {
	if _, ok := m.prior[prefix]; ok {
		return
	}
	st := &priorState{prefix: prefix, existed: existed}
	if existed {
		st.entries = route.cloneEntries()
	}
	m.prior[prefix] = st
}

// AddClientRoute stages client's contribution of entry for prefix,
// replacing any previous contribution from the same client (spec.md
// §4.2 step 1).
func (m *RouteUpdater) AddClientRoute(client ClientID, prefix netip.Prefix, entry NextHopEntry) error {
	if !prefix.IsValid() {
		return wrapf(ErrInvalidInput, "invalid prefix %s", prefix)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	prefix = prefix.Masked()

	existing, existed := m.table.ExactMatch(prefix)
	m.captureBefore(prefix, existing, existed)

	route := m.table.InsertOrGet(prefix)
	route.ClientEntries[client] = entry.clone()
	if m.reset[client] != nil {
		m.reset[client][prefix] = struct{}{}
	}

	if route.recomputeBest(m.priority) {
		route.Flags = route.Flags.with(FlagNeedsResolve)
	}
	return nil
}

// DeleteClientRoute withdraws client's contribution for prefix. A no-op
// if the (prefix, client) pair does not exist, per spec.md §8.
func (m *RouteUpdater) DeleteClientRoute(client ClientID, prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return wrapf(ErrInvalidInput, "invalid prefix %s", prefix)
	}
	prefix = prefix.Masked()

	route, ok := m.table.ExactMatch(prefix)
	if !ok {
		return nil
	}
	if _, ok := route.ClientEntries[client]; !ok {
		return nil
	}

	m.captureBefore(prefix, route, true)

	delete(route.ClientEntries, client)
	if route.isEmpty() {
		m.table.Remove(prefix)
		return nil
	}
	if route.recomputeBest(m.priority) {
		route.Flags = route.Flags.with(FlagNeedsResolve)
	}
	return nil
}

// RestoreClassID sets prefix's route-level class tag directly, bypassing
// recomputeBest/resolution entirely — the same way Coordinator.SetClassID
// mutates it. Used by snapshot restore to reapply the class_id captured
// in the document, since it is a property of the route, not of any one
// client's contribution (spec.md §4.6, §8).
func (m *RouteUpdater) RestoreClassID(prefix netip.Prefix, classID *uint32) {
	if route, ok := m.table.ExactMatch(prefix.Masked()); ok {
		route.ClassID = classID
	}
}

// ResetClient marks client as having its whole contribution set replaced
// by this transaction: any route carrying a contribution from client
// that this transaction did not touch is withdrawn in Finalize. This
// generalizes the teacher's BIRD-import "replace the set of
// contributions" idea (spec.md §4.4, SPEC_FULL.md §C) to a single
// synchronous client update.
func (m *RouteUpdater) ResetClient(client ClientID) {
	if m.reset[client] == nil {
		m.reset[client] = make(map[netip.Prefix]struct{})
	}
}

func (m *RouteUpdater) applyResets() error {
	for client, kept := range m.reset {
		var stale []netip.Prefix
		collect := func(route *Route) bool {
			if _, ok := route.ClientEntries[client]; !ok {
				return true
			}
			if _, ok := kept[route.Prefix]; ok {
				return true
			}
			stale = append(stale, route.Prefix)
			return true
		}
		for _, af := range [...]AddressFamily{AFv4, AFv6} {
			m.table.All(af)(collect)
		}
		for _, prefix := range stale {
			if err := m.DeleteClientRoute(client, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finalize recomputes recursive resolution for the transaction, per
// spec.md §4.3. It re-resolves every route in both trees rather than
// only those flagged NEEDS_RESOLVE: correctness of spec.md §4.3's
// "transitively any route whose resolution depends on one that changed"
// clause is easiest to guarantee by treating every route as a candidate
// dependency each time; routes whose best_entry did
// not change simply re-derive the same Forwarding value.
func (m *RouteUpdater) Finalize() error {
	if err := m.applyResets(); err != nil {
		return err
	}

	ctx := &resolveCtx{
		stack: make(map[netip.Prefix]struct{}),
		done:  make(map[netip.Prefix]struct{}),
	}
	for _, af := range [...]AddressFamily{AFv4, AFv6} {
		var routes []*Route
		m.table.All(af)(func(r *Route) bool {
			routes = append(routes, r)
			return true
		})
		for _, route := range routes {
			m.resolveRoute(route, ctx)
		}
	}
	return nil
}

// PriorStates returns the captured pre-transaction state of every route
// this transaction touched, in no particular order. The Coordinator uses
// this as the inverse delta for rollback.
func (m *RouteUpdater) PriorStates() []PriorRouteState {
	out := make([]PriorRouteState, 0, len(m.prior))
	for _, st := range m.prior {
		out = append(out, PriorRouteState{
			Prefix:  st.prefix,
			Existed: st.existed,
			Entries: st.entries,
		})
	}
	return out
}

// PriorRouteState is one touched route's state before the transaction
// that touched it, sufficient to reconstruct client_entries and
// best_entry (spec.md §9, rollback fidelity): resolution is a pure
// function of contributions, so Forwarding need not be captured.
type PriorRouteState struct {
	Prefix  netip.Prefix
	Existed bool
	Entries map[ClientID]NextHopEntry
}

// resolveCtx threads cycle-prevention and pass-level memoization through
// a Finalize() call's recursive resolution.
type resolveCtx struct {
	stack map[netip.Prefix]struct{}
	done  map[netip.Prefix]struct{}
}

func (m *RouteUpdater) resolveRoute(route *Route, ctx *resolveCtx) {
	if _, ok := ctx.done[route.Prefix]; ok {
		return
	}

	if route.BestEntry.Action != ActionNextHops {
		route.Forwarding = NextHopEntry{
			Action:        route.BestEntry.Action,
			AdminDistance: route.BestEntry.AdminDistance,
			CounterID:     route.BestEntry.CounterID,
			ClassID:       route.ClassID,
		}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagUnresolvable).with(FlagResolved)
		ctx.done[route.Prefix] = struct{}{}
		return
	}

	// A directly connected (interface) route is always a terminal
	// resolution endpoint, never itself requiring recursive lookup: its
	// own next-hops are resolved as-is (spec.md §4.3 refers to CONNECTED
	// routes only from the caller's side, as something other routes
	// resolve *through*).
	if route.Flags.has(FlagConnected) {
		resolved := make(NextHopSet, len(route.BestEntry.NextHops))
		for i, nh := range route.BestEntry.NextHops {
			resolved[i] = nh
			resolved[i].Resolved = true
		}
		route.Forwarding = NextHopEntry{
			Action:        ActionNextHops,
			NextHops:      resolved.Normalize(),
			AdminDistance: route.BestEntry.AdminDistance,
			CounterID:     route.BestEntry.CounterID,
			ClassID:       route.ClassID,
		}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagUnresolvable).with(FlagResolved)
		ctx.done[route.Prefix] = struct{}{}
		return
	}

	route.Flags = route.Flags.with(FlagProcessing)
	ctx.stack[route.Prefix] = struct{}{}

	var (
		resolved NextHopSet
		sawDrop  bool
		sawToCPU bool
	)
	for _, nh := range route.BestEntry.NextHops {
		set, action, ok := m.resolveNextHop(route, nh, ctx)
		if !ok {
			continue
		}
		switch action {
		case ActionDrop:
			sawDrop = true
		case ActionToCPU:
			sawToCPU = true
		case ActionNextHops:
			resolved = append(resolved, set...)
		}
	}

	delete(ctx.stack, route.Prefix)
	route.Flags = route.Flags.without(FlagProcessing)

	normalized := resolved.Normalize()
	switch {
	case len(normalized) > 0:
		route.Forwarding = NextHopEntry{
			Action:        ActionNextHops,
			NextHops:      normalized,
			AdminDistance: route.BestEntry.AdminDistance,
			CounterID:     route.BestEntry.CounterID,
			ClassID:       route.ClassID,
		}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagUnresolvable).with(FlagResolved)
	case sawDrop:
		route.Forwarding = NextHopEntry{Action: ActionDrop, ClassID: route.ClassID}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagUnresolvable).with(FlagResolved)
	case sawToCPU:
		route.Forwarding = NextHopEntry{Action: ActionToCPU, ClassID: route.ClassID}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagUnresolvable).with(FlagResolved)
	default:
		route.Forwarding = NextHopEntry{}
		route.Flags = route.Flags.without(FlagNeedsResolve | FlagResolved).with(FlagUnresolvable)
	}
	ctx.done[route.Prefix] = struct{}{}
}

// resolveNextHop resolves a single unresolved next-hop per spec.md
// §4.3 step 1.
func (m *RouteUpdater) resolveNextHop(owner *Route, nh NextHop, ctx *resolveCtx) (NextHopSet, NextHopAction, bool) {
	if nh.Interface != "" {
		if subnet, ok := m.interfaces[nh.Interface]; ok && subnet.Contains(nh.Address) {
			return NextHopSet{{
				Address:   nh.Address,
				Interface: nh.Interface,
				Labels:    nh.Labels.Clone(),
				Weight:    nh.Weight,
				Resolved:  true,
			}}, ActionNextHops, true
		}
	}

	excluded := func(p netip.Prefix) bool {
		if p == owner.Prefix {
			return true
		}
		_, inStack := ctx.stack[p]
		return inStack
	}
	_, match, ok := m.table.LongestMatchExcluding(nh.Address, excluded)
	if !ok {
		return nil, 0, false
	}

	if match.Flags.has(FlagConnected) {
		iface := InterfaceID("")
		if len(match.BestEntry.NextHops) > 0 {
			iface = match.BestEntry.NextHops[0].Interface
		}
		return NextHopSet{{
			Address:   nh.Address,
			Interface: iface,
			Labels:    nh.Labels.Clone(),
			Weight:    nh.Weight,
			Resolved:  true,
		}}, ActionNextHops, true
	}

	switch match.BestEntry.Action {
	case ActionDrop:
		return nil, ActionDrop, true
	case ActionToCPU:
		return nil, ActionToCPU, true
	}

	m.resolveRoute(match, ctx)
	if match.Flags.has(FlagUnresolvable) {
		return nil, 0, false
	}

	out := make(NextHopSet, 0, len(match.Forwarding.NextHops))
	for _, inner := range match.Forwarding.NextHops {
		out = append(out, NextHop{
			Address:   inner.Address,
			Interface: inner.Interface,
			LinkLayer: inner.LinkLayer,
			Labels:    inner.Labels.Push(nh.Labels),
			Weight:    nh.Weight,
			Resolved:  true,
		})
	}
	return out, ActionNextHops, true
}
