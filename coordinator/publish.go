package coordinator

import (
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/yanet-platform/ribd/internal/rib"
)

// FibUpdateFn is the downstream hardware programmer hook, spec.md §6.
// It receives an immutable view into the VRF's resolved trees. Any
// non-nil error it returns triggers rollback and is surfaced to the
// caller wrapped as rib.ErrHwUpdateError.
type FibUpdateFn func(vrf rib.RouterID, view *rib.RouteTable, cookie any) error

// runTransaction stages mutate against vrf's table, finalizes
// resolution, and publishes via fibCb, per the protocol of spec.md
// §4.5:
//  1. stage changes (inverse-delta recorded by the RouteUpdater)
//  2. finalize() recomputes resolution
//  3. invoke fibCb with an immutable clone of the resolved trees
//  4. on HwUpdateError: reapply the inverse delta, finalize again,
//     republish; a second failure is escalated as fatal
//  5. on success, the inverse delta is simply discarded
//
// Grounded on the teacher's setupConfig two-phase apply-then-publish
// shape (modules/route/coordinator/service.go) generalized to any
// mutating operation.
func (m *Coordinator) runTransaction(
	vrf rib.RouterID,
	table *rib.RouteTable,
	interfaces map[rib.InterfaceID]netip.Prefix,
	mutate func(*rib.RouteUpdater) error,
	fibCb FibUpdateFn,
	cookie any,
) (*rib.RouteUpdater, error) {
	updater := rib.NewRouteUpdater(table, m.priority, interfaces)

	if err := mutate(updater); err != nil {
		// Undo whatever was staged before the failing step. Nothing was
		// published yet, so the restored state is not republished either.
		noPublish := func(rib.RouterID, *rib.RouteTable, any) error { return nil }
		if restoreErr := m.rollback(vrf, table, interfaces, updater, noPublish, nil); restoreErr != nil {
			return nil, fmt.Errorf("%w: %v", rib.ErrFatalInconsistency, restoreErr)
		}
		return nil, err
	}
	if err := updater.Finalize(); err != nil {
		return nil, err
	}

	if err := fibCb(vrf, table.Clone(), cookie); err != nil {
		m.log.Warnw("fib update rejected, rolling back", zap.Uint32("vrf", uint32(vrf)), zap.Error(err))
		if rollbackErr := m.rollback(vrf, table, interfaces, updater, fibCb, cookie); rollbackErr != nil {
			m.log.Fatalw("rollback republish failed, RIB state is inconsistent",
				zap.Uint32("vrf", uint32(vrf)), zap.Error(rollbackErr))
			return nil, fmt.Errorf("%w: %v", rib.ErrFatalInconsistency, rollbackErr)
		}
		return nil, fmt.Errorf("%w: %v", rib.ErrHwUpdateError, err)
	}

	return updater, nil
}

// rollback restores every route this transaction touched to its
// pre-transaction client_entries, re-resolves, and republishes, per
// spec.md §9 "rollback fidelity".
func (m *Coordinator) rollback(
	vrf rib.RouterID,
	table *rib.RouteTable,
	interfaces map[rib.InterfaceID]netip.Prefix,
	failed *rib.RouteUpdater,
	fibCb FibUpdateFn,
	cookie any,
) error {
	restore := rib.NewRouteUpdater(table, m.priority, interfaces)
	for _, prior := range failed.PriorStates() {
		if !prior.Existed {
			for client := range currentClients(table, prior.Prefix) {
				_ = restore.DeleteClientRoute(client, prior.Prefix)
			}
			continue
		}
		for client, entry := range prior.Entries {
			if err := restore.AddClientRoute(client, prior.Prefix, entry); err != nil {
				return err
			}
		}
		for client := range currentClients(table, prior.Prefix) {
			if _, hadBefore := prior.Entries[client]; !hadBefore {
				_ = restore.DeleteClientRoute(client, prior.Prefix)
			}
		}
	}

	if err := restore.Finalize(); err != nil {
		return err
	}
	return fibCb(vrf, table.Clone(), cookie)
}

func currentClients(table *rib.RouteTable, prefix netip.Prefix) map[rib.ClientID]struct{} {
	route, ok := table.ExactMatch(prefix)
	if !ok {
		return nil
	}
	out := make(map[rib.ClientID]struct{}, len(route.ClientEntries))
	for client := range route.ClientEntries {
		out[client] = struct{}{}
	}
	return out
}
