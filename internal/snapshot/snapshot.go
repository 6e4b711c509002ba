// Package snapshot implements the self-describing document codec of
// spec.md §4.6: a full RIB serializes to a map of VRF-id to its v4/v6
// route lists and back, with forwarding always rederived at load time
// rather than stored.
package snapshot

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/ribd/internal/rib"
)

// Document is the top-level snapshot shape: VRF-id (stringified, per
// spec.md §4.6) to that VRF's routes.
type Document struct {
	VRFs map[string]VRF `yaml:"vrfs"`
}

// VRF is one routing domain's snapshot.
type VRF struct {
	RouterID uint32        `yaml:"routerId"`
	V4       []RouteRecord `yaml:"v4"`
	V6       []RouteRecord `yaml:"v6"`
}

// RouteRecord is one prefix's snapshot: its contributions and optional
// class-id. Forwarding is intentionally absent — it is a pure function
// of client_entries and is rederived by resolution on load (spec.md
// §4.6, §8).
type RouteRecord struct {
	Prefix        netip.Prefix  `yaml:"prefix"`
	ClientEntries []ClientEntry `yaml:"client_entries"`
	ClassID       *uint32       `yaml:"class_id,omitempty"`
}

// ClientEntry is one client's contribution within a RouteRecord.
type ClientEntry struct {
	ClientID      rib.ClientID      `yaml:"client_id"`
	AdminDistance rib.AdminDistance `yaml:"admin_distance"`
	Action        string            `yaml:"action"`
	NextHops      []NextHopRecord   `yaml:"nexthops,omitempty"`
	CounterID     *uint32           `yaml:"counter_id,omitempty"`
}

// NextHopRecord is the on-disk shape of an unresolved next-hop
// contribution.
type NextHopRecord struct {
	Address   netip.Addr      `yaml:"address"`
	Interface rib.InterfaceID `yaml:"interface,omitempty"`
	Labels    []uint32        `yaml:"labels,omitempty"`
	Weight    uint32          `yaml:"weight,omitempty"`
}

func actionToString(a rib.NextHopAction) string {
	return a.String()
}

func actionFromString(s string) (rib.NextHopAction, error) {
	switch s {
	case "NEXTHOPS":
		return rib.ActionNextHops, nil
	case "DROP":
		return rib.ActionDrop, nil
	case "TO_CPU":
		return rib.ActionToCPU, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", rib.ErrCorruptSnapshot, s)
	}
}

// ToDocument builds the self-describing snapshot of a set of VRFs, keyed
// by RouterID. Each VRF's RouteTable is walked in RouteTable.All's
// canonical CIDR sort order and each route's client entries are listed by
// ascending ClientID, which both makes the encoding deterministic and
// matches how a diff/review of the document would read it.
func ToDocument(vrfs map[rib.RouterID]*rib.RouteTable) *Document {
	doc := &Document{VRFs: make(map[string]VRF, len(vrfs))}
	for id, table := range vrfs {
		doc.VRFs[fmt.Sprintf("%d", uint32(id))] = VRF{
			RouterID: uint32(id),
			V4:       encodeTree(table, rib.AFv4),
			V6:       encodeTree(table, rib.AFv6),
		}
	}
	return doc
}

func encodeTree(table *rib.RouteTable, af rib.AddressFamily) []RouteRecord {
	var records []RouteRecord
	table.All(af)(func(route *rib.Route) bool {
		records = append(records, encodeRoute(route))
		return true
	})
	return records
}

func encodeRoute(route *rib.Route) RouteRecord {
	record := RouteRecord{
		Prefix:  route.Prefix,
		ClassID: route.ClassID,
	}
	for clientID, entry := range route.ClientEntries {
		record.ClientEntries = append(record.ClientEntries, ClientEntry{
			ClientID:      clientID,
			AdminDistance: entry.AdminDistance,
			Action:        actionToString(entry.Action),
			NextHops:      encodeNextHops(entry.NextHops),
			CounterID:     entry.CounterID,
		})
	}
	slices.SortFunc(record.ClientEntries, func(a, b ClientEntry) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return record
}

func encodeNextHops(set rib.NextHopSet) []NextHopRecord {
	if len(set) == 0 {
		return nil
	}
	out := make([]NextHopRecord, len(set))
	for i, nh := range set {
		out[i] = NextHopRecord{
			Address:   nh.Address,
			Interface: nh.Interface,
			Labels:    []uint32(nh.Labels),
			Weight:    nh.Weight,
		}
	}
	return out
}

// Marshal encodes a Document as yaml.
func Marshal(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rib.ErrCorruptSnapshot, err)
	}
	return data, nil
}

// Unmarshal decodes a yaml Document. Unknown fields are ignored, per
// spec.md §6's forward-compatibility contract.
func Unmarshal(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", rib.ErrCorruptSnapshot, err)
	}
	return doc, nil
}

// Apply stages every VRF in doc into fresh RouteTables via the supplied
// updater factory, returning the populated tables keyed by RouterID. The
// caller must still call Finalize on each returned updater to rederive
// forwarding (spec.md §4.6: forwarding is never trusted from the wire).
func Apply(doc *Document, newUpdater func(*rib.RouteTable) *rib.RouteUpdater) (map[rib.RouterID]*rib.RouteTable, map[rib.RouterID]*rib.RouteUpdater, error) {
	tables := make(map[rib.RouterID]*rib.RouteTable, len(doc.VRFs))
	updaters := make(map[rib.RouterID]*rib.RouteUpdater, len(doc.VRFs))

	for _, vrf := range doc.VRFs {
		table := rib.NewRouteTable()
		updater := newUpdater(table)

		for _, record := range vrf.V4 {
			if err := applyRecord(updater, record); err != nil {
				return nil, nil, err
			}
		}
		for _, record := range vrf.V6 {
			if err := applyRecord(updater, record); err != nil {
				return nil, nil, err
			}
		}

		tables[rib.RouterID(vrf.RouterID)] = table
		updaters[rib.RouterID(vrf.RouterID)] = updater
	}
	return tables, updaters, nil
}

func applyRecord(updater *rib.RouteUpdater, record RouteRecord) error {
	for _, ce := range record.ClientEntries {
		action, err := actionFromString(ce.Action)
		if err != nil {
			return err
		}
		entry := rib.NextHopEntry{
			Action:        action,
			AdminDistance: ce.AdminDistance,
			CounterID:     ce.CounterID,
			NextHops:      decodeNextHops(ce.NextHops),
		}
		if err := updater.AddClientRoute(ce.ClientID, record.Prefix, entry); err != nil {
			return fmt.Errorf("%w: %v", rib.ErrCorruptSnapshot, err)
		}
	}
	// record.ClassID is the route's own tag (set via set_class_id), not a
	// per-client contribution field — restore it on the route directly,
	// the same way set_class_id itself bypasses client_entries.
	updater.RestoreClassID(record.Prefix, record.ClassID)
	return nil
}

func decodeNextHops(records []NextHopRecord) rib.NextHopSet {
	if len(records) == 0 {
		return nil
	}
	out := make(rib.NextHopSet, len(records))
	for i, record := range records {
		out[i] = rib.NextHop{
			Address:   record.Address,
			Interface: record.Interface,
			Labels:    rib.LabelStack(record.Labels).Clone(),
			Weight:    record.Weight,
		}
	}
	return out
}
