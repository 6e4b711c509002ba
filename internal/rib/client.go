package rib

// ClientID identifies a route source contributing to the RIB: BGP,
// static configuration, directly connected interfaces, OpenR, etc.
type ClientID uint8

const (
	ClientUnknown ClientID = iota
	// ClientInterface carries directly-connected subnet routes derived
	// from the configured interface set.
	ClientInterface
	// ClientStatic carries static routes with explicit next-hops.
	ClientStatic
	// ClientStaticNull carries static routes configured to DROP.
	ClientStaticNull
	// ClientStaticCPU carries static routes configured to TO_CPU.
	ClientStaticCPU
	ClientBGP
	ClientOpenR
)

// AdminDistance is a per-route-source preference; lower wins.
type AdminDistance uint8

// UnresolvableDistance marks a route that has been withdrawn from
// publication; it never wins a tie-break.
const UnresolvableDistance AdminDistance = 255

// DefaultAdminDistances assigns the out-of-the-box administrative
// distance for each known client, mirroring common router defaults
// (directly connected wins over everything, static beats dynamic
// protocols, BGP beats OpenR).
var DefaultAdminDistances = map[ClientID]AdminDistance{
	ClientInterface:   0,
	ClientStatic:      1,
	ClientStaticNull:  1,
	ClientStaticCPU:   1,
	ClientBGP:         20,
	ClientOpenR:       99,
}

// clientPriorityOrder breaks ties between contributions of equal admin
// distance. Earlier entries win. This is the deterministic total order
// spec.md §9 requires implementors to document.
var clientPriorityOrder = []ClientID{
	ClientStatic,
	ClientStaticNull,
	ClientStaticCPU,
	ClientInterface,
	ClientBGP,
	ClientOpenR,
	ClientUnknown,
}

// PriorityTable ranks clients for admin-distance tie-break. Lower Rank
// wins. Callers may supply a custom table to NewRouteUpdater, or to
// NewCoordinator through the WithPriorityTable option; the
// zero value is not usable, use DefaultPriorityTable().
type PriorityTable struct {
	rank map[ClientID]int
}

// DefaultPriorityTable returns the priority table implementing the order
// documented in clientPriorityOrder.
func DefaultPriorityTable() PriorityTable {
	rank := make(map[ClientID]int, len(clientPriorityOrder))
	for idx, id := range clientPriorityOrder {
		rank[id] = idx
	}
	return PriorityTable{rank: rank}
}

// Rank returns the tie-break rank for id; unknown clients sort last but
// deterministically relative to one another (by numeric ID).
func (m PriorityTable) Rank(id ClientID) int {
	if r, ok := m.rank[id]; ok {
		return r
	}
	return len(m.rank) + int(id)
}

// Less reports whether a should be preferred over b at equal admin
// distance.
func (m PriorityTable) Less(a, b ClientID) bool {
	return m.Rank(a) < m.Rank(b)
}
