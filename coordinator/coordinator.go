// Package coordinator implements the RIB Coordinator of spec.md §4.5:
// it owns the VRF map, serializes all mutation onto a single writer,
// and drives transactional FIB publish with rollback on hardware
// failure.
package coordinator

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanet-platform/ribd/internal/config"
	"github.com/yanet-platform/ribd/internal/rib"
	"github.com/yanet-platform/ribd/internal/snapshot"
)

type options struct {
	Log      *zap.SugaredLogger
	Priority rib.PriorityTable
}

func newOptions() *options {
	return &options{
		Log:      zap.NewNop().Sugar(),
		Priority: rib.DefaultPriorityTable(),
	}
}

// Option configures a Coordinator at construction time.
type Option func(*options)

// WithLog sets the Coordinator's logger.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.Log = log
	}
}

// WithPriorityTable overrides the default client tie-break order
// (spec.md §4.2).
func WithPriorityTable(priority rib.PriorityTable) Option {
	return func(o *options) {
		o.Priority = priority
	}
}

// Coordinator owns RouterID → RouteTable and serializes every mutation
// through a single writer goroutine, per spec.md §4.5/§5.
type Coordinator struct {
	cfg *Config

	mu         sync.RWMutex
	vrfs       map[rib.RouterID]*rib.RouteTable
	interfaces map[rib.RouterID]map[rib.InterfaceID]netip.Prefix

	priority rib.PriorityTable
	tasks    chan writerTask
	closed   chan struct{}

	log *zap.SugaredLogger
}

// NewCoordinator constructs a Coordinator with an empty VRF map. Run
// must be called to start servicing the writer queue.
func NewCoordinator(cfg *Config, opts ...Option) *Coordinator {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Coordinator{
		cfg:        cfg,
		vrfs:       make(map[rib.RouterID]*rib.RouteTable),
		interfaces: make(map[rib.RouterID]map[rib.InterfaceID]netip.Prefix),
		priority:   o.Priority,
		tasks:      make(chan writerTask, cfg.WriterQueueSize),
		closed:     make(chan struct{}),
		log:        o.Log,
	}
}

// EnsureVRF idempotently creates an empty RouteTable for vrf if it does
// not already exist.
func (m *Coordinator) EnsureVRF(vrf rib.RouterID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vrfs[vrf]; !ok {
		m.vrfs[vrf] = rib.NewRouteTable()
		m.interfaces[vrf] = make(map[rib.InterfaceID]netip.Prefix)
	}
}

// ListVRFs returns every known RouterID, in no particular order.
func (m *Coordinator) ListVRFs() []rib.RouterID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rib.RouterID, 0, len(m.vrfs))
	for id := range m.vrfs {
		out = append(out, id)
	}
	return out
}

// GetRoutes returns a snapshot clone of vrf's RouteTable.
func (m *Coordinator) GetRoutes(vrf rib.RouterID) (*rib.RouteTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.vrfs[vrf]
	if !ok {
		return nil, rib.ErrUnknownVRF
	}
	return table.Clone(), nil
}

// RouteAdd is one prefix's contribution within an Update call.
type RouteAdd struct {
	Prefix   netip.Prefix
	Action   rib.NextHopAction
	NextHops rib.NextHopSet
}

// UpdateRequest is a single client's delta against one VRF, per spec.md
// §4.5's `update` operation.
type UpdateRequest struct {
	VRF      rib.RouterID
	Client   rib.ClientID
	// AdminDistance overrides the client's default admin distance for
	// every add in this call, if non-nil.
	AdminDistance *rib.AdminDistance
	Adds          []RouteAdd
	Deletes       []netip.Prefix
	// ResetClient replaces Client's entire contribution set with Adds,
	// per spec.md §8 scenario 3.
	ResetClient bool
	FibUpdate   FibUpdateFn
	Cookie      any
	// Async makes submit fire-and-forget; Update still returns
	// immediately with zero stats in that case.
	Async bool
}

// Update applies one client's delta to a VRF, synchronized through the
// writer queue, per spec.md §4.5.
func (m *Coordinator) Update(ctx context.Context, req UpdateRequest) (UpdateStats, error) {
	var stats UpdateStats
	err := m.submit(ctx, func() error {
		start := time.Now()

		// The exclusive lock is held for the whole staging+finalize+
		// publish transaction, not just the map lookup: spec.md §5
		// requires writer tasks to hold it "for the duration of the
		// transaction" so a concurrent RLock-only reader (GetRoutes,
		// ToSnapshot) never observes a torn bart.Table mid-mutation.
		m.mu.Lock()
		defer m.mu.Unlock()

		table, ok := m.vrfs[req.VRF]
		interfaces := m.interfaces[req.VRF]
		if !ok {
			return rib.ErrUnknownVRF
		}

		before4, before6 := table.Size(rib.AFv4), table.Size(rib.AFv6)

		admin := rib.DefaultAdminDistances[req.Client]
		if req.AdminDistance != nil {
			admin = *req.AdminDistance
		}

		_, err := m.runTransaction(req.VRF, table, interfaces, func(u *rib.RouteUpdater) error {
			if req.ResetClient {
				u.ResetClient(req.Client)
			}
			for _, add := range req.Adds {
				entry := rib.NextHopEntry{Action: add.Action, AdminDistance: admin, NextHops: add.NextHops}
				if err := u.AddClientRoute(req.Client, add.Prefix, entry); err != nil {
					return err
				}
			}
			for _, prefix := range req.Deletes {
				if err := u.DeleteClientRoute(req.Client, prefix); err != nil {
					return err
				}
			}
			return nil
		}, req.FibUpdate, req.Cookie)
		if err != nil {
			return err
		}

		after4, after6 := table.Size(rib.AFv4), table.Size(rib.AFv6)
		stats = statsFromDuration(time.Since(start))
		if after4 > before4 {
			stats.V4Added = after4 - before4
		} else {
			stats.V4Deleted = before4 - after4
		}
		if after6 > before6 {
			stats.V6Added = after6 - before6
		} else {
			stats.V6Deleted = before6 - after6
		}
		return nil
	}, req.Async)

	return stats, err
}

// SetClassIDRequest tags a set of existing routes with class_id.
type SetClassIDRequest struct {
	VRF       rib.RouterID
	Prefixes  []netip.Prefix
	ClassID   uint32
	FibUpdate FibUpdateFn
	Cookie    any
	Async     bool
}

// SetClassID applies a classification tag to existing routes, per
// spec.md §4.5. Unlike Update, a class_id change never touches
// client_entries or forces re-resolution, and a publish failure is not
// rolled back: spec.md's operation table lists only UnknownVRF as an
// error for this call, not HwUpdateError.
func (m *Coordinator) SetClassID(ctx context.Context, req SetClassIDRequest) error {
	return m.submit(ctx, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		table, ok := m.vrfs[req.VRF]
		if !ok {
			return rib.ErrUnknownVRF
		}

		classID := req.ClassID
		for _, prefix := range req.Prefixes {
			route, ok := table.ExactMatch(prefix)
			if !ok {
				continue
			}
			route.ClassID = &classID
		}

		return req.FibUpdate(req.VRF, table.Clone(), req.Cookie)
	}, req.Async)
}

// Reconfigure replaces the full declarative state, per spec.md §4.4/§4.5:
// VRFs present in cfg are created if missing and have their interface
// and static contribution sets replaced to match; VRFs absent from cfg
// are deleted entirely.
func (m *Coordinator) Reconfigure(ctx context.Context, cfg *config.Config, fibCb FibUpdateFn, cookie any) error {
	return m.submit(ctx, func() error {
		applier := config.NewApplier()

		m.mu.Lock()
		for vrf := range m.vrfs {
			if _, keep := cfg.VRFs[vrf]; !keep {
				delete(m.vrfs, vrf)
				delete(m.interfaces, vrf)
			}
		}
		for vrf := range cfg.VRFs {
			if _, ok := m.vrfs[vrf]; !ok {
				m.vrfs[vrf] = rib.NewRouteTable()
			}
		}
		m.mu.Unlock()

		for vrf, vrfCfg := range cfg.VRFs {
			// Held for the whole per-VRF transaction, same as Update/
			// SetClassID: see the lock comment in Update.
			err := func() error {
				m.mu.Lock()
				defer m.mu.Unlock()

				table := m.vrfs[vrf]
				m.interfaces[vrf] = vrfCfg.InterfaceRoutes
				interfaces := m.interfaces[vrf]

				_, err := m.runTransaction(vrf, table, interfaces, func(u *rib.RouteUpdater) error {
					return applier.Apply(u, vrfCfg)
				}, fibCb, cookie)
				return err
			}()
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// ToSnapshot serializes every VRF to the self-describing document
// format of spec.md §4.6. The whole map is read under a single RLock so
// the result reflects one consistent point in time across VRFs.
func (m *Coordinator) ToSnapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vrfs := make(map[rib.RouterID]*rib.RouteTable, len(m.vrfs))
	for id, table := range m.vrfs {
		vrfs[id] = table
	}
	return snapshot.Marshal(snapshot.ToDocument(vrfs))
}

// FromSnapshot replaces the entire VRF map with the state decoded from
// data, rederiving forwarding for every route rather than trusting it
// from the wire (spec.md §4.6, §8). Runs as a single writer task so it
// serializes with any in-flight mutation.
func (m *Coordinator) FromSnapshot(ctx context.Context, data []byte) error {
	if m.cfg.MaxSnapshotSize > 0 && uint64(len(data)) > uint64(m.cfg.MaxSnapshotSize) {
		return fmt.Errorf("%w: snapshot of %d bytes exceeds the %s limit", rib.ErrCorruptSnapshot, len(data), m.cfg.MaxSnapshotSize)
	}

	doc, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}

	return m.submit(ctx, func() error {
		tables, updaters, err := snapshot.Apply(doc, func(table *rib.RouteTable) *rib.RouteUpdater {
			return rib.NewRouteUpdater(table, m.priority, nil)
		})
		if err != nil {
			return err
		}
		for _, updater := range updaters {
			if err := updater.Finalize(); err != nil {
				return fmt.Errorf("%w: %v", rib.ErrCorruptSnapshot, err)
			}
		}

		m.mu.Lock()
		m.vrfs = tables
		m.interfaces = make(map[rib.RouterID]map[rib.InterfaceID]netip.Prefix, len(tables))
		for vrf := range tables {
			m.interfaces[vrf] = make(map[rib.InterfaceID]netip.Prefix)
		}
		m.mu.Unlock()
		return nil
	}, false)
}

