// Package config defines the declarative input consumed by a RIB
// Coordinator's Reconfigure operation (spec.md §6), and the yaml
// encoding of it on disk.
package config

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/ribd/internal/rib"
)

// VRFConfig is one VRF's declarative route state, per spec.md §6.
type VRFConfig struct {
	// InterfaceRoutes maps a directly connected subnet to the interface
	// that owns it.
	InterfaceRoutes map[netip.Prefix]rib.InterfaceID `yaml:"interface_routes"`

	StaticRoutes     []StaticRoute     `yaml:"static_routes"`
	StaticNullRoutes []netip.Prefix    `yaml:"static_null_routes"`
	StaticCPURoutes  []netip.Prefix    `yaml:"static_cpu_routes"`
	StaticMPLSRoutes []StaticMPLSRoute `yaml:"static_mpls_routes"`
}

// StaticRoute is one statically configured route with an explicit
// next-hop set.
type StaticRoute struct {
	Prefix   netip.Prefix    `yaml:"prefix"`
	NextHops []ConfigNextHop `yaml:"nexthops"`
}

// StaticMPLSRoute is one statically configured MPLS transit route, keyed
// by ingress label rather than an IP prefix.
type StaticMPLSRoute struct {
	IngressLabel uint32          `yaml:"ingress_label"`
	NextHops     []ConfigNextHop `yaml:"nexthops"`
}

// ConfigNextHop is the on-disk shape of an unresolved next-hop.
type ConfigNextHop struct {
	Address   netip.Addr      `yaml:"address"`
	Interface rib.InterfaceID `yaml:"interface,omitempty"`
	Labels    []uint32        `yaml:"labels,omitempty"`
	Weight    uint32          `yaml:"weight,omitempty"`
}

// Config is the full declarative input to Reconfigure, per spec.md §6:
// vrf_interface_routes, static_routes_with_nexthops, static_routes_to_null,
// static_routes_to_cpu and static_mpls_routes_with_nexthops, grouped by
// VRF for convenience of application.
type Config struct {
	VRFs map[rib.RouterID]VRFConfig `yaml:"vrfs"`
}

// DefaultConfig returns a Config with no VRFs, mirroring the teacher's
// DefaultConfig pattern (modules/route/coordinator/cfg.go,
// modules/route/controlplane/cfg.go).
func DefaultConfig() *Config {
	return &Config{VRFs: map[rib.RouterID]VRFConfig{}}
}

// LoadConfig reads and parses a yaml Config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}
