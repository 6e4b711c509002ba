package coordinator

import (
	"github.com/c2h5oh/datasize"
)

// Config is the Coordinator's own tunables, distinct from the routing
// Config in internal/config which describes *what routes* to install.
// Mirrors the teacher's Config/DefaultConfig pattern (modules/route
// controlplane and coordinator cfg.go).
type Config struct {
	// WriterQueueSize bounds the number of pending writer tasks before
	// submit blocks.
	WriterQueueSize int `yaml:"writer_queue_size"`
	// MaxSnapshotSize bounds the accepted size of an incoming
	// from_snapshot payload.
	MaxSnapshotSize datasize.ByteSize `yaml:"max_snapshot_size"`
}

// DefaultConfig returns reasonable defaults for a single-process
// deployment.
func DefaultConfig() *Config {
	return &Config{
		WriterQueueSize: 256,
		MaxSnapshotSize: 64 * datasize.MB,
	}
}
