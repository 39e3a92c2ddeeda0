// Package fatfs implements a FAT16/FAT32 filesystem driver for
// resource-constrained environments. It mounts a single volume over a
// block device and exposes a small POSIX-like file interface (open, close,
// read, write, seek, remove, directory enumeration) while using exactly one
// 512-byte sector as its entire in-memory cache of on-disk state.
//
// Only 8.3 short filenames are supported; long filenames (VFAT) and exFAT
// are out of scope, as is mounting more than one volume at a time.
package fatfs

import "log/slog"

// lba is an absolute sector index on the block device.
type lba uint32

// fsKind identifies the on-disk FAT variant of a mounted volume.
type fsKind uint8

const (
	fsUnknown fsKind = iota
	fsFAT12          // detected, rejected at mount
	fsFAT16
	fsFAT32
)

func (k fsKind) String() string {
	switch k {
	case fsFAT12:
		return "FAT12"
	case fsFAT16:
		return "FAT16"
	case fsFAT32:
		return "FAT32"
	default:
		return "unknown"
	}
}

const sectorSize = 512

// StepKind tags the kind of block-device operation about to be performed,
// so a cooperative scheduler can account for its cost.
type StepKind uint8

const (
	StepRead StepKind = iota
	StepWrite
	StepInternal
)

// Scheduler is an optional cooperative-yield hook. Step is called before
// every block read/write (StepRead/StepWrite), giving a host application a
// chance to yield to other work. FS itself never issues StepInternal:
// bookkeeping that does not touch the device makes no Step call. A nil
// Scheduler runs synchronously.
type Scheduler interface {
	Step(StepKind)
}

func (fs *FS) step(k StepKind) {
	if fs.sched != nil {
		fs.sched.Step(k)
	}
}

// OpenFlag selects the access mode passed to FS.Open.
type OpenFlag uint8

const (
	FlagRead OpenFlag = 1 << iota
	FlagWrite
	FlagAppend
)

// MountConfig configures a call to FS.Mount.
type MountConfig struct {
	// Log receives structured trace/debug/info/warn/error events for every
	// operation that touches the volume. Nil disables logging.
	Log *slog.Logger
	// Scheduler is consulted before every block read/write. Nil runs
	// synchronously with no cooperative yielding.
	Scheduler Scheduler
	// ReadOnly mounts the volume without permitting writes, creates, or
	// removes; Write/Append opens, Mkdir and Remove fail with
	// statusWriteProtected.
	ReadOnly bool
}

const maxPathTokens = 255 // defensive bound on path resolution depth
