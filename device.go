package fatfs

// BlockDevice is the storage the filesystem is mounted over. Sectors are
// always sectorSize (512) bytes; callers that back a device with a larger
// physical erase/program granularity are expected to handle that
// internally. Implementations must be safe to call from a single goroutine
// at a time; FS performs no locking of its own.
type BlockDevice interface {
	// ReadBlock reads the sector at the given address into dst, which is
	// exactly sectorSize bytes long.
	ReadBlock(addr uint32, dst []byte) error
	// WriteBlock writes sectorSize bytes from src to the sector at addr.
	WriteBlock(addr uint32, src []byte) error
}

// EraseBlocker is implemented by devices that benefit from being told a
// range of sectors is no longer referenced (e.g. flash translation layers).
// It is never required for correctness; FS only calls it best-effort.
type EraseBlocker interface {
	EraseBlocks(first, count uint32) error
}

func (fs *FS) readBlock(addr lba, dst []byte) error {
	fs.trace("disk_read", "sector", uint32(addr))
	fs.step(StepRead)
	if err := fs.dev.ReadBlock(uint32(addr), dst); err != nil {
		return wrapDisk(err)
	}
	return nil
}

func (fs *FS) writeBlock(addr lba, src []byte) error {
	fs.trace("disk_write", "sector", uint32(addr))
	fs.step(StepWrite)
	if err := fs.dev.WriteBlock(uint32(addr), src); err != nil {
		return wrapDisk(err)
	}
	return nil
}

// eraseClusters tells the device a run of now-unused clusters can be
// reclaimed, when it implements EraseBlocker. Purely a hint: failures are
// logged and otherwise ignored, the same as the teacher's disk_erase.
func (fs *FS) eraseClusters(first, count uint32) {
	er, ok := fs.dev.(EraseBlocker)
	if !ok {
		return
	}
	fs.trace("disk_erase", "start", first, "count", count)
	if err := er.EraseBlocks(first, count); err != nil {
		fs.warn("disk_erase failed", "err", err)
	}
}
