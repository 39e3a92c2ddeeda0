package fatfs

// sectorBuffer is the filesystem's entire cache of on-disk state: one
// sector, loaded and flushed explicitly. There is no second buffer and no
// LRU; every component that needs to see or change bytes on disk does so
// by moving this window to the sector it cares about. This mirrors the
// teacher's move_window/sync_window discipline (soypat-fat fat.go), itself
// a direct port of the original driver's single sector_buffer global.
type sectorBuffer struct {
	addr  lba
	valid bool
	dirty bool
	data  [sectorSize]byte
}

// bytes returns the live backing array of the currently loaded sector.
func (b *sectorBuffer) bytes() []byte { return b.data[:] }

// load moves the window onto addr, flushing a dirty window first if it
// covers a different sector. A no-op if addr is already loaded.
func (fs *FS) bufLoad(addr lba) error {
	b := &fs.buf
	if b.valid && b.addr == addr {
		return nil
	}
	if err := fs.bufFlush(); err != nil {
		return err
	}
	if err := fs.readBlock(addr, b.data[:]); err != nil {
		return err
	}
	b.addr = addr
	b.valid = true
	b.dirty = false
	return nil
}

// flush writes the window back if it is dirty, then clears the dirty bit.
// It is a no-op on a clean or empty window.
func (fs *FS) bufFlush() error {
	b := &fs.buf
	if !b.valid || !b.dirty {
		return nil
	}
	if fs.cfg.ReadOnly {
		return statusWriteProtected
	}
	if err := fs.writeBlock(b.addr, b.data[:]); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// markDirty flags the currently loaded window as modified. Callers must
// have already written their change into fs.buf.bytes() before calling it.
func (fs *FS) bufMarkDirty() {
	fs.buf.dirty = true
}

// invalidate drops the window's identity without flushing; used by Unmount,
// after its final sync, so no stale sector stays loaded once the device is
// detached.
func (fs *FS) bufInvalidate() {
	fs.buf.valid = false
	fs.buf.dirty = false
}

// bufClear zero-fills the window in memory and marks it dirty, without
// reading the sector it replaces. Used by extend (OQ7) to zero newly
// allocated directory clusters without paying for a read that would just be
// discarded. A dirty window over a different sector is flushed first, the
// same as bufLoad would do, so a pending FAT write is never silently lost.
func (fs *FS) bufClear(addr lba) error {
	b := &fs.buf
	if b.valid && b.dirty && b.addr != addr {
		if err := fs.bufFlush(); err != nil {
			return err
		}
	}
	for i := range b.data {
		b.data[i] = 0
	}
	b.addr = addr
	b.valid = true
	b.dirty = true
	return nil
}
