package fatfs

import "io"

// Handle is an open file. The zero value is not meaningful; obtain one from
// FS.Open. Handles come from a fixed-size pool (maxOpenHandles) rather than
// being heap-allocated per open, mirroring the original driver's static
// fat_file_pool/fat_fd_pool arrays.
type Handle struct {
	fs     *FS
	inUse  bool
	flags  OpenFlag
	isDir  bool
	dirty  bool // size or firstCluster changed since the dir entry was last written

	name         [11]byte
	attr         Attr
	firstCluster uint32
	size         uint32

	parentCluster uint32
	dirSector     lba
	dirIndex      int

	offset uint32

	// curCluster/curClusterIdx is the fast-path cursor hint: when hintValid,
	// curCluster is believed to be the curClusterIdx'th cluster (0-based) in
	// the chain. Reads and writes that continue sequentially from the last
	// access hit this directly; anything else falls back to findNth from
	// firstCluster. hintValid is false right after a Seek (the target chain
	// index is known but which cluster holds it is not), forcing the next
	// access to re-derive the hint instead of trusting a stale curCluster.
	curCluster    uint32
	curClusterIdx uint32
	hintValid     bool
}

func (fs *FS) bytesPerCluster() uint32 {
	return uint32(fs.bpb.secPerClus) * sectorSize
}

// allocHandle reserves a free slot in the handle pool.
func (fs *FS) allocHandle() (*Handle, error) {
	for i := range fs.handles {
		if !fs.handles[i].inUse {
			fs.handles[i] = Handle{fs: fs, inUse: true}
			return &fs.handles[i], nil
		}
	}
	return nil, statusTooManyOpenFiles
}

// resolveParent walks every path component but the last, returning the
// cluster number of the directory that should contain it (0 means the
// FAT16 fixed root) plus the final component's encoded short name.
func (fs *FS) resolveParent(path string) (parent uint32, final [11]byte, err error) {
	pr := newPathResolver(path)
	cluster := fs.rootClusterSentinel()
	for {
		name, isLast, ok, err := pr.next()
		if err != nil {
			return 0, name, err
		}
		if !ok {
			return 0, final, statusInvalidName
		}
		if isLast {
			return cluster, name, nil
		}
		entry, _, _, err := fs.findEntry(cluster, name)
		if err != nil {
			return 0, final, err
		}
		if !entry.attr.IsDirectory() {
			return 0, final, statusNotDirectory
		}
		cluster = entry.firstCluster()
	}
}

// rootClusterSentinel returns the cluster number that addresses the volume
// root in findEntry/newCursor: the FAT32 root's real first cluster, or 0 to
// mean "the FAT16 fixed root" (0 is never a valid data cluster number).
func (fs *FS) rootClusterSentinel() uint32 {
	if fs.kind == fsFAT32 {
		return fs.bpb.rootClus
	}
	return 0
}

// Open opens path with the given flags. With FlagWrite or FlagAppend set, a
// missing file is created; without either, a missing file is statusNoFile.
// Opening a directory or the volume label returns statusIsDirectory — use
// OpenDir instead. Opening an existing entry with FlagWrite or FlagAppend
// while its READ_ONLY attribute bit is set returns statusReadOnlyEntry.
func (fs *FS) Open(path string, flags OpenFlag) (*Handle, error) {
	if fs.dev == nil {
		return nil, statusNotReady
	}
	if fs.cfg.ReadOnly && flags&(FlagWrite|FlagAppend) != 0 {
		return nil, statusWriteProtected
	}
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return nil, err
	}
	entry, sector, idx, err := fs.findEntry(parent, name)
	h, herr := fs.allocHandle()
	if herr != nil {
		return nil, herr
	}
	switch {
	case err == nil:
		if entry.attr.IsDirectory() || entry.attr.IsVolumeID() {
			h.inUse = false
			return nil, statusIsDirectory
		}
		if entry.attr.IsReadOnly() && flags&(FlagWrite|FlagAppend) != 0 {
			h.inUse = false
			return nil, statusReadOnlyEntry
		}
		h.name = name
		h.attr = entry.attr
		h.firstCluster = entry.firstCluster()
		h.size = entry.fileSize
		h.dirSector, h.dirIndex = sector, idx
	case err == statusNoFile:
		if flags&(FlagWrite|FlagAppend) == 0 {
			h.inUse = false
			return nil, statusNoFile
		}
		h.name = name
		h.attr = AttrArchive
		h.firstCluster = 0
		h.size = 0
		h.dirty = true
		var d dirEntry
		d.name = name
		d.attr = AttrArchive
		dsec, didx, ierr := fs.insertEntry(parent, &d)
		if ierr != nil {
			h.inUse = false
			return nil, ierr
		}
		h.dirSector, h.dirIndex = dsec, didx
	default:
		h.inUse = false
		return nil, err
	}
	h.fs = fs
	h.flags = flags
	h.parentCluster = parent
	h.curCluster = h.firstCluster
	h.curClusterIdx = 0
	h.hintValid = true
	if flags&FlagAppend != 0 {
		// Appending starts at the true end of the file, offset == size, so
		// appended bytes follow the existing content. Unlike Seek(0,
		// seekEnd), which lands at size-1 (Open Question 2), no byte of the
		// file is overwritten.
		h.offset = h.size
		// The target chain index is known but curCluster==firstCluster is
		// not necessarily it, so invalidate the hint instead of claiming
		// chain index 0 already sits at the append target — the same
		// mismatch Seek guards against. The first write after open falls
		// back to a full findNth/chainTail walk.
		h.curClusterIdx = h.size / fs.bytesPerCluster()
		h.hintValid = false
	}
	return h, nil
}

// Read fills buf with up to len(buf) bytes starting at the handle's current
// offset and advances the offset by the number read. Returns io.EOF once
// the offset reaches the file's size, following the same final-short-read
// convention as io.Reader. Returns statusDenied if h was not opened with
// FlagRead.
func (h *Handle) Read(buf []byte) (int, error) {
	if !h.inUse {
		return 0, statusInvalidObject
	}
	if h.flags&FlagRead == 0 {
		return 0, statusDenied
	}
	if h.offset >= h.size {
		return 0, io.EOF
	}
	fs := h.fs
	n := 0
	for n < len(buf) && h.offset < h.size {
		sector, withinCluster, err := fs.sectorForOffset(h, h.offset)
		if err != nil {
			return n, err
		}
		if err := fs.bufLoad(sector); err != nil {
			return n, err
		}
		secOff := withinCluster % sectorSize
		chunk := buf[n:]
		avail := sectorSize - int(secOff)
		if avail > len(chunk) {
			avail = len(chunk)
		}
		if remain := int(h.size - h.offset); avail > remain {
			avail = remain
		}
		copy(chunk[:avail], fs.buf.bytes()[secOff:])
		n += avail
		h.offset += uint32(avail)
	}
	return n, nil
}

// Write stores len(buf) bytes at the handle's current offset, extending the
// file's cluster chain and size as needed, and advances the offset.
func (h *Handle) Write(buf []byte) (int, error) {
	if !h.inUse {
		return 0, statusInvalidObject
	}
	if h.flags&(FlagWrite|FlagAppend) == 0 {
		return 0, statusDenied
	}
	fs := h.fs
	if fs.cfg.ReadOnly {
		return 0, statusWriteProtected
	}
	n := 0
	for n < len(buf) {
		sector, withinCluster, err := fs.sectorForOffsetWrite(h, h.offset)
		if err != nil {
			return n, err
		}
		if err := fs.bufLoad(sector); err != nil {
			return n, err
		}
		secOff := withinCluster % sectorSize
		chunk := buf[n:]
		avail := sectorSize - int(secOff)
		if avail > len(chunk) {
			avail = len(chunk)
		}
		copy(fs.buf.bytes()[secOff:], chunk[:avail])
		fs.bufMarkDirty()
		n += avail
		h.offset += uint32(avail)
	}
	if h.offset > h.size {
		h.size = h.offset
		h.dirty = true
	}
	return n, nil
}

// sectorForOffset resolves the sector containing byte offset off within h's
// existing chain, without extending it. Used by Read.
func (fs *FS) sectorForOffset(h *Handle, off uint32) (sector lba, withinCluster uint32, err error) {
	bpc := fs.bytesPerCluster()
	wantIdx := off / bpc
	cluster, err := fs.seekHint(h, wantIdx)
	if err != nil {
		return 0, 0, err
	}
	return fs.clusterToSector(cluster), off % bpc, nil
}

// sectorForOffsetWrite is sectorForOffset's write-path counterpart: if off
// lands past the chain's current end it extends the chain one cluster at a
// time until it reaches wantIdx.
func (fs *FS) sectorForOffsetWrite(h *Handle, off uint32) (sector lba, withinCluster uint32, err error) {
	bpc := fs.bytesPerCluster()
	wantIdx := off / bpc
	cluster, err := fs.seekHint(h, wantIdx)
	needExtend := false
	switch {
	case err == statusEndOfChain && h.firstCluster == 0:
		needExtend = true
	case err == statusEndOfChain && h.hintValid:
		// seekHint's EOC fast path leaves curCluster/curClusterIdx pointing
		// at the chain's real last cluster, so the extend loop below can
		// start from them directly — the common case of a sequential write
		// running past the file's current end.
		needExtend = true
	case err == statusEndOfChain:
		// The hint was stale (e.g. right after a Seek past the chain's
		// current end) and findNth couldn't resolve wantIdx either. Re-walk
		// the chain once to find its real tail before extending, rather than
		// trusting curClusterIdx to already sit there.
		tail, tailIdx, terr := fs.chainTail(h.firstCluster)
		if terr != nil {
			return 0, 0, terr
		}
		h.curCluster = tail
		h.curClusterIdx = tailIdx
		h.hintValid = true
		needExtend = true
	case err != nil:
		return 0, 0, err
	}
	if needExtend {
		extended := false
		for h.curClusterIdx < wantIdx || h.firstCluster == 0 {
			firstClusterWasZero := h.firstCluster == 0
			if err := fs.extend(h); err != nil {
				return 0, 0, err
			}
			extended = true
			if firstClusterWasZero {
				// Persist the newly assigned first cluster immediately so a
				// crash between extend and Close doesn't orphan it.
				if err := fs.persistHandleEntry(h); err != nil {
					return 0, 0, err
				}
			}
		}
		if extended {
			if err := fs.syncFATs(); err != nil {
				return 0, 0, err
			}
		}
		cluster = h.curCluster
	}
	return fs.clusterToSector(cluster), off % bpc, nil
}

// seekHint resolves the cluster at chain index wantIdx, using h's cached
// (curCluster, curClusterIdx) hint when it is valid and exactly right or one
// behind, and falling back to a full walk from firstCluster otherwise. This
// mirrors the teacher's "n/nthCluster" per-file hint in soypat-fat's File
// type. On a statusEndOfChain return curCluster/curClusterIdx are left
// unchanged; hintValid stays true only on the one-step fast path (where
// curCluster is the chain's real last cluster) and is cleared when the full
// walk fails. Callers that need to extend the chain, not just locate a
// cluster, use hintValid to decide whether curCluster/curClusterIdx can be
// trusted as the chain's actual tail (see sectorForOffsetWrite).
func (fs *FS) seekHint(h *Handle, wantIdx uint32) (uint32, error) {
	if h.firstCluster == 0 {
		return 0, statusEndOfChain
	}
	if h.hintValid && wantIdx == h.curClusterIdx {
		return h.curCluster, nil
	}
	if h.hintValid && wantIdx == h.curClusterIdx+1 {
		entry, err := fs.readFATEntry(h.curCluster)
		if err != nil {
			return 0, err
		}
		if fs.isEOC(entry) {
			// curCluster/curClusterIdx are left pointing at the chain's real
			// last cluster; the hint stays valid for an extend to reuse.
			return 0, statusEndOfChain
		}
		h.curCluster = entry
		h.curClusterIdx = wantIdx
		return h.curCluster, nil
	}
	cluster, err := fs.findNth(h.firstCluster, wantIdx)
	if err != nil {
		h.hintValid = false
		return 0, err
	}
	h.curCluster = cluster
	h.curClusterIdx = wantIdx
	h.hintValid = true
	return cluster, nil
}

const (
	seekSet = 0
	seekCur = 1
	seekEnd = 2
)

// Seek repositions the handle's offset. whence is one of seekSet/seekCur/
// seekEnd (io.SeekStart/Current/End share the same values).
//
// Open Question 2: seeking to end-of-file (whence == seekEnd, offset == 0)
// lands one byte short of size, at size-1, rather than at size itself. The
// original driver had exactly this off-by-one in its SEEK_END handling;
// this port preserves it verbatim rather than quietly correcting it, since
// nothing in the on-disk format depends on the "true" end-of-file position
// and silently changing append/tell semantics would be a bigger surprise to
// a caller ported from the original than the one-byte quirk itself. A
// zero-length file stays at offset 0 (there is no byte to land short of).
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if !h.inUse {
		return 0, statusInvalidObject
	}
	var base int64
	switch whence {
	case seekSet:
		base = 0
	case seekCur:
		base = int64(h.offset)
	case seekEnd:
		base = int64(h.size)
		if offset == 0 && h.size > 0 {
			base = int64(h.size) - 1
		}
	default:
		return 0, statusInvalidParameter
	}
	newOff := base + offset
	if newOff < 0 {
		return 0, statusInvalidParameter
	}
	h.offset = uint32(newOff)
	// Invalidate the cluster hint rather than claiming curCluster sits at
	// the target chain index: curCluster only ever advances one hop at a
	// time, so leaving it at its old value while curClusterIdx jumps ahead
	// would make seekHint's fast path return the wrong cluster under the
	// right-looking index. The next access falls back to a full findNth (or,
	// if that target lies past the chain's current end, chainTail) walk.
	h.curClusterIdx = h.offset / h.fs.bytesPerCluster()
	h.hintValid = false
	return int64(h.offset), nil
}

// persistHandleEntry rewrites h's directory slot with its current
// firstCluster/size/attr.
func (fs *FS) persistHandleEntry(h *Handle) error {
	d := dirEntry{name: h.name, attr: h.attr, fileSize: h.size}
	d.setFirstCluster(h.firstCluster)
	return fs.writeEntryAt(h.dirSector, h.dirIndex, &d)
}

// Close flushes any buffered size/firstCluster change to the directory
// entry and releases the handle back to the pool. After Close the handle
// must not be used again.
func (h *Handle) Close() error {
	if !h.inUse {
		return statusInvalidObject
	}
	var err error
	if h.dirty {
		err = h.fs.persistHandleEntry(h)
	}
	if ferr := h.fs.bufFlush(); err == nil {
		err = ferr
	}
	h.inUse = false
	return err
}

// Sync flushes buffered writes without closing the handle.
func (h *Handle) Sync() error {
	if !h.inUse {
		return statusInvalidObject
	}
	if h.dirty {
		if err := h.fs.persistHandleEntry(h); err != nil {
			return err
		}
	}
	return h.fs.bufFlush()
}

// Size returns the file's current length in bytes.
func (h *Handle) Size() int64 { return int64(h.size) }

// Remove deletes the file named by path: its directory slot is marked
// deleted and its cluster chain is freed. Directories and the volume label
// can never be removed — directory removal is out of scope, matching the
// original driver's remove().
func (fs *FS) Remove(path string) error {
	if fs.dev == nil {
		return statusNotReady
	}
	if fs.cfg.ReadOnly {
		return statusWriteProtected
	}
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	entry, sector, idx, err := fs.findEntry(parent, name)
	if err != nil {
		return err
	}
	if entry.attr.IsDirectory() || entry.attr.IsVolumeID() {
		return statusIsDirectory
	}
	if err := fs.deleteEntryAt(sector, idx); err != nil {
		return err
	}
	if cluster := entry.firstCluster(); cluster != 0 {
		if err := fs.truncateToEmpty(cluster); err != nil {
			return err
		}
	}
	return fs.bufFlush()
}
